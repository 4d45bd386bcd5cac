package display

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/forumgraph/pkg/errors"
	"github.com/matzehuels/forumgraph/pkg/graph"
)

// DAG orientations understood by the renderer. OrientationNone disables DAG
// layout and lets the force simulation place nodes freely.
const (
	OrientationTopDown   = "td"
	OrientationBottomUp  = "bu"
	OrientationLeftRight = "lr"
	OrientationRightLeft = "rl"
	OrientationZOut      = "zout"
	OrientationZIn       = "zin"
	OrientationRadialOut = "radialout"
	OrientationRadialIn  = "radialin"
	OrientationNone      = ""
)

// Orientations lists every accepted orientation in menu order.
var Orientations = []string{
	OrientationTopDown, OrientationBottomUp, OrientationLeftRight, OrientationRightLeft,
	OrientationZOut, OrientationZIn, OrientationRadialOut, OrientationRadialIn, OrientationNone,
}

// Config is the immutable set of renderer parameters.
type Config struct {
	DAGOrientation string      `toml:"dag_orientation" json:"dag_orientation" validate:"orientation"`
	ArrowLength    float64     `toml:"arrow_length" json:"arrow_length" validate:"gte=0,lte=100"`
	NodeSize       float64     `toml:"node_size" json:"node_size" validate:"gte=1,lte=4"`
	Particles      int         `toml:"particles" json:"particles" validate:"gte=0,lte=20"`
	ParticleSize   float64     `toml:"particle_size" json:"particle_size" validate:"gte=0,lte=20"`
	ParticleSpeed  float64     `toml:"particle_speed" json:"particle_speed" validate:"gte=0.001,lte=0.1"`
	LinkLengths    LinkLengths `toml:"link_lengths" json:"link_lengths"`
}

// LinkLengths are the multipliers of the link-distance heuristic.
type LinkLengths struct {
	Base     float64 `toml:"base" json:"base" validate:"gte=0,lte=100"`
	Server   float64 `toml:"server" json:"server" validate:"gte=0,lte=10"`
	Category float64 `toml:"category" json:"category" validate:"gte=0,lte=10"`
	Channel  float64 `toml:"channel" json:"channel" validate:"gte=0,lte=10"`
	Chat     float64 `toml:"chat" json:"chat" validate:"gte=0,lte=10"`
	Message  float64 `toml:"message" json:"message" validate:"gte=0,lte=10"`
}

// Default returns the stock parameters.
func Default() Config {
	return Config{
		DAGOrientation: OrientationTopDown,
		ArrowLength:    10,
		NodeSize:       2,
		Particles:      5,
		ParticleSize:   2,
		ParticleSpeed:  0.01,
		LinkLengths: LinkLengths{
			Base:     1,
			Server:   5,
			Category: 4,
			Channel:  3,
			Chat:     2,
			Message:  1,
		},
	}
}

// =============================================================================
// Validation
// =============================================================================

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their TOML key so messages match what users write.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("orientation", func(fl validator.FieldLevel) bool {
		return slices.Contains(Orientations, fl.Field().String())
	})
	return v
}

// Validate checks every parameter against its allowed range.
// Failures are INVALID_CONFIG errors listing each offending key.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "validate")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return errors.New(errors.ErrCodeInvalidConfig, "%s", strings.Join(msgs, "; "))
}

// formatFieldError turns "Config.link_lengths.server" into "link_lengths.server".
func formatFieldError(fe validator.FieldError) string {
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be at least %s", key, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", key, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", key, fe.Param())
	case "orientation":
		return fmt.Sprintf("%s must be one of: %s or empty", key, strings.Join(Orientations[:len(Orientations)-1], " "))
	default:
		return fmt.Sprintf("%s is invalid", key)
	}
}

// =============================================================================
// Loading
// =============================================================================

// Load reads a TOML file over the defaults and validates the result.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// =============================================================================
// Heuristics
// =============================================================================

// LinkDistance returns the desired length of l.
//
// The result is LinkLengths.Base times the source node's level times the
// link length configured for the source node's type. A nil source, or a
// source with a non-positive level, counts as level 1. Browser renderers
// that multiply by the raw level give level-0 sources (servers) a distance
// of 0; this keeps their links at a usable length instead. Types without a
// configured length use a multiplier of 1.
func (c Config) LinkDistance(l graph.Link, source *graph.Node) float64 {
	level := 1
	multiplier := 1.0
	if source != nil {
		if source.Level > 0 {
			level = source.Level
		}
		multiplier = c.typeMultiplier(source.Type)
	}
	return c.LinkLengths.Base * float64(level) * multiplier
}

func (c Config) typeMultiplier(t graph.NodeType) float64 {
	switch t.Known() {
	case graph.TypeServer:
		return c.LinkLengths.Server
	case graph.TypeCategory:
		return c.LinkLengths.Category
	case graph.TypeChannel:
		return c.LinkLengths.Channel
	case graph.TypeThread:
		return c.LinkLengths.Chat
	case graph.TypeMessage:
		return c.LinkLengths.Message
	default:
		return 1
	}
}

// NodeRelativeSize returns relative_size raised to NodeSize. Nodes without
// a relative size count as 1.
func (c Config) NodeRelativeSize(n graph.Node) float64 {
	size := n.RelativeSize
	if size <= 0 {
		size = 1
	}
	return math.Pow(size, c.NodeSize)
}
