package display

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/matzehuels/forumgraph/pkg/errors"
)

// Update is a request to change one parameter, addressed by its TOML key
// (e.g. "node_size" or "link_lengths.server").
type Update struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Event reports an applied update.
type Event struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// setter applies a decoded value to a config copy and returns the old and
// new values in their stored types.
type setter func(c *Config, v any) (old, new any, err error)

var setters = map[string]setter{
	"dag_orientation": func(c *Config, v any) (any, any, error) {
		s, ok := v.(string)
		if v == nil {
			s, ok = OrientationNone, true
		}
		if !ok {
			return nil, nil, fmt.Errorf("want a string, got %T", v)
		}
		old := c.DAGOrientation
		c.DAGOrientation = s
		return old, s, nil
	},
	"arrow_length":          floatField(func(c *Config) *float64 { return &c.ArrowLength }),
	"node_size":             floatField(func(c *Config) *float64 { return &c.NodeSize }),
	"particle_size":         floatField(func(c *Config) *float64 { return &c.ParticleSize }),
	"particle_speed":        floatField(func(c *Config) *float64 { return &c.ParticleSpeed }),
	"link_lengths.base":     floatField(func(c *Config) *float64 { return &c.LinkLengths.Base }),
	"link_lengths.server":   floatField(func(c *Config) *float64 { return &c.LinkLengths.Server }),
	"link_lengths.category": floatField(func(c *Config) *float64 { return &c.LinkLengths.Category }),
	"link_lengths.channel":  floatField(func(c *Config) *float64 { return &c.LinkLengths.Channel }),
	"link_lengths.chat":     floatField(func(c *Config) *float64 { return &c.LinkLengths.Chat }),
	"link_lengths.message":  floatField(func(c *Config) *float64 { return &c.LinkLengths.Message }),
	"particles": func(c *Config, v any) (any, any, error) {
		f, err := toFloat(v)
		if err != nil {
			return nil, nil, err
		}
		if f != math.Trunc(f) {
			return nil, nil, fmt.Errorf("want a whole number, got %v", f)
		}
		old := c.Particles
		c.Particles = int(f)
		return old, c.Particles, nil
	},
}

func floatField(field func(*Config) *float64) setter {
	return func(c *Config, v any) (any, any, error) {
		f, err := toFloat(v)
		if err != nil {
			return nil, nil, err
		}
		p := field(c)
		old := *p
		*p = f
		return old, f, nil
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("want a number, got %T", v)
	}
}

// Fields returns the keys accepted by [Config.With], sorted.
func Fields() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// With returns a copy of c with u applied, and the event describing it.
// The result is validated; c itself never changes.
func (c Config) With(u Update) (Config, Event, error) {
	set, ok := setters[u.Field]
	if !ok {
		return c, Event{}, errors.New(errors.ErrCodeInvalidConfig, "unknown field %q (known: %s)", u.Field, strings.Join(Fields(), ", "))
	}
	next := c
	old, updated, err := set(&next, u.Value)
	if err != nil {
		return c, Event{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s", u.Field)
	}
	if err := next.Validate(); err != nil {
		return c, Event{}, err
	}
	return next, Event{Field: u.Field, Old: old, New: updated}, nil
}

// =============================================================================
// Live - Current Config plus Subscribers
// =============================================================================

// Live holds the current config for a running service and fans out an
// [Event] for every accepted update.
type Live struct {
	mu   sync.RWMutex
	cfg  Config
	subs map[int]chan Event
	next int
}

// NewLive starts from cfg, which must be valid.
func NewLive(cfg Config) *Live {
	return &Live{cfg: cfg, subs: make(map[int]chan Event)}
}

// Current returns the current config.
func (l *Live) Current() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// Apply validates and applies u, then notifies subscribers. On error the
// current config is unchanged and nobody is notified.
func (l *Live) Apply(u Update) (Config, Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, ev, err := l.cfg.With(u)
	if err != nil {
		return l.cfg, Event{}, err
	}
	l.cfg = next
	for _, ch := range l.subs {
		select {
		case ch <- ev:
		default: // slow subscriber; it will read Current on its next event
		}
	}
	return next, ev, nil
}

// Subscribe registers a buffered event channel. Call cancel to unregister;
// the channel is closed afterwards.
func (l *Live) Subscribe() (events <-chan Event, cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.next
	l.next++
	ch := make(chan Event, 16)
	l.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.subs, id)
			close(ch)
		})
	}
}
