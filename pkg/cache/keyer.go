package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/matzehuels/forumgraph/pkg/display"
	"github.com/matzehuels/forumgraph/pkg/graph"
)

// KindRender is the key kind of rendered diagrams.
const KindRender = "render"

// Keyer derives cache keys for rendered artifacts.
type Keyer interface {
	// RenderKey identifies one rendering of a visible subgraph.
	RenderKey(g graph.Graph, cfg display.Config, opts RenderKeyOpts) string
}

// RenderKeyOpts are the rendering options that change the output bytes.
type RenderKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed"`
}

// DefaultKeyer hashes every input that affects the rendered bytes.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the stock keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// RenderKey returns "render:<format>:<sha256>" over the graph, config and
// options. The readable segments let [FileCache] group entries on disk.
func (DefaultKeyer) RenderKey(g graph.Graph, cfg display.Config, opts RenderKeyOpts) string {
	format := opts.Format
	if format == "" {
		format = "dot"
	}
	return KindRender + ":" + format + ":" + digest(g, cfg, opts)
}

var _ Keyer = DefaultKeyer{}

// digest is the hex SHA-256 of the JSON encoding of parts.
func digest(parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
