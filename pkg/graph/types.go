package graph

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/matzehuels/forumgraph/pkg/errors"
)

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// NodeType classifies a node in the forum hierarchy.
type NodeType string

// Node types, outermost first.
const (
	TypeServer   NodeType = "server"
	TypeCategory NodeType = "category"
	TypeChannel  NodeType = "channel"
	TypeThread   NodeType = "thread"
	TypeMessage  NodeType = "message"
	TypeOther    NodeType = "other"
)

// Node types outside the hierarchy, produced by server imports. Known maps
// them to TypeOther.
const (
	TypeTag  NodeType = "tag"
	TypeUser NodeType = "user"
)

// Known returns t if it is one of the hierarchy types, otherwise TypeOther.
// The raw value is kept on the node so extra types ("tag", "user") survive
// a round trip.
func (t NodeType) Known() NodeType {
	switch t {
	case TypeServer, TypeCategory, TypeChannel, TypeThread, TypeMessage:
		return t
	default:
		return TypeOther
	}
}

// Value returns the hierarchy weight of the type: server 5 down to message 1,
// and 0 for anything else. Generated graphs use it for level and size.
func (t NodeType) Value() int {
	switch t.Known() {
	case TypeServer:
		return 5
	case TypeCategory:
		return 4
	case TypeChannel:
		return 3
	case TypeThread:
		return 2
	case TypeMessage:
		return 1
	default:
		return 0
	}
}

// LinkType classifies a link.
type LinkType string

// Link types.
const (
	LinkParent LinkType = "parent"
	LinkReply  LinkType = "reply"
	LinkOther  LinkType = "other"

	// LinkTag joins an object to one of its tags. Known maps it to LinkOther.
	LinkTag LinkType = "tag"
)

// Known returns t if it is parent or reply, otherwise LinkOther.
func (t LinkType) Known() LinkType {
	switch t {
	case LinkParent, LinkReply:
		return t
	default:
		return LinkOther
	}
}

// =============================================================================
// Graph - Node/Link Container
// =============================================================================

// Graph is the canonical serialization format for forum graphs.
// Both the full graph and every visible subgraph use this shape.
type Graph struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Links []Link `json:"links" bson:"links"`
}

// NodeCount returns the number of nodes.
func (g Graph) NodeCount() int { return len(g.Nodes) }

// LinkCount returns the number of links.
func (g Graph) LinkCount() int { return len(g.Links) }

// Validate checks node identity: every node needs a non-empty id and ids
// must be unique. Link endpoints are resolved later by the visibility index.
func (g Graph) Validate() error {
	seen := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			return errors.New(errors.ErrCodeInvalidGraph, "node %d has an empty id", i)
		}
		if j, dup := seen[n.ID]; dup {
			return errors.New(errors.ErrCodeInvalidGraph, "duplicate node id %q (nodes %d and %d)", n.ID, j, i)
		}
		seen[n.ID] = i
	}
	return nil
}

// normalized returns g with nil slices replaced by empty ones so the JSON
// output always carries arrays.
func (g Graph) normalized() Graph {
	if g.Nodes == nil {
		g.Nodes = []Node{}
	}
	if g.Links == nil {
		g.Links = []Link{}
	}
	return g
}

// =============================================================================
// Node
// =============================================================================

// Node is a visualizable entity in the hierarchy.
type Node struct {
	ID           string   `json:"id" bson:"id"`
	Name         string   `json:"name,omitempty" bson:"name,omitempty"`
	Type         NodeType `json:"type,omitempty" bson:"type,omitempty"`
	Level        int      `json:"level" bson:"level"`                                     // Depth hint, drives link distance
	Group        int      `json:"group,omitempty" bson:"group,omitempty"`                 // Renderer grouping
	RelativeSize float64  `json:"relative_size,omitempty" bson:"relative_size,omitempty"` // Base for node sizing
	Color        string   `json:"color,omitempty" bson:"color,omitempty"`
	Collapsed    bool     `json:"collapsed,omitempty" bson:"collapsed,omitempty"` // Seeds the initial collapse state
}

// DisplayName returns the name if set, otherwise the ID.
func (n *Node) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// =============================================================================
// Link
// =============================================================================

// Link is a directed relation between two nodes.
type Link struct {
	Source         Endpoint `json:"source" bson:"source"`
	Target         Endpoint `json:"target" bson:"target"`
	Type           LinkType `json:"type,omitempty" bson:"type,omitempty"`
	Group          int      `json:"group,omitempty" bson:"group,omitempty"`
	RelativeLength float64  `json:"relative_length,omitempty" bson:"relative_length,omitempty"`
	Directional    bool     `json:"directional,omitempty" bson:"directional,omitempty"`
}

// String renders the link as "source -> target".
func (l Link) String() string {
	return fmt.Sprintf("%s -> %s", l.Source, l.Target)
}

// =============================================================================
// Endpoint - Raw ID or Resolved Node Reference
// =============================================================================

// Endpoint is the node id at one end of a link.
//
// On input it accepts a JSON string, a JSON number, or an object with an "id"
// field (the renderer's resolved node reference). It always encodes as a
// string id.
type Endpoint string

// ID returns the endpoint's node id.
func (e Endpoint) ID() string { return string(e) }

// UnmarshalJSON implements json.Unmarshaler.
func (e *Endpoint) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty endpoint")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = Endpoint(s)
		return nil
	case '{':
		var ref struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(data, &ref); err != nil {
			return err
		}
		if len(ref.ID) == 0 {
			return fmt.Errorf("endpoint object has no id")
		}
		return e.UnmarshalJSON(ref.ID)
	case 'n':
		return fmt.Errorf("endpoint is null")
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return fmt.Errorf("endpoint must be an id or node object: %w", err)
		}
		*e = Endpoint(num.String())
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (e Endpoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(e))
}
