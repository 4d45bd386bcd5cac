package generate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"unicode"

	"github.com/matzehuels/forumgraph/pkg/errors"
	"github.com/matzehuels/forumgraph/pkg/graph"
)

// =============================================================================
// Server Data - Exported Chat Server Dumps
// =============================================================================

// ServerData is a scraped chat server: categories of channels of threads of
// messages, each object optionally carrying an AI analysis with tags.
// Object maps keep their document order.
type ServerData struct {
	ID         ObjectID            `json:"id"`
	Name       string              `json:"name"`
	Analysis   *Analysis           `json:"ai_analysis"`
	Categories Ordered[Category]   `json:"categories"`
	Users      Ordered[ServerUser] `json:"users"`
}

// Category is a group of channels.
type Category struct {
	ID       ObjectID         `json:"id"`
	Name     string           `json:"name"`
	Analysis *Analysis        `json:"ai_analysis"`
	Channels Ordered[Channel] `json:"channels"`
}

// Channel holds chat threads.
type Channel struct {
	ID       ObjectID        `json:"id"`
	Name     string          `json:"name"`
	Analysis *Analysis       `json:"ai_analysis"`
	Threads  Ordered[Thread] `json:"chat_threads"`
}

// Thread is one conversation.
type Thread struct {
	ID       ObjectID  `json:"id"`
	Name     string    `json:"name"`
	Analysis *Analysis `json:"ai_analysis"`
	Messages []Message `json:"messages"`
}

// Message is one chat message. Only the author matters for the graph.
type Message struct {
	ID       ObjectID `json:"id"`
	AuthorID ObjectID `json:"author_id"`
	IsBot    bool     `json:"is_bot"`
}

// ServerUser is a per-user summary with its own analysis.
type ServerUser struct {
	ID       ObjectID  `json:"id"`
	Analysis *Analysis `json:"ai_analysis"`
}

// Analysis is the AI summary attached to a server object.
type Analysis struct {
	TitleSlug string `json:"title_slug"`
	Tags      string `json:"tags"` // comma separated, e.g. "#python, #computer-vision"
}

// TagList returns the analysis tags normalized to "#lower-kebab" form, in
// order, without blanks. A nil analysis has no tags.
func (a *Analysis) TagList() []string {
	if a == nil {
		return nil
	}
	var out []string
	for _, raw := range strings.Split(a.Tags, ",") {
		if tag := normalizeTag(raw); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// Title returns the slug as words, "pose-estimation" -> "Pose Estimation".
func (a *Analysis) Title() string {
	if a == nil || a.TitleSlug == "" {
		return ""
	}
	words := strings.Fields(strings.ReplaceAll(a.TitleSlug, "-", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func normalizeTag(raw string) string {
	tag := strings.TrimLeft(strings.TrimSpace(raw), "#")
	tag = strings.Join(strings.Fields(tag), "-")
	if tag == "" {
		return ""
	}
	return "#" + strings.ToLower(tag)
}

// ObjectID is a server object id, written as either a JSON number or a
// string.
type ObjectID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ObjectID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ObjectID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("object id: %w", err)
	}
	*id = ObjectID(n)
	return nil
}

// Ordered decodes a JSON object into its values in document order. Keys
// are dropped; every object already carries its own id.
type Ordered[T any] []T

// UnmarshalJSON implements json.Unmarshaler.
func (o *Ordered[T]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*o = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("want an object, got %v", tok)
	}
	var out Ordered[T]
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return err
		}
		var v T
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out = append(out, v)
	}
	*o = out
	return nil
}

// ReadServerData decodes a server dump.
func ReadServerData(r io.Reader) (ServerData, error) {
	var sd ServerData
	if err := json.NewDecoder(r).Decode(&sd); err != nil {
		return ServerData{}, errors.Wrap(errors.ErrCodeInvalidGraph, err, "decode server data")
	}
	if sd.ID == "" {
		return ServerData{}, errors.New(errors.ErrCodeInvalidGraph, "server data has no id")
	}
	return sd, nil
}

// ReadServerDataFile decodes the server dump at path.
func ReadServerDataFile(path string) (ServerData, error) {
	f, err := os.Open(path)
	if err != nil {
		return ServerData{}, errors.Wrap(errors.ErrCodeNotFound, err, "open %s", path)
	}
	defer f.Close()
	return ReadServerData(f)
}

// =============================================================================
// Server Graph
// =============================================================================

// DefaultSkipChannels are left out of server graphs: bot test channels
// carry no forum content.
var DefaultSkipChannels = []string{"bot-playground"}

// ServerOptions tune [FromServer].
type ServerOptions struct {
	// SkipChannels names channels to leave out with their threads.
	// Nil means DefaultSkipChannels.
	SkipChannels []string
	// ExcludeUsers lists author ids that get no user node, in addition to
	// bot authors.
	ExcludeUsers []string
}

// FromServer builds the forum graph of a server dump.
//
// The hierarchy is server, categories, channels and threads joined by
// parent links. Every distinct tag becomes one "tag" node and every human
// author one "user" node. Undirected tag links join users, categories,
// channels and threads to their tags, so a tag shared by several objects
// is still a single node. Groups count up in creation order.
func FromServer(sd ServerData, opts ServerOptions) graph.Graph {
	b := serverBuilder{
		skip:    opts.SkipChannels,
		exclude: opts.ExcludeUsers,
		tagIdx:  make(map[string]int),
	}
	if b.skip == nil {
		b.skip = DefaultSkipChannels
	}
	b.build(sd)
	return b.g
}

type serverBuilder struct {
	g       graph.Graph
	group   int
	skip    []string
	exclude []string

	tags   []string
	tagIdx map[string]int
}

func (b *serverBuilder) next() int {
	g := b.group
	b.group++
	return g
}

func (b *serverBuilder) add(id, name string, t graph.NodeType, level int, size float64) {
	b.g.Nodes = append(b.g.Nodes, graph.Node{
		ID:           id,
		Name:         name,
		Type:         t,
		Level:        level,
		Group:        b.next(),
		RelativeSize: size,
	})
}

func (b *serverBuilder) build(sd ServerData) {
	b.g = graph.Graph{Nodes: []graph.Node{}, Links: []graph.Link{}}

	server := "server-" + string(sd.ID)
	b.add(server, sd.Name, graph.TypeServer, 0, sqr(graph.TypeServer.Value()))

	b.collectTags(sd)
	for _, tag := range b.tags {
		b.add(tagID(tag), tag, graph.TypeTag, 1, 1)
	}

	users := make(map[ObjectID]*Analysis, len(sd.Users))
	for _, u := range sd.Users {
		users[u.ID] = u.Analysis
	}
	for _, id := range b.authors(sd) {
		user := "user-" + string(id)
		b.add(user, "User "+string(id), graph.TypeUser, 1, 4)
		b.tagLinks(user, users[id])
	}

	for _, cat := range sd.Categories {
		catID := "category-" + string(cat.ID)
		b.add(catID, cat.Name, graph.TypeCategory, 1, sqr(graph.TypeCategory.Value()))
		b.g.Links = append(b.g.Links, link(server, catID, graph.LinkParent, 0))
		b.tagLinks(catID, cat.Analysis)

		for chNum, ch := range b.channels(cat) {
			chID := "channel-" + string(ch.ID)
			b.add(chID, ch.Name, graph.TypeChannel, 2, sqr(graph.TypeChannel.Value()))
			b.g.Links = append(b.g.Links, link(catID, chID, graph.LinkParent, 0))
			b.tagLinks(chID, ch.Analysis)

			for _, th := range ch.Threads {
				thID := "thread-" + string(th.ID)
				name := th.Analysis.Title()
				if name == "" {
					name = th.Name
				}
				b.add(thID, name, graph.TypeThread, 3, sqr(graph.TypeThread.Value()))
				b.g.Links = append(b.g.Links, link(chID, thID, graph.LinkParent, chNum))
				b.tagLinks(thID, th.Analysis)
			}
		}
	}
}

// channels returns the category's channels minus skipped ones.
func (b *serverBuilder) channels(cat Category) []Channel {
	out := make([]Channel, 0, len(cat.Channels))
	for _, ch := range cat.Channels {
		if !slices.Contains(b.skip, ch.Name) {
			out = append(out, ch)
		}
	}
	return out
}

// collectTags records every distinct tag in first-seen order: server, then
// users, then the hierarchy depth-first.
func (b *serverBuilder) collectTags(sd ServerData) {
	add := func(a *Analysis) {
		for _, tag := range a.TagList() {
			if _, ok := b.tagIdx[tag]; !ok {
				b.tagIdx[tag] = len(b.tags)
				b.tags = append(b.tags, tag)
			}
		}
	}
	add(sd.Analysis)
	for _, u := range sd.Users {
		add(u.Analysis)
	}
	for _, cat := range sd.Categories {
		add(cat.Analysis)
		for _, ch := range b.channels(cat) {
			add(ch.Analysis)
			for _, th := range ch.Threads {
				add(th.Analysis)
			}
		}
	}
}

// authors returns the human message authors in order of first message,
// skipping bots, excluded ids and skipped channels.
func (b *serverBuilder) authors(sd ServerData) []ObjectID {
	seen := make(map[ObjectID]bool)
	var out []ObjectID
	for _, cat := range sd.Categories {
		for _, ch := range b.channels(cat) {
			for _, th := range ch.Threads {
				for _, m := range th.Messages {
					if m.IsBot || m.AuthorID == "" || seen[m.AuthorID] || slices.Contains(b.exclude, string(m.AuthorID)) {
						continue
					}
					seen[m.AuthorID] = true
					out = append(out, m.AuthorID)
				}
			}
		}
	}
	return out
}

// tagLinks links source to each of its tags once. The link group is that of
// the source node.
func (b *serverBuilder) tagLinks(source string, a *Analysis) {
	group := b.group - 1
	linked := make(map[string]bool)
	for _, tag := range a.TagList() {
		if linked[tag] {
			continue
		}
		linked[tag] = true
		l := link(source, tagID(tag), graph.LinkTag, group)
		l.Directional = false
		b.g.Links = append(b.g.Links, l)
	}
}

// tagID is the node id of tag, "#python" -> "tag-python".
func tagID(tag string) string {
	return "tag-" + strings.TrimPrefix(tag, "#")
}

func sqr(v int) float64 { return float64(v * v) }
