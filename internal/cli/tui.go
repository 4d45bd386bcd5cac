package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/forumgraph/pkg/graph"
	"github.com/matzehuels/forumgraph/pkg/observability"
	"github.com/matzehuels/forumgraph/pkg/visibility"
)

// Tree styles
var (
	treeSelectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	treeCollapsedStyle = lipgloss.NewStyle().Foreground(colorYellow)
	treeNormalStyle    = lipgloss.NewStyle().Foreground(colorWhite)
	treeDimStyle       = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	markerExpanded  = "▾"
	markerCollapsed = "▸"
	markerLeaf      = "·"
)

// =============================================================================
// TreeModel - Interactive collapse and expand
// =============================================================================

// treeRowsTop is the screen line of the first table row: title, help and a
// blank line, then the table's top border, header and separator.
const treeRowsTop = 6

// treeRow is one visible node with its indentation depth.
type treeRow struct {
	node  graph.Node
	depth int
	kids  int
}

// TreeModel is the bubbletea model for browsing a graph as a collapsible tree.
// Rows follow the visible subgraph's order: depth-first, children in link
// order, each node once.
type TreeModel struct {
	Name   string
	State  visibility.State
	Cursor int
	Height int
	Offset int

	ix   *visibility.Indexed
	root string
	rows []treeRow
}

// NewTreeModel creates a tree model rooted at root.
func NewTreeModel(name string, ix *visibility.Indexed, root string, state visibility.State) TreeModel {
	if state == nil {
		state = visibility.NewState()
	}
	m := TreeModel{Name: name, State: state, Height: 20, ix: ix, root: root}
	m.rebuild()
	return m
}

// rebuild recomputes the rows from the current state. Depth comes from the
// visible links: a link precedes the visit of its target, so the first link
// reaching a node fixes its depth.
func (m *TreeModel) rebuild() {
	g, err := m.ix.Visible(m.root, m.State)
	if err != nil {
		m.rows = nil
		m.clamp()
		return
	}
	m.rows = make([]treeRow, 0, len(g.Nodes))
	depth := map[string]int{m.root: 0}
	for _, l := range g.Links {
		if _, ok := depth[l.Target.ID()]; !ok {
			depth[l.Target.ID()] = depth[l.Source.ID()] + 1
		}
	}
	for _, n := range g.Nodes {
		m.rows = append(m.rows, treeRow{node: n, depth: depth[n.ID], kids: len(m.ix.Children(n.ID))})
	}
	m.clamp()
}

func (m *TreeModel) clamp() {
	if m.Cursor >= len(m.rows) {
		m.Cursor = len(m.rows) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Height > 0 && m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

// VisibleIDs returns the ids of the rows in display order.
func (m TreeModel) VisibleIDs() []string {
	ids := make([]string, len(m.rows))
	for i, r := range m.rows {
		ids[i] = r.node.ID
	}
	return ids
}

// set collapses or expands the node under the cursor. Leaves are ignored.
func (m *TreeModel) set(collapsed bool) {
	if len(m.rows) == 0 {
		return
	}
	r := m.rows[m.Cursor]
	if r.kids == 0 || r.node.Collapsed == collapsed {
		return
	}
	m.State.Set(r.node.ID, collapsed)
	observability.Visibility().OnToggle(context.Background(), m.Name, r.node.ID, collapsed)
	m.rebuild()
}

func (m TreeModel) Init() tea.Cmd {
	return nil
}

func (m TreeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m.Cursor--
			m.clamp()
		case "down", "j":
			m.Cursor++
			m.clamp()
		case " ", "enter":
			if len(m.rows) > 0 {
				m.set(!m.rows[m.Cursor].node.Collapsed)
			}
		case "right", "l":
			m.set(false)
		case "left", "h":
			m.set(true)
		case "e":
			m.State.ExpandAll()
			m.rebuild()
		}
	case tea.MouseMsg:
		if msg.Button != tea.MouseButtonRight || msg.Action != tea.MouseActionPress {
			break
		}
		row := msg.Y - treeRowsTop + m.Offset
		if msg.Y < treeRowsTop || row >= len(m.rows) || row >= m.Offset+m.Height {
			break
		}
		m.Cursor = row
		m.set(!m.rows[row].node.Collapsed)
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
		m.clamp()
	}
	return m, nil
}

func (m TreeModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Name))
	b.WriteString("\n")
	b.WriteString(treeDimStyle.Render("↑/↓ navigate  space/right-click toggle  ←/→ collapse/expand  e expand all  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.rows))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		r := m.rows[i]
		marker := markerLeaf
		if r.kids > 0 {
			marker = markerExpanded
			if r.node.Collapsed {
				marker = markerCollapsed
			}
		}
		label := strings.Repeat("  ", r.depth) + marker + " " + r.node.DisplayName()
		kids := ""
		if r.kids > 0 {
			kids = strconv.Itoa(r.kids)
		}
		rows = append(rows, []string{label, string(r.node.Type), strconv.Itoa(r.node.Level), kids})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Node", "Type", "Level", "Children").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.rows) {
				return lipgloss.NewStyle()
			}
			switch {
			case idx == m.Cursor:
				return treeSelectedStyle
			case col > 0:
				return treeDimStyle
			case m.rows[idx].node.Collapsed:
				return treeCollapsedStyle
			}
			return treeNormalStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	hidden := m.ix.Len() - len(m.rows)
	b.WriteString(treeDimStyle.Render(fmt.Sprintf("  %d visible · %d hidden · %d collapsed", len(m.rows), hidden, len(m.State))))

	return b.String()
}
