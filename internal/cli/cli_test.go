package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/forumgraph/pkg/buildinfo"
	"github.com/matzehuels/forumgraph/pkg/display"
	"github.com/matzehuels/forumgraph/pkg/errors"
	"github.com/matzehuels/forumgraph/pkg/generate"
	"github.com/matzehuels/forumgraph/pkg/graph"
	"github.com/matzehuels/forumgraph/pkg/store"
)

// runCLI executes the root command and returns its stdout and status output.
func runCLI(t *testing.T, args ...string) (out, status string, err error) {
	t.Helper()
	var outBuf, statusBuf bytes.Buffer
	old := stdout
	stdout = &statusBuf
	t.Cleanup(func() { stdout = old })

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs(args)
	root.SetOut(&outBuf)
	root.SetErr(io.Discard)
	err = root.ExecuteContext(context.Background())
	return outBuf.String(), statusBuf.String(), err
}

// forumFile writes the default generated forum to a temp file.
func forumFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forum.json")
	if err := graph.WriteGraphFile(generate.Generate(generate.Options{}), path); err != nil {
		t.Fatal(err)
	}
	return path
}

func nodeIDs(g graph.Graph) []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func TestVisibleCommand(t *testing.T) {
	path := forumFile(t)

	tests := []struct {
		name      string
		args      []string
		wantNodes []string
		wantLinks int
	}{
		{
			name:      "depth one",
			args:      []string{"--depth", "1"},
			wantNodes: []string{"srvr-1", "cat-1", "cat-2"},
			wantLinks: 2,
		},
		{
			name:      "collapsed root",
			args:      []string{"--collapse", "srvr-1"},
			wantNodes: []string{"srvr-1"},
			wantLinks: 0,
		},
		{
			name:      "subtree root",
			args:      []string{"--root", "chnl-2-1", "--depth", "1"},
			wantNodes: []string{"chnl-2-1", "thd-2-1-1", "thd-2-1-2"},
			wantLinks: 2,
		},
		{
			name:      "unknown collapse id ignored",
			args:      []string{"--depth", "1", "--collapse", "nope"},
			wantNodes: []string{"srvr-1", "cat-1", "cat-2"},
			wantLinks: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCLI(t, append([]string{"visible", path}, tt.args...)...)
			if err != nil {
				t.Fatalf("visible error: %v", err)
			}
			g, err := graph.UnmarshalGraph([]byte(out))
			if err != nil {
				t.Fatalf("output is not a graph: %v", err)
			}
			if got := nodeIDs(g); !reflect.DeepEqual(got, tt.wantNodes) {
				t.Errorf("nodes = %v, want %v", got, tt.wantNodes)
			}
			if g.LinkCount() != tt.wantLinks {
				t.Errorf("links = %d, want %d", g.LinkCount(), tt.wantLinks)
			}
		})
	}
}

func TestVisibleCommandUnknownRoot(t *testing.T) {
	_, _, err := runCLI(t, "visible", forumFile(t), "--root", "missing")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestVisibleCommandOutputFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "top.json")
	_, status, err := runCLI(t, "visible", forumFile(t), "--depth", "1", "-o", out)
	if err != nil {
		t.Fatalf("visible error: %v", err)
	}
	g, err := graph.ReadGraphFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if g.NodeCount() != 3 {
		t.Errorf("nodes = %d, want 3", g.NodeCount())
	}
	if !strings.Contains(status, "28 hidden") {
		t.Errorf("status %q should report 28 hidden nodes", status)
	}
}

func TestRenderCommandDOT(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := forumFile(t)
	out := filepath.Join(t.TempDir(), "forum.dot")

	_, status, err := runCLI(t, "render", path, "--dot", "--depth", "2", "-o", out)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	dot := string(data)
	for _, want := range []string{"digraph", `"srvr-1" -> "cat-1"`, `"chnl-1-1"`} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q", want)
		}
	}
	if strings.Contains(dot, `"thd-1-1-1"`) {
		t.Error("DOT output should not contain nodes below collapsed channels")
	}
	if !strings.Contains(status, iconFresh) {
		t.Errorf("first render status %q should be fresh", status)
	}

	_, status, err = runCLI(t, "render", path, "--dot", "--depth", "2", "-o", out)
	if err != nil {
		t.Fatalf("second render error: %v", err)
	}
	if !strings.Contains(status, iconCached) {
		t.Errorf("second render status %q should be cached", status)
	}
}

func TestRenderCommandBadFormat(t *testing.T) {
	_, _, err := runCLI(t, "render", forumFile(t), "--format", "png")
	if err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}

func TestRenderCommandBadConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "display.toml")
	if err := os.WriteFile(cfg, []byte("node_size = 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCLI(t, "render", forumFile(t), "--dot", "--config", cfg)
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}

func TestGenerateCommand(t *testing.T) {
	out, _, err := runCLI(t, "generate", "--categories", "1", "--channels", "1", "--threads", "1", "--messages", "3")
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	g, err := graph.UnmarshalGraph([]byte(out))
	if err != nil {
		t.Fatalf("output is not a graph: %v", err)
	}
	if g.NodeCount() != 7 || g.LinkCount() != 6 {
		t.Errorf("got %d nodes, %d links; want 7, 6", g.NodeCount(), g.LinkCount())
	}
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	_, status, err := runCLI(t, "import", forumFile(t), "--dir", dir, "--name", "demo")
	if err != nil {
		t.Fatalf("import error: %v", err)
	}
	if !strings.Contains(status, "demo") {
		t.Errorf("status %q should name the graph", status)
	}

	s, err := store.NewDirStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	g, err := s.Load(context.Background(), "demo")
	if err != nil {
		t.Fatalf("Load(demo) error: %v", err)
	}
	if g.NodeCount() != 31 {
		t.Errorf("imported %d nodes, want 31", g.NodeCount())
	}
}

func TestImportCommandBadName(t *testing.T) {
	_, _, err := runCLI(t, "import", forumFile(t), "--dir", t.TempDir(), "--name", "../escape")
	if !errors.Is(err, errors.ErrCodeInvalidName) {
		t.Errorf("err = %v, want INVALID_NAME", err)
	}
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	out, _, err := runCLI(t, "config")
	if err != nil {
		t.Fatalf("config error: %v", err)
	}
	if !strings.HasPrefix(out, "# source: defaults") {
		t.Errorf("output should start with the source comment, got %q", out)
	}

	var got display.Config
	if _, err := toml.Decode(out, &got); err != nil {
		t.Fatalf("output is not TOML: %v", err)
	}
	if !reflect.DeepEqual(got, display.Default()) {
		t.Errorf("config = %+v, want defaults", got)
	}
}

func TestConfigCommandFromConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	dir := filepath.Join(home, appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte("node_size = 2.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, "config")
	if err != nil {
		t.Fatalf("config error: %v", err)
	}
	var got display.Config
	if _, err := toml.Decode(out, &got); err != nil {
		t.Fatalf("output is not TOML: %v", err)
	}
	if got.NodeSize != 2.5 {
		t.Errorf("NodeSize = %v, want 2.5", got.NodeSize)
	}
}

func TestCachePathCommand(t *testing.T) {
	cacheHome := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheHome)

	out, _, err := runCLI(t, "cache", "path")
	if err != nil {
		t.Fatalf("cache path error: %v", err)
	}
	if want := filepath.Join(cacheHome, appName); strings.TrimSpace(out) != want {
		t.Errorf("cache path = %q, want %q", strings.TrimSpace(out), want)
	}
}

func TestCacheInfoAndPrune(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, status, err := runCLI(t, "cache", "info")
	if err != nil || !strings.Contains(status, "Cache is empty") {
		t.Fatalf("empty cache info = %q, %v", status, err)
	}

	if _, _, err := runCLI(t, "render", forumFile(t), "--dot", "-o", filepath.Join(t.TempDir(), "f.dot")); err != nil {
		t.Fatal(err)
	}
	_, status, err = runCLI(t, "cache", "info")
	if err != nil {
		t.Fatalf("cache info error: %v", err)
	}
	if want := buildinfo.Version + "/render/dot"; !strings.Contains(status, want) || !strings.Contains(status, "1 entries") {
		t.Errorf("cache info = %q, want one entry under %s", status, want)
	}

	_, status, err = runCLI(t, "cache", "prune")
	if err != nil || !strings.Contains(status, "Pruned 0") {
		t.Errorf("cache prune = %q, %v", status, err)
	}
}

func TestCompleteNodeIDs(t *testing.T) {
	path := forumFile(t)

	got, directive := completeNodeIDs(nil, []string{path}, "cat-")
	want := []string{"cat-1\tcategory", "cat-2\tcategory"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("completeNodeIDs(cat-) = %q, want %q", got, want)
	}
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("directive = %v", directive)
	}

	if got, _ := completeNodeIDs(nil, nil, ""); got != nil {
		t.Errorf("without a graph file = %q, want none", got)
	}
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := runCLI(t, "completion", "bash")
	if err != nil {
		t.Fatalf("completion error: %v", err)
	}
	if !strings.Contains(out, "__start_"+appName) {
		t.Errorf("bash completion missing start function:\n%.200s", out)
	}
	if _, _, err := runCLI(t, "completion", "tcsh"); err == nil {
		t.Error("unsupported shell should fail")
	}
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1536, "1.5 KiB"},
		{3 << 20, "3.0 MiB"},
	}
	for _, tt := range tests {
		if got := humanBytes(tt.n); got != tt.want {
			t.Errorf("humanBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestImportCommandFromServer(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "server_data.json")
	data := `{"id": 7, "name": "Lab",
	  "categories": {"1": {"id": 1, "name": "Help", "ai_analysis": {"tags": "#gpu"},
	    "channels": {
	      "2": {"id": 2, "name": "questions", "ai_analysis": {"tags": "#gpu, #cuda"}},
	      "3": {"id": 3, "name": "bot-playground"}}}}}`
	if err := os.WriteFile(dump, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	if _, _, err := runCLI(t, "import", dump, "--from-server", "--dir", dir, "--name", "lab"); err != nil {
		t.Fatalf("import error: %v", err)
	}
	s, err := store.NewDirStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	g, err := s.Load(context.Background(), "lab")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"server-7", "tag-gpu", "tag-cuda", "category-1", "channel-2"}
	if got := nodeIDs(g); !reflect.DeepEqual(got, want) {
		t.Errorf("nodes = %v, want %v", got, want)
	}

	if _, _, err := runCLI(t, "import", forumFile(t), "--from-server", "--dir", dir); err == nil {
		t.Error("a graph file is not a server dump")
	}
}
