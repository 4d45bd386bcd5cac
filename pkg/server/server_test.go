package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/forumgraph/pkg/buildinfo"
	"github.com/matzehuels/forumgraph/pkg/display"
	"github.com/matzehuels/forumgraph/pkg/errors"
	"github.com/matzehuels/forumgraph/pkg/generate"
	"github.com/matzehuels/forumgraph/pkg/graph"
	"github.com/matzehuels/forumgraph/pkg/observability"
	"github.com/matzehuels/forumgraph/pkg/store"
)

// forumNodes is the node count of the default generated forum.
const forumNodes = 31

func newTestServer(t *testing.T) (*Server, *httptest.Server, *store.DirStore) {
	t.Helper()
	dir, err := store.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := dir.Save(context.Background(), "forum", generate.Generate(generate.Options{})); err != nil {
		t.Fatal(err)
	}
	s := New(Config{
		Store:   dir,
		Logger:  log.New(io.Discard),
		Metrics: observability.NewPrometheus(nil),
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s.relayDisplay(ctx)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts, dir
}

func do(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func createView(t *testing.T, ts *httptest.Server, body any) ViewResponse {
	t.Helper()
	resp, data := do(t, "POST", ts.URL+"/api/graphs/forum/views", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create view = %d %s", resp.StatusCode, data)
	}
	return decode[ViewResponse](t, data)
}

func nodeIDs(g graph.Graph) []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func TestHealthAndGraphs(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, data := do(t, "GET", ts.URL+"/healthz", nil)
	if resp.StatusCode != 200 || string(data) != "ok" {
		t.Errorf("healthz = %d %q", resp.StatusCode, data)
	}

	resp, data = do(t, "GET", ts.URL+"/version", nil)
	if info := decode[buildinfo.Info](t, data); resp.StatusCode != 200 || info.Version != buildinfo.Version {
		t.Errorf("version = %d %s", resp.StatusCode, data)
	}

	resp, data = do(t, "GET", ts.URL+"/api/graphs", nil)
	if list := decode[GraphList](t, data); resp.StatusCode != 200 || len(list.Graphs) != 1 || list.Graphs[0] != "forum" {
		t.Errorf("list = %d %s", resp.StatusCode, data)
	}

	resp, data = do(t, "GET", ts.URL+"/api/graphs/forum", nil)
	if g := decode[graph.Graph](t, data); resp.StatusCode != 200 || g.NodeCount() != forumNodes {
		t.Errorf("get graph = %d, %d nodes", resp.StatusCode, g.NodeCount())
	}

	resp, data = do(t, "GET", ts.URL+"/api/graphs/missing", nil)
	if e := decode[errorResponse](t, data); resp.StatusCode != 404 || e.Code != errors.ErrCodeNotFound {
		t.Errorf("missing graph = %d %s", resp.StatusCode, data)
	}
}

func TestCreateView(t *testing.T) {
	_, ts, _ := newTestServer(t)

	v := createView(t, ts, nil)
	if v.View.Root != "srvr-1" || v.Graph.NodeCount() != forumNodes {
		t.Errorf("default view: root %q, %d nodes", v.View.Root, v.Graph.NodeCount())
	}

	v = createView(t, ts, CreateViewRequest{Root: "cat-1"})
	if v.View.Root != "cat-1" || v.Graph.Nodes[0].ID != "cat-1" || v.Graph.NodeCount() != 15 {
		t.Errorf("cat-1 view: %v", nodeIDs(v.Graph))
	}

	depth := 1
	v = createView(t, ts, CreateViewRequest{CollapseDepth: &depth})
	if got := strings.Join(nodeIDs(v.Graph), " "); got != "srvr-1 cat-1 cat-2" {
		t.Errorf("depth-1 view = %s", got)
	}
	if len(v.View.Collapsed) != 2 {
		t.Errorf("depth-1 collapsed = %v", v.View.Collapsed)
	}

	tests := []struct {
		name   string
		url    string
		body   any
		status int
	}{
		{"unknown root", "/api/graphs/forum/views", CreateViewRequest{Root: "nope"}, 404},
		{"unknown graph", "/api/graphs/missing/views", nil, 404},
		{"bad name", "/api/graphs/.hidden/views", nil, 400},
		{"negative depth", "/api/graphs/forum/views", map[string]int{"collapse_depth": -1}, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := do(t, "POST", ts.URL+tt.url, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d: %s", resp.StatusCode, tt.status, data)
			}
		})
	}
}

func TestToggleAndExpand(t *testing.T) {
	_, ts, _ := newTestServer(t)
	v := createView(t, ts, nil)
	base := ts.URL + "/api/views/" + v.View.ID

	resp, data := do(t, "POST", base+"/toggle/cat-1", nil)
	collapsed := decode[ViewResponse](t, data)
	if resp.StatusCode != 200 || collapsed.Graph.NodeCount() != forumNodes-14 {
		t.Fatalf("collapse cat-1 = %d, %d nodes", resp.StatusCode, collapsed.Graph.NodeCount())
	}
	for _, n := range collapsed.Graph.Nodes {
		if strings.HasPrefix(n.ID, "chnl-1-") {
			t.Errorf("descendant %s still visible", n.ID)
		}
		if n.ID == "cat-1" && !n.Collapsed {
			t.Error("cat-1 should be marked collapsed")
		}
	}

	// State persists across reads.
	_, data = do(t, "GET", base, nil)
	if got := decode[ViewResponse](t, data); got.Graph.NodeCount() != forumNodes-14 {
		t.Errorf("GET view = %d nodes", got.Graph.NodeCount())
	}

	_, data = do(t, "POST", base+"/toggle/cat-1", nil)
	if got := decode[ViewResponse](t, data); got.Graph.NodeCount() != forumNodes {
		t.Errorf("re-expand = %d nodes", got.Graph.NodeCount())
	}

	do(t, "POST", base+"/toggle/srvr-1", nil)
	_, data = do(t, "POST", base+"/expand", nil)
	if got := decode[ViewResponse](t, data); got.Graph.NodeCount() != forumNodes || len(got.View.Collapsed) != 0 {
		t.Errorf("expand = %d nodes, collapsed %v", got.Graph.NodeCount(), got.View.Collapsed)
	}

	if resp, _ := do(t, "POST", base+"/toggle/nope", nil); resp.StatusCode != 404 {
		t.Errorf("unknown node = %d", resp.StatusCode)
	}
	if resp, _ := do(t, "GET", ts.URL+"/api/views/not-a-uuid", nil); resp.StatusCode != 404 {
		t.Errorf("unknown view = %d", resp.StatusCode)
	}
}

func TestDisplay(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, data := do(t, "GET", ts.URL+"/api/display", nil)
	if cfg := decode[display.Config](t, data); resp.StatusCode != 200 || cfg != display.Default() {
		t.Errorf("GET display = %d %s", resp.StatusCode, data)
	}

	resp, data = do(t, "PATCH", ts.URL+"/api/display", display.Update{Field: "node_size", Value: 3})
	if cfg := decode[display.Config](t, data); resp.StatusCode != 200 || cfg.NodeSize != 3 {
		t.Errorf("PATCH display = %d %s", resp.StatusCode, data)
	}

	resp, data = do(t, "PATCH", ts.URL+"/api/display", display.Update{Field: "node_size", Value: 40})
	if e := decode[errorResponse](t, data); resp.StatusCode != 422 || e.Code != errors.ErrCodeInvalidConfig {
		t.Errorf("invalid PATCH = %d %s", resp.StatusCode, data)
	}

	req, _ := http.NewRequest("PATCH", ts.URL+"/api/display", strings.NewReader("{"))
	r, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	r.Body.Close()
	if r.StatusCode != 400 {
		t.Errorf("malformed PATCH = %d", r.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, ts, _ := newTestServer(t)
	observability.Register(s.cfg.Metrics)
	defer observability.Reset()

	do(t, "GET", ts.URL+"/api/graphs", nil)
	_, data := do(t, "GET", ts.URL+"/metrics", nil)
	if !strings.Contains(string(data), `forumgraph_http_requests_total{method="GET",route="/api/graphs`) {
		t.Errorf("metrics missing request counter:\n%s", data)
	}
}

// =============================================================================
// WebSocket
// =============================================================================

func dial(t *testing.T, ts *httptest.Server, viewID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/views/" + viewID + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var m Message
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

func TestEvents(t *testing.T) {
	s, ts, _ := newTestServer(t)
	v := createView(t, ts, nil)
	conn := dial(t, ts, v.View.ID)

	first := readMessage(t, conn)
	if first.Type != MessageVisible || first.Graph.NodeCount() != forumNodes {
		t.Fatalf("initial message = %+v", first)
	}

	// HTTP toggle is pushed to the subscriber.
	do(t, "POST", ts.URL+"/api/views/"+v.View.ID+"/toggle/cat-2", nil)
	m := readMessage(t, conn)
	if m.Type != MessageVisible || m.Graph.NodeCount() != forumNodes-14 {
		t.Errorf("after toggle = %s, %d nodes", m.Type, m.Graph.NodeCount())
	}

	// Display changes reach every subscriber.
	do(t, "PATCH", ts.URL+"/api/display", display.Update{Field: "dag_orientation", Value: "lr"})
	m = readMessage(t, conn)
	if m.Type != MessageDisplay || m.Display.DAGOrientation != "lr" || m.Event.Field != "dag_orientation" {
		t.Errorf("display message = %+v", m)
	}

	// Toggle over the socket itself.
	if err := conn.WriteJSON(inbound{Type: "toggle", Node: "cat-2"}); err != nil {
		t.Fatal(err)
	}
	m = readMessage(t, conn)
	if m.Type != MessageVisible || m.Graph.NodeCount() != forumNodes {
		t.Errorf("socket toggle = %s, %d nodes", m.Type, m.Graph.NodeCount())
	}

	if err := conn.WriteJSON(inbound{Type: "toggle", Node: "nope"}); err != nil {
		t.Fatal(err)
	}
	m = readMessage(t, conn)
	if m.Type != MessageError || m.Error.Code != errors.ErrCodeNotFound {
		t.Errorf("socket error = %+v", m)
	}

	if s.hub.count() != 1 {
		t.Errorf("hub count = %d", s.hub.count())
	}
}

func TestEventsUnknownView(t *testing.T) {
	_, ts, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/views/00000000-0000-0000-0000-000000000000/events"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial error")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Errorf("status = %v", resp)
	}
}

func TestRefreshGraph(t *testing.T) {
	s, ts, dir := newTestServer(t)
	v := createView(t, ts, nil)
	conn := dial(t, ts, v.View.ID)
	readMessage(t, conn)

	smaller := generate.Generate(generate.Options{Categories: 1, Channels: 1, Threads: 1, Messages: 1})
	if err := dir.Save(context.Background(), "forum", smaller); err != nil {
		t.Fatal(err)
	}
	s.refreshGraph(context.Background(), "forum")

	m := readMessage(t, conn)
	if m.Type != MessageVisible || m.Graph.NodeCount() != smaller.NodeCount() {
		t.Errorf("after refresh = %s, %d nodes", m.Type, m.Graph.NodeCount())
	}
}

func TestDisplayRelay(t *testing.T) {
	s, ts, _ := newTestServer(t)
	v := createView(t, ts, nil)
	conn := dial(t, ts, v.View.ID)
	readMessage(t, conn)

	// Updates applied outside the HTTP handler are relayed too.
	if _, _, err := s.cfg.Display.Apply(display.Update{Field: "particles", Value: 7}); err != nil {
		t.Fatal(err)
	}
	m := readMessage(t, conn)
	if m.Type != MessageDisplay || m.Display.Particles != 7 || m.Event.Field != "particles" {
		t.Errorf("relayed message = %+v", m)
	}
}

func TestToggleInvalidNode(t *testing.T) {
	s, ts, _ := newTestServer(t)
	v := createView(t, ts, nil)

	_, _, err := s.toggle(context.Background(), v.View.ID, "")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("toggle(\"\") = %v, want INVALID_INPUT", err)
	}
	resp, _ := do(t, "POST", ts.URL+"/api/views/"+v.View.ID+"/toggle/cat%01", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("control character node = %d, want 400", resp.StatusCode)
	}
}
