package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/forumgraph/pkg/errors"
	"github.com/matzehuels/forumgraph/pkg/graph"
)

const graphExt = ".json"

// DirStore keeps each graph in "<dir>/<name>.json".
type DirStore struct {
	dir string
}

// NewDirStore opens dir, creating it if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create graph dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *DirStore) Dir() string { return s.dir }

// Path returns the file that holds name.
func (s *DirStore) Path(name string) string {
	return filepath.Join(s.dir, name+graphExt)
}

// NameFromPath returns the graph name stored at path, if path is a graph
// file directly inside the store directory.
func (s *DirStore) NameFromPath(path string) (string, bool) {
	if filepath.Clean(filepath.Dir(path)) != filepath.Clean(s.dir) {
		return "", false
	}
	base := filepath.Base(path)
	if filepath.Ext(base) != graphExt {
		return "", false
	}
	name := strings.TrimSuffix(base, graphExt)
	if errors.ValidateGraphName(name) != nil {
		return "", false
	}
	return name, true
}

func (s *DirStore) Load(ctx context.Context, name string) (graph.Graph, error) {
	if err := errors.ValidateGraphName(name); err != nil {
		return graph.Graph{}, err
	}
	path := s.Path(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return graph.Graph{}, errors.New(errors.ErrCodeNotFound, "graph %q not found", name)
	}
	g, err := graph.ReadGraphFile(path)
	if err != nil {
		return graph.Graph{}, fmt.Errorf("load %s: %w", name, err)
	}
	return g, nil
}

func (s *DirStore) Save(ctx context.Context, name string, g graph.Graph) error {
	if err := errors.ValidateGraphName(name); err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return err
	}
	// Write then rename so watchers never observe a half-written file.
	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())
	if err := graph.WriteGraph(g, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(name)); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

func (s *DirStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list graphs: %w", err)
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := s.NameFromPath(filepath.Join(s.dir, e.Name())); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *DirStore) Delete(ctx context.Context, name string) error {
	if err := errors.ValidateGraphName(name); err != nil {
		return err
	}
	err := os.Remove(s.Path(name))
	if os.IsNotExist(err) {
		return errors.New(errors.ErrCodeNotFound, "graph %q not found", name)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func (s *DirStore) Close(ctx context.Context) error { return nil }

var _ Store = (*DirStore)(nil)
