package metadata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"portforge/graph"
)

// FixtureQuerier loads pre-captured `make -V` output from testdata files
// instead of invoking make, so resolver and graph tests run without a
// real ports tree.
//
// Fixture filenames use the pattern category__name.txt or
// category__name@flavor.txt.
type FixtureQuerier struct {
	fixtures map[string]string // PortId.String() -> fixture path
}

// NewFixtureQuerier loads every *.txt fixture from dir.
func NewFixtureQuerier(dir string) (*FixtureQuerier, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read fixture dir: %w", err)
	}

	fixtures := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".txt")
		parts := strings.SplitN(name, "__", 2)
		if len(parts) != 2 {
			continue
		}
		key := parts[0] + "/" + strings.Replace(parts[1], "@", "@", 1)
		fixtures[key] = filepath.Join(dir, entry.Name())
	}
	return &FixtureQuerier{fixtures: fixtures}, nil
}

func (f *FixtureQuerier) Query(ctx context.Context, id graph.PortId, portsDir string) (Metadata, error) {
	fixturePath, ok := f.fixtures[id.String()]
	if !ok {
		return Metadata{}, &PortNotFoundError{PortSpec: id.String(), Path: portsDir}
	}
	data, err := os.ReadFile(fixturePath)
	if err != nil {
		return Metadata{}, fmt.Errorf("load fixture %s: %w", fixturePath, err)
	}
	return parseQueryOutput(string(data))
}
