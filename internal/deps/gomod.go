package deps

import (
	"fmt"

	"golang.org/x/mod/modfile"

	"github.com/sunprojectca/DocGen/internal/types"
)

// parseGoMod extracts require entries from a go.mod file.
func parseGoMod(relPath string, data []byte) ([]types.Dependency, error) {
	f, err := modfile.Parse(relPath, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse go.mod: %w", err)
	}

	deps := make([]types.Dependency, 0, len(f.Require))
	for _, req := range f.Require {
		deps = append(deps, types.Dependency{
			Name:      req.Mod.Path,
			Version:   req.Mod.Version,
			Ecosystem: types.EcosystemGo,
			Indirect:  req.Indirect,
			Manifest:  relPath,
		})
	}
	return deps, nil
}
