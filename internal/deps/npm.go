package deps

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sunprojectca/DocGen/internal/types"
)

// packageJSON is the subset of package.json we care about.
type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// parsePackageJSON extracts dependencies and devDependencies. Dev deps are
// marked indirect: they never ship, which is the distinction the audit
// cares about.
func parsePackageJSON(relPath string, data []byte) ([]types.Dependency, error) {
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse package.json: %w", err)
	}

	var deps []types.Dependency
	for name, version := range pkg.Dependencies {
		deps = append(deps, types.Dependency{
			Name:      name,
			Version:   version,
			Ecosystem: types.EcosystemNPM,
			Manifest:  relPath,
		})
	}
	for name, version := range pkg.DevDependencies {
		deps = append(deps, types.Dependency{
			Name:      name,
			Version:   version,
			Ecosystem: types.EcosystemNPM,
			Indirect:  true,
			Manifest:  relPath,
		})
	}

	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
	return deps, nil
}
