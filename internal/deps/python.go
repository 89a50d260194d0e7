package deps

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/sunprojectca/DocGen/internal/types"
)

// requirementRegex splits "name[extras]==1.2.3" style requirement lines.
var requirementRegex = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)(?:\[[^\]]*\])?\s*([=<>!~]=?.*)?$`)

// parseRequirements parses a pip requirements.txt. Comments, blank lines,
// pip options (-r, --index-url), and environment markers are skipped or
// stripped. Lines that do not look like requirements are ignored rather
// than treated as errors; requirements files are full of local quirks.
func parseRequirements(relPath string, data []byte) ([]types.Dependency, error) {
	var deps []types.Dependency

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		// Strip inline comments and environment markers.
		if idx := strings.Index(line, " #"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if idx := strings.Index(line, ";"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}

		m := requirementRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		deps = append(deps, types.Dependency{
			Name:      m[1],
			Version:   strings.TrimSpace(m[2]),
			Ecosystem: types.EcosystemPyPI,
			Manifest:  relPath,
		})
	}
	return deps, scanner.Err()
}

// pyprojectDepRegex matches quoted requirement strings inside pyproject
// dependency arrays, e.g. "requests>=2.31".
var pyprojectDepRegex = regexp.MustCompile(`["']([A-Za-z0-9][A-Za-z0-9._-]*)(?:\[[^\]]*\])?\s*([=<>!~][^"']*)?["']`)

// parsePyProject extracts the [project] dependencies array from a
// pyproject.toml. It is a line scan, not a TOML parse: the array contents
// are quoted requirement strings, which is all the audit needs.
func parsePyProject(relPath string, data []byte) ([]types.Dependency, error) {
	var deps []types.Dependency

	inDeps := false
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, "dependencies"):
			inDeps = strings.Contains(line, "[")
			// Single-line arrays close immediately below.
		case strings.HasPrefix(line, "["):
			// A new TOML table ends the array scope.
			inDeps = false
		}
		if !inDeps {
			continue
		}

		for _, m := range pyprojectDepRegex.FindAllStringSubmatch(line, -1) {
			deps = append(deps, types.Dependency{
				Name:      m[1],
				Version:   strings.TrimSpace(m[2]),
				Ecosystem: types.EcosystemPyPI,
				Manifest:  relPath,
			})
		}
		if strings.Contains(line, "]") {
			inDeps = false
		}
	}
	return deps, scanner.Err()
}
