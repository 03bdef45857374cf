package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var migrationFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

// ValidateDir checks that all files in the migrations directory follow the
// expected naming convention and that no two migrations share a version.
func ValidateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir %q: %w", dir, err)
	}

	seen := map[string]string{}
	var problems []string

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := migrationFileRe.FindStringSubmatch(name)
		if m == nil {
			problems = append(problems, fmt.Sprintf("%s: does not match <version>_<name>.sql", name))
			continue
		}
		version := m[1]
		if prev, ok := seen[version]; ok {
			problems = append(problems, fmt.Sprintf("%s: duplicate version with %s", name, prev))
			continue
		}
		seen[version] = name

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		content := string(data)
		if !strings.Contains(content, "-- +goose Up") {
			problems = append(problems, fmt.Sprintf("%s: missing '-- +goose Up' directive", name))
		}
		if !strings.Contains(content, "-- +goose Down") {
			problems = append(problems, fmt.Sprintf("%s: missing '-- +goose Down' directive", name))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("invalid migrations in %s:\n  %s", dir, strings.Join(problems, "\n  "))
	}
	return nil
}
