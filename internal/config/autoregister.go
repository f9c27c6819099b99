package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveAutoRegisterPaths expands autoRegisterPaths entries into concrete
// directories to test cwd against, per spec §6's "~ and * / /* wildcard
// semantics":
//   - a leading "~" expands to homeDir.
//   - a trailing "/*" matches any immediate child directory of the parent.
//   - a trailing "*" (no slash) matches any sibling whose name shares the
//     given prefix.
// Entries without either wildcard are returned as-is (after "~" expansion).
func ResolveAutoRegisterPaths(patterns []string, homeDir string) []string {
	var out []string
	for _, p := range patterns {
		if strings.HasPrefix(p, "~") {
			p = filepath.Join(homeDir, strings.TrimPrefix(p, "~"))
		}

		switch {
		case strings.HasSuffix(p, "/*"):
			parent := strings.TrimSuffix(p, "/*")
			entries, err := os.ReadDir(parent)
			if err != nil {
				continue
			}
			for _, e := range entries {
				if e.IsDir() {
					out = append(out, filepath.Join(parent, e.Name()))
				}
			}
		case strings.HasSuffix(p, "*"):
			prefix := strings.TrimSuffix(p, "*")
			parent := filepath.Dir(prefix)
			want := filepath.Base(prefix)
			entries, err := os.ReadDir(parent)
			if err != nil {
				continue
			}
			for _, e := range entries {
				if e.IsDir() && strings.HasPrefix(e.Name(), want) {
					out = append(out, filepath.Join(parent, e.Name()))
				}
			}
		default:
			out = append(out, p)
		}
	}
	return out
}

// MatchesAutoRegister reports whether cwd falls under (or equals) one of the
// resolved auto-register directories.
func MatchesAutoRegister(cwd string, resolved []string) bool {
	cwd = filepath.Clean(cwd)
	for _, dir := range resolved {
		dir = filepath.Clean(dir)
		if cwd == dir || strings.HasPrefix(cwd, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
