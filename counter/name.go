package counter

import "strings"

// NormalizeName turns a path-like identifier into a registry key:
// "/testing/1" and "testing/1" both become "testing_1".
func NormalizeName(identifier string) string {
	name := strings.ReplaceAll(identifier, "/", " ")
	name = strings.TrimSpace(name)
	return strings.ReplaceAll(name, " ", "_")
}
