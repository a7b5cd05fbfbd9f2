package cli

import (
	"regexp"
	"strings"
)

var (
	slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	slugTrimDash = regexp.MustCompile(`^-+|-+$`)
)

// slugify derives a URL-safe library slug from its display name: lowercase,
// runs of non-alphanumerics collapsed to a single dash, leading/trailing
// dashes trimmed.
func slugify(name string) string {
	s := slugNonAlnum.ReplaceAllString(strings.ToLower(name), "-")
	return slugTrimDash.ReplaceAllString(s, "")
}
