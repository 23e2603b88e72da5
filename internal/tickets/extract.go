// Package tickets finds issue tracker references in free text.
package tickets

import (
	"regexp"
	"sort"
)

// referencePattern matches keys such as "PROJ-123". It is case-sensitive:
// "proj-123" is not a reference.
var referencePattern = regexp.MustCompile(`\b[A-Z]+-\d+\b`)

// Extract returns the distinct ticket references found in text.
// The result is sorted and never nil; text without references yields
// an empty slice.
func Extract(text string) []string {
	found := make(map[string]struct{})
	for _, match := range referencePattern.FindAllString(text, -1) {
		found[match] = struct{}{}
	}

	refs := make([]string, 0, len(found))
	for ref := range found {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}
