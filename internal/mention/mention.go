// Package mention finds @handle references in free text.
package mention

import "regexp"

var handlePattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)

// Extract returns the distinct handles referenced in text, without the leading
// '@', in the order they first appear. Handles keep the case they were typed
// in; "@Bob" and "@bob" are reported separately. The result is never nil.
func Extract(text string) []string {
	handles := []string{}
	if text == "" {
		return handles
	}
	seen := make(map[string]struct{})
	for _, m := range handlePattern.FindAllStringSubmatch(text, -1) {
		h := m[1]
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		handles = append(handles, h)
	}
	return handles
}
