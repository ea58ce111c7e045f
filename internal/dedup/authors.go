package dedup

import (
	"strings"
	"unicode"
)

// NormalizeName normalizes an author name for comparison:
//   - Converts to lowercase
//   - Detects and reorders "Last, First" format to "First Last"
//   - Removes all non-letter, non-space characters (apostrophes, periods,
//     hyphens, etc.)
//   - Collapses multiple spaces to a single space
//   - Trims leading and trailing whitespace
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	name = strings.ToLower(name)

	// Handle "Last, First" format: split on comma, swap parts.
	if idx := strings.Index(name, ","); idx >= 0 {
		last := strings.TrimSpace(name[:idx])
		first := strings.TrimSpace(name[idx+1:])
		if first != "" {
			name = first + " " + last
		} else {
			name = last
		}
	}

	var sb strings.Builder
	sb.Grow(len(name))
	prevSpace := false

	for _, r := range name {
		if unicode.IsLetter(r) {
			sb.WriteRune(r)
			prevSpace = false
		} else if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteRune(' ')
				prevSpace = true
			}
		}
		// All other characters (apostrophes, periods, hyphens) are dropped.
	}

	return strings.TrimRight(sb.String(), " ")
}

// LastName extracts the normalized last name from an author name. The last
// token of the normalized form is taken as the last name, which also
// handles "Last, First" inputs via NormalizeName's reordering.
func LastName(name string) string {
	normalized := NormalizeName(name)
	if normalized == "" {
		return ""
	}
	parts := strings.Fields(normalized)
	return parts[len(parts)-1]
}

// LastNames extracts normalized last names from up to n authors. Empty
// names are skipped. If n <= 0, all authors are considered.
func LastNames(authors []string, n int) []string {
	if n <= 0 || n > len(authors) {
		n = len(authors)
	}

	names := make([]string, 0, n)
	for _, author := range authors[:n] {
		if ln := LastName(author); ln != "" {
			names = append(names, ln)
		}
	}
	return names
}

// SharedAuthor reports whether any normalized last name appears in both
// author lists.
func SharedAuthor(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}

	set := make(map[string]struct{}, len(a))
	for _, name := range a {
		if ln := LastName(name); ln != "" {
			set[ln] = struct{}{}
		}
	}
	for _, name := range b {
		if ln := LastName(name); ln != "" {
			if _, ok := set[ln]; ok {
				return true
			}
		}
	}
	return false
}

// SharedName reports whether any full normalized author name appears in
// both lists. Unlike SharedAuthor, a common surname alone is not enough;
// the entire name must agree after normalization.
func SharedName(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}

	set := make(map[string]struct{}, len(a))
	for _, name := range a {
		if n := NormalizeName(name); n != "" {
			set[n] = struct{}{}
		}
	}
	for _, name := range b {
		if n := NormalizeName(name); n != "" {
			if _, ok := set[n]; ok {
				return true
			}
		}
	}
	return false
}
