// Package citations extracts reference lists from paper PDFs, parses them
// into structured citations, and links them to papers in the library.
package citations

import (
	"regexp"
	"strings"
)

const (
	// minReferenceLen filters out fragments too short to be a reference.
	minReferenceLen = 20

	// maxReferenceLen filters out run-on blocks where splitting failed.
	maxReferenceLen = 800

	// maxReferences caps how many entries a single paper can yield.
	maxReferences = 300
)

// headingRe matches a reference-section heading on its own line, with an
// optional section number ("7 References", "VII. Bibliography").
var headingRe = regexp.MustCompile(`(?mi)^\s*(?:[0-9ivxl]+\.?\s+)?(references|bibliography|works cited|literature cited)\s*$`)

// bracketMarkerRe matches numbered entries like "[12] Authors ...".
var bracketMarkerRe = regexp.MustCompile(`(?m)^\s*\[\d+\]\s*`)

// dotMarkerRe matches numbered entries like "12. Authors ...".
var dotMarkerRe = regexp.MustCompile(`(?m)^\s*\d{1,3}\.\s+`)

// authorStartRe matches the start of an unnumbered entry in
// "Lastname, I." or "Lastname I" form.
var authorStartRe = regexp.MustCompile(`^[A-Z][A-Za-z'-]+,?\s+[A-Z]`)

// FindReferenceSection locates the references/bibliography section in
// extracted PDF text and returns its body. The last matching heading wins
// since papers occasionally mention "References" in prose before the real
// section. Returns "" when no heading is found.
func FindReferenceSection(text string) string {
	matches := headingRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return ""
	}

	last := matches[len(matches)-1]
	section := text[last[1]:]

	// Stop at a trailing appendix or acknowledgments heading if one follows.
	if idx := trailingSectionRe.FindStringIndex(section); idx != nil {
		section = section[:idx[0]]
	}
	return strings.TrimSpace(section)
}

// trailingSectionRe matches headings of sections that commonly follow the
// references.
var trailingSectionRe = regexp.MustCompile(`(?mi)^\s*(appendix|appendices|acknowledg(e)?ments|supplementary materials?)\b`)

// SplitReferences breaks a reference section into individual reference
// strings. Numbered markers ("[1]", "1.") are used when the section has
// enough of them; otherwise entries are detected by author-like line starts
// with hanging continuation lines merged into the current entry.
func SplitReferences(section string) []string {
	if strings.TrimSpace(section) == "" {
		return nil
	}

	var parts []string
	switch {
	case len(bracketMarkerRe.FindAllStringIndex(section, -1)) >= 3:
		parts = splitAtMarkers(section, bracketMarkerRe)
	case len(dotMarkerRe.FindAllStringIndex(section, -1)) >= 3:
		parts = splitAtMarkers(section, dotMarkerRe)
	default:
		parts = splitByAuthorStarts(section)
	}

	refs := make([]string, 0, len(parts))
	for _, part := range parts {
		ref := strings.Join(strings.Fields(part), " ")
		if len(ref) < minReferenceLen || len(ref) > maxReferenceLen {
			continue
		}
		refs = append(refs, ref)
		if len(refs) >= maxReferences {
			break
		}
	}
	return refs
}

// splitAtMarkers splits the section at every marker match, dropping the
// markers themselves.
func splitAtMarkers(section string, marker *regexp.Regexp) []string {
	indices := marker.FindAllStringIndex(section, -1)
	parts := make([]string, 0, len(indices))
	for i, idx := range indices {
		end := len(section)
		if i+1 < len(indices) {
			end = indices[i+1][0]
		}
		parts = append(parts, section[idx[1]:end])
	}
	return parts
}

// splitByAuthorStarts handles unnumbered bibliographies: a line that looks
// like an author list starts a new entry, and other lines continue the
// current one.
func splitByAuthorStarts(section string) []string {
	var parts []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}

	for _, line := range strings.Split(section, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}

		if authorStartRe.MatchString(trimmed) && current.Len() > minReferenceLen {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(trimmed)
	}
	flush()

	return parts
}
