// Package dedup removes duplicate records from multi-source search results
// using normalized identifier and title keys, and provides author name
// normalization helpers used by identity matching.
package dedup

import (
	"strings"
	"unicode"

	"github.com/blackprince001/papertrail/internal/domain"
)

// Deduplicate collapses records describing the same work into a single
// record. Records are processed in order; the first occurrence of a work
// wins and later duplicates are dropped, so callers should order the input
// by source preference before calling.
//
// A record is a duplicate when its normalized DOI (if it has one) or its
// normalized title has already been seen. The DOI key is checked first, but
// a kept record claims both keys, so a DOI-less record whose title matches
// an earlier DOI-bearing record is still dropped.
//
// Returns the surviving records and the number dropped.
func Deduplicate(records []*domain.Record) ([]*domain.Record, int) {
	if len(records) == 0 {
		return nil, 0
	}

	seenDOI := make(map[string]struct{})
	seenTitle := make(map[string]struct{})

	unique := make([]*domain.Record, 0, len(records))
	duplicates := 0

	for _, rec := range records {
		if rec == nil {
			continue
		}

		doiKey := ""
		if rec.HasDOI() {
			doiKey = domain.NormalizeDOI(rec.DOI)
		}
		titleKey := NormalizeTitle(rec.Title)

		isDuplicate := false
		if doiKey != "" {
			if _, ok := seenDOI[doiKey]; ok {
				isDuplicate = true
			}
		}
		if !isDuplicate && titleKey != "" {
			if _, ok := seenTitle[titleKey]; ok {
				isDuplicate = true
			}
		}

		if isDuplicate {
			duplicates++
			continue
		}

		if doiKey != "" {
			seenDOI[doiKey] = struct{}{}
		}
		if titleKey != "" {
			seenTitle[titleKey] = struct{}{}
		}
		unique = append(unique, rec)
	}

	return unique, duplicates
}

// NormalizeTitle canonicalizes a title for comparison: lowercase, all
// punctuation and symbols removed, whitespace collapsed to single spaces.
func NormalizeTitle(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(title))
	prevSpace := false

	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteRune(' ')
				prevSpace = true
			}
		}
		// Punctuation and symbols are dropped without inserting a space.
	}

	return strings.TrimRight(sb.String(), " ")
}
