// Package llm provides LLM-backed parsing of bibliographic reference
// strings and result summarization.
//
// This package defines the abstractions and prompt engineering required to
// turn raw reference strings extracted from PDF bibliographies into
// structured citations, and to summarize multi-source search results, using
// large language models (OpenAI, Anthropic).
//
// Example usage:
//
//	parser := llm.NewOpenAIProvider(cfg, 0.0, 60*time.Second, 3)
//	citations, err := parser.ParseCitations(ctx, refs)
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blackprince001/papertrail/internal/domain"
)

// CitationParser parses raw reference strings into structured citations.
//
// Implementations should handle provider-specific API calls, response
// parsing, and error handling while conforming to this unified interface.
type CitationParser interface {
	// ParseCitations parses a batch of reference strings. The returned
	// slice contains only citations with a non-empty title; entries the
	// model could not parse are dropped. Unparseable model output returns
	// a *ParseError.
	ParseCitations(ctx context.Context, references []string) ([]domain.ParsedCitation, error)

	// Provider returns the name of the LLM provider (e.g. "openai",
	// "anthropic").
	Provider() string

	// Model returns the model identifier being used.
	Model() string
}

// Summarizer produces a short prose summary of a search result set.
type Summarizer interface {
	// Summarize returns a few sentences characterizing the result set for
	// the given query.
	Summarize(ctx context.Context, query string, titles []string) (string, error)
}

// BuildCitationPrompt builds the system and user prompts for citation
// parsing. The system prompt pins the response to a strict JSON array
// schema; the user prompt carries the numbered reference strings.
func BuildCitationPrompt(references []string) (systemPrompt, userPrompt string) {
	var sys strings.Builder
	sys.WriteString("You are a bibliographic reference parser. You convert raw ")
	sys.WriteString("reference strings from academic paper bibliographies into ")
	sys.WriteString("structured records.\n\n")
	sys.WriteString("You MUST respond with a valid JSON array, one object per input ")
	sys.WriteString("reference, in exactly this format:\n")
	sys.WriteString(`[{"title": "...", "authors": ["Last, First"], "year": 2020, "journal": "...", "doi": "...", "volume": "...", "issue": "...", "pages": "..."}]`)
	sys.WriteString("\n\n")
	sys.WriteString("Rules:\n")
	sys.WriteString("1. \"title\" is required; omit a reference you cannot extract a title from.\n")
	sys.WriteString("2. Omit fields you cannot determine rather than guessing.\n")
	sys.WriteString("3. Strip any \"doi:\" or \"https://doi.org/\" prefix from DOIs.\n")
	sys.WriteString("4. \"year\" must be a four-digit integer.\n")
	sys.WriteString("5. Respond with the JSON array only, no commentary and no code fences.\n")

	var usr strings.Builder
	usr.WriteString("Parse the following reference strings:\n\n")
	for i, ref := range references {
		fmt.Fprintf(&usr, "%d. %s\n", i+1, strings.TrimSpace(ref))
	}

	return sys.String(), usr.String()
}

// BuildSummaryPrompt builds the system and user prompts for result
// summarization.
func BuildSummaryPrompt(query string, titles []string) (systemPrompt, userPrompt string) {
	systemPrompt = "You are a research librarian. Summarize a set of paper titles " +
		"retrieved for a literature search in 2-3 sentences: the main themes, " +
		"notable clusters, and how well they cover the query. Respond with " +
		"plain prose only."

	var usr strings.Builder
	fmt.Fprintf(&usr, "Search query: %s\n\nRetrieved titles:\n", query)
	for _, title := range titles {
		usr.WriteString("- ")
		usr.WriteString(title)
		usr.WriteByte('\n')
	}

	return systemPrompt, usr.String()
}

// parseCitationsContent decodes model output into parsed citations. Models
// occasionally wrap the array in markdown fences despite instructions, so
// fences are stripped before decoding. Output that still is not a JSON
// array produces a *ParseError; citations without a title are dropped and
// DOI prefixes are normalized away.
func parseCitationsContent(provider, content string) ([]domain.ParsedCitation, error) {
	content = stripCodeFences(content)

	// Tolerate leading prose by starting at the first bracket.
	if idx := strings.IndexByte(content, '['); idx > 0 {
		content = content[idx:]
	}

	var parsed []domain.ParsedCitation
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, &ParseError{Provider: provider, Output: content, Cause: err}
	}

	citations := make([]domain.ParsedCitation, 0, len(parsed))
	for _, c := range parsed {
		c.Title = strings.TrimSpace(c.Title)
		if c.Title == "" {
			continue
		}
		if c.DOI != "" {
			c.DOI = domain.NormalizeDOI(c.DOI)
		}
		citations = append(citations, c)
	}
	return citations, nil
}

// stripCodeFences removes a surrounding markdown code fence, with or
// without a language tag.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop the language tag line ("json").
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
