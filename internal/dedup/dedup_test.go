package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackprince001/papertrail/internal/domain"
)

func rec(source domain.SourceType, title, doi string) *domain.Record {
	return &domain.Record{
		Source:     source,
		ExternalID: string(source) + ":" + title,
		Title:      title,
		DOI:        doi,
	}
}

func TestDeduplicate(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		unique, dropped := Deduplicate(nil)
		assert.Nil(t, unique)
		assert.Zero(t, dropped)
	})

	t.Run("no duplicates", func(t *testing.T) {
		records := []*domain.Record{
			rec(domain.SourceTypeSemanticScholar, "Attention Is All You Need", "10.5555/3295222"),
			rec(domain.SourceTypeArXiv, "Deep Residual Learning", ""),
		}

		unique, dropped := Deduplicate(records)
		assert.Len(t, unique, 2)
		assert.Zero(t, dropped)
	})

	t.Run("same DOI across sources", func(t *testing.T) {
		records := []*domain.Record{
			rec(domain.SourceTypeSemanticScholar, "Attention Is All You Need", "10.5555/3295222"),
			rec(domain.SourceTypeOpenAlex, "Attention is all you need.", "https://doi.org/10.5555/3295222"),
		}

		unique, dropped := Deduplicate(records)
		require.Len(t, unique, 1)
		assert.Equal(t, 1, dropped)
		// First occurrence wins.
		assert.Equal(t, domain.SourceTypeSemanticScholar, unique[0].Source)
	})

	t.Run("same normalized title without DOI", func(t *testing.T) {
		records := []*domain.Record{
			rec(domain.SourceTypeArXiv, "BERT: Pre-training of Deep Bidirectional Transformers", ""),
			rec(domain.SourceTypePubMed, "bert pre-training of deep bidirectional transformers", ""),
		}

		unique, dropped := Deduplicate(records)
		assert.Len(t, unique, 1)
		assert.Equal(t, 1, dropped)
	})

	t.Run("DOI-less record matches earlier DOI-bearing record by title", func(t *testing.T) {
		records := []*domain.Record{
			rec(domain.SourceTypeSemanticScholar, "Attention Is All You Need", "10.5555/3295222"),
			rec(domain.SourceTypeArXiv, "Attention Is All You Need", ""),
		}

		unique, dropped := Deduplicate(records)
		assert.Len(t, unique, 1)
		assert.Equal(t, 1, dropped)
	})

	t.Run("different DOIs with same title are still duplicates by title", func(t *testing.T) {
		// Preprint and published versions share a title but not a DOI; the
		// title key collapses them.
		records := []*domain.Record{
			rec(domain.SourceTypeSemanticScholar, "Language Models are Few-Shot Learners", "10.1000/a"),
			rec(domain.SourceTypeOpenAlex, "Language Models are Few-Shot Learners", "10.1000/b"),
		}

		unique, dropped := Deduplicate(records)
		assert.Len(t, unique, 1)
		assert.Equal(t, 1, dropped)
	})

	t.Run("nil records are skipped", func(t *testing.T) {
		records := []*domain.Record{
			nil,
			rec(domain.SourceTypeArXiv, "Some Paper", ""),
			nil,
		}

		unique, dropped := Deduplicate(records)
		assert.Len(t, unique, 1)
		assert.Zero(t, dropped)
	})

	t.Run("output is stable under a second pass", func(t *testing.T) {
		records := []*domain.Record{
			rec(domain.SourceTypeSemanticScholar, "Attention Is All You Need", "10.5555/3295222"),
			rec(domain.SourceTypeOpenAlex, "Attention is all you need.", "https://doi.org/10.5555/3295222"),
			rec(domain.SourceTypeArXiv, "Deep Residual Learning", ""),
			rec(domain.SourceTypePubMed, "deep residual learning", ""),
		}

		unique, dropped := Deduplicate(records)
		require.Len(t, unique, 2)
		assert.Equal(t, 2, dropped)

		again, droppedAgain := Deduplicate(unique)
		assert.Equal(t, unique, again)
		assert.Zero(t, droppedAgain)
	})
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"lowercases", "Attention Is All You Need", "attention is all you need"},
		{"strips punctuation", "BERT: Pre-training, of Deep-Bidirectional Transformers!", "bert pretraining of deepbidirectional transformers"},
		{"collapses whitespace", "a   b\t\nc", "a b c"},
		{"keeps digits", "GPT-3 in 2020", "gpt3 in 2020"},
		{"unicode letters survive", "Über Straße", "über straße"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTitle(tt.input))
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"simple", "Ashish Vaswani", "ashish vaswani"},
		{"last comma first", "Vaswani, Ashish", "ashish vaswani"},
		{"comma with no first part", "Vaswani, ", "vaswani"},
		{"initials with periods", "A. N. Gomez", "a n gomez"},
		{"apostrophes and hyphens dropped", "O'Brien-Smith, Mary", "mary obriensmith"},
		{"extra whitespace", "  Llion   Jones ", "llion jones"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestLastName(t *testing.T) {
	assert.Equal(t, "vaswani", LastName("Ashish Vaswani"))
	assert.Equal(t, "vaswani", LastName("Vaswani, Ashish"))
	assert.Equal(t, "gomez", LastName("A. N. Gomez"))
	assert.Equal(t, "curie", LastName("Curie"))
	assert.Empty(t, LastName(""))
	assert.Empty(t, LastName("..."))
}

func TestLastNames(t *testing.T) {
	authors := []string{"Ashish Vaswani", "Shazeer, Noam", "", "Niki Parmar"}

	t.Run("limit applied", func(t *testing.T) {
		assert.Equal(t, []string{"vaswani", "shazeer"}, LastNames(authors, 2))
	})

	t.Run("zero limit means all", func(t *testing.T) {
		assert.Equal(t, []string{"vaswani", "shazeer", "parmar"}, LastNames(authors, 0))
	})

	t.Run("limit beyond length", func(t *testing.T) {
		assert.Equal(t, []string{"vaswani", "shazeer", "parmar"}, LastNames(authors, 10))
	})
}

func TestSharedAuthor(t *testing.T) {
	t.Run("shared last name", func(t *testing.T) {
		assert.True(t, SharedAuthor(
			[]string{"Ashish Vaswani", "Noam Shazeer"},
			[]string{"Shazeer, N."},
		))
	})

	t.Run("no overlap", func(t *testing.T) {
		assert.False(t, SharedAuthor(
			[]string{"Ashish Vaswani"},
			[]string{"Kaiming He"},
		))
	})

	t.Run("empty lists", func(t *testing.T) {
		assert.False(t, SharedAuthor(nil, []string{"Kaiming He"}))
		assert.False(t, SharedAuthor([]string{"Kaiming He"}, nil))
	})
}

func TestSharedName(t *testing.T) {
	t.Run("same full name across formats", func(t *testing.T) {
		assert.True(t, SharedName(
			[]string{"Ian Goodfellow", "Yoshua Bengio"},
			[]string{"Goodfellow, Ian"},
		))
	})

	t.Run("surname alone is not enough", func(t *testing.T) {
		assert.False(t, SharedName(
			[]string{"Ian Goodfellow"},
			[]string{"Goodfellow, Margaret"},
		))
	})

	t.Run("no overlap", func(t *testing.T) {
		assert.False(t, SharedName(
			[]string{"Ashish Vaswani"},
			[]string{"Kaiming He"},
		))
	})

	t.Run("empty lists", func(t *testing.T) {
		assert.False(t, SharedName(nil, []string{"Kaiming He"}))
		assert.False(t, SharedName([]string{"Kaiming He"}, nil))
	})
}
