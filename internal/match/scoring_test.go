package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"identical", "Attention Is All You Need", "Attention Is All You Need", 1.0},
		{"identical after normalization", "Attention Is All You Need!", "attention is all you need", 1.0},
		{"containment", "Attention Is All You Need", "Attention Is All You Need (Extended Version)", 0.85},
		{"empty left", "", "Attention Is All You Need", 0.0},
		{"empty right", "Attention Is All You Need", "", 0.0},
		{"disjoint", "Deep Residual Learning", "Quantum Chromodynamics Review", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, TitleSimilarity(tt.a, tt.b), 1e-9)
		})
	}

	t.Run("jaccard with three shared words gets boosted", func(t *testing.T) {
		// Shared: neural, machine, translation. Union: neural, machine,
		// translation, attentional, approaches, effective -> 3/6 = 0.5,
		// boosted 1.2x to 0.6.
		a := "effective neural machine translation"
		b := "attentional approaches neural machine translation"
		assert.InDelta(t, 0.6, TitleSimilarity(a, b), 1e-9)
	})

	t.Run("two shared words are not boosted", func(t *testing.T) {
		// Shared: machine, translation. Union of 5 words -> 2/5 = 0.4.
		a := "statistical machine translation"
		b := "machine translation quality estimation"
		assert.InDelta(t, 0.4, TitleSimilarity(a, b), 1e-9)
	})

	t.Run("boost capped at one", func(t *testing.T) {
		// Same word set in a different order: Jaccard 1.0 stays 1.0.
		a := "deep learning speech recognition models"
		b := "learning deep speech models recognition"
		assert.InDelta(t, 1.0, TitleSimilarity(a, b), 1e-9)
	})
}

func TestTitleSimilarity_Symmetric(t *testing.T) {
	pairs := []struct {
		name string
		a, b string
	}{
		{"identical", "Attention Is All You Need", "attention is all you need"},
		{"containment", "Deep Residual Learning", "Deep Residual Learning for Image Recognition"},
		{"jaccard overlap", "effective neural machine translation", "attentional approaches neural machine translation"},
		{"disjoint", "Deep Residual Learning", "Quantum Chromodynamics Review"},
		{"one side empty", "", "Attention Is All You Need"},
	}

	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, TitleSimilarity(tt.a, tt.b), TitleSimilarity(tt.b, tt.a), 1e-9)
		})
	}
}

func TestTitleRatio(t *testing.T) {
	t.Run("identical", func(t *testing.T) {
		assert.InDelta(t, 1.0, TitleRatio("Deep Residual Learning", "deep residual learning!"), 1e-9)
	})

	t.Run("containment", func(t *testing.T) {
		assert.InDelta(t, 0.85, TitleRatio("Deep Residual Learning", "Deep Residual Learning for Image Recognition"), 1e-9)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Zero(t, TitleRatio("", "anything"))
	})

	t.Run("single edit", func(t *testing.T) {
		// "cat" vs "cut": distance 1, max length 3.
		assert.InDelta(t, 1.0-1.0/3.0, TitleRatio("cat", "cut"), 1e-9)
	})

	t.Run("near miss scores high", func(t *testing.T) {
		got := TitleRatio("generative adversarial networks", "generative adverserial networks")
		assert.Greater(t, got, 0.9)
	})
}

func TestAuthorOverlap(t *testing.T) {
	t.Run("shared last name in first three", func(t *testing.T) {
		a := []string{"Ashish Vaswani", "Noam Shazeer"}
		b := []string{"Shazeer, N.", "Someone Else"}
		assert.InDelta(t, 0.8, AuthorOverlap(a, b), 1e-9)
	})

	t.Run("overlap beyond first three is ignored", func(t *testing.T) {
		a := []string{"A One", "B Two", "C Three", "D Four"}
		b := []string{"X Five", "Y Six", "Z Seven", "D Four"}
		assert.Zero(t, AuthorOverlap(a, b))
	})

	t.Run("no overlap", func(t *testing.T) {
		assert.Zero(t, AuthorOverlap([]string{"Kaiming He"}, []string{"Yann LeCun"}))
	})

	t.Run("empty lists", func(t *testing.T) {
		assert.Zero(t, AuthorOverlap(nil, []string{"Kaiming He"}))
	})
}

func TestYearProximity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     int
		expected float64
	}{
		{"equal", 2017, 2017, 1.0},
		{"adjacent", 2017, 2018, 0.7},
		{"adjacent reversed", 2018, 2017, 0.7},
		{"two apart", 2017, 2019, 0.4},
		{"three apart", 2017, 2020, 0.4},
		{"four apart", 2017, 2021, 0.0},
		{"unknown left", 0, 2017, 0.0},
		{"unknown right", 2017, 0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, YearProximity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		v := []float32{0.5, 0.3, 0.2}
		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 2}, []float32{-1, -2}), 1e-6)
	})

	t.Run("empty vectors", func(t *testing.T) {
		assert.Zero(t, CosineSimilarity(nil, nil))
	})

	t.Run("mismatched dimensions", func(t *testing.T) {
		assert.Zero(t, CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	})

	t.Run("zero magnitude", func(t *testing.T) {
		assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
	})
}

func TestCompositeScore(t *testing.T) {
	params := Params{}
	params.applyDefaults()

	t.Run("weighted sum", func(t *testing.T) {
		// 0.6*0.5 + 0.25*0.8 + 0.15*1.0 = 0.65.
		assert.InDelta(t, 0.65, params.compositeScore(0.5, 0.8, 1.0), 1e-9)
	})

	t.Run("strong title floors the score", func(t *testing.T) {
		// Weighted sum alone would be 0.6*0.9 = 0.54; the boost floors it
		// at 0.9*0.9 = 0.81.
		assert.InDelta(t, 0.81, params.compositeScore(0.9, 0.0, 0.0), 1e-9)
	})

	t.Run("boost does not lower a higher weighted sum", func(t *testing.T) {
		// 0.6*0.95 + 0.25*0.8 + 0.15*1.0 = 0.92 > 0.95*0.9 = 0.855.
		assert.InDelta(t, 0.92, params.compositeScore(0.95, 0.8, 1.0), 1e-9)
	})

	t.Run("title at threshold is not boosted", func(t *testing.T) {
		// titleSim == TitleBoost does not trigger the floor.
		assert.InDelta(t, 0.6*0.85, params.compositeScore(0.85, 0.0, 0.0), 1e-9)
	})
}

func TestParamsApplyDefaults(t *testing.T) {
	p := Params{}
	p.applyDefaults()

	assert.InDelta(t, 0.6, p.TitleWeight, 1e-9)
	assert.InDelta(t, 0.25, p.AuthorWeight, 1e-9)
	assert.InDelta(t, 0.15, p.YearWeight, 1e-9)
	assert.InDelta(t, 0.6, p.AcceptThreshold, 1e-9)
	assert.InDelta(t, 0.8, p.DuplicateThreshold, 1e-9)
	assert.InDelta(t, 0.7, p.AuthorTitleGate, 1e-9)
	assert.InDelta(t, 0.85, p.TitleBoost, 1e-9)

	custom := Params{TitleWeight: 0.5, AuthorWeight: 0.3, YearWeight: 0.2}
	custom.applyDefaults()
	assert.InDelta(t, 0.5, custom.TitleWeight, 1e-9)
	assert.InDelta(t, 0.3, custom.AuthorWeight, 1e-9)
	assert.InDelta(t, 0.2, custom.YearWeight, 1e-9)
}
