package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestScorer() (*Extractor, *Scorer) {
	tables := DefaultTables()
	return NewExtractor(tables), NewScorer(tables)
}

func TestScore_IdenticalInput(t *testing.T) {
	e, s := newTestScorer()
	w := DefaultWeights()

	f := e.Extract("Great Value 2% Milk 1 Gal")
	m := s.Score(f, f, w)

	assert.InDelta(t, 1.0, m.Lexical, 1e-9)
	assert.InDelta(t, 1.0, m.Semantic, 1e-9)
	assert.InDelta(t, 1.0, m.Brand, 1e-9)
	assert.InDelta(t, 1.0, m.Category, 1e-9)
	assert.InDelta(t, 1.0, m.Size, 1e-9)
	// The weighted sum saturates at 1, so the logistic combiner caps the
	// overall score at sigmoid(1) for a perfect match.
	assert.InDelta(t, Sigmoid(1.0), m.Overall, 1e-9)
	assert.Greater(t, m.Overall, Sigmoid(0.5))
}

func TestScore_SharedKeyword(t *testing.T) {
	e, s := newTestScorer()
	w := DefaultWeights()

	q := e.Extract("milk")
	p := e.Extract("Great Value Whole Milk")
	m := s.Score(q, p, w)

	assert.Greater(t, m.Semantic, 0.3)
	assert.Equal(t, 0.0, m.Brand) // query carries no brand
	assert.Greater(t, m.Overall, 0.5)
}

func TestScore_SpellCorrectionImprovesLexical(t *testing.T) {
	tables := DefaultTables()
	e := NewExtractor(tables)
	s := NewScorer(tables)
	w := DefaultWeights()

	corrected := s.Score(e.Extract("choclate"), e.Extract("chocolate bar"), w)

	// Bypass normalization to measure the raw misspelled form.
	raw := &ProductFeatures{Source: "choclate"}
	target := &ProductFeatures{Source: "chocolate bar"}
	uncorrected := s.Score(raw, target, w)

	assert.Greater(t, corrected.Lexical, uncorrected.Lexical)
}

func TestScore_BrandTierOrdering(t *testing.T) {
	_, s := newTestScorer()

	exact := s.brand(
		&ProductFeatures{Brand: "great value"},
		&ProductFeatures{Brand: "great value"},
	)
	synonym := s.brand(
		&ProductFeatures{Brand: "great value"},
		&ProductFeatures{Brand: "gv"},
	)
	fuzzy := s.brand(
		&ProductFeatures{Brand: "cheerios"},
		&ProductFeatures{Brand: "cheerioz"},
	)
	none := s.brand(
		&ProductFeatures{Brand: "heinz"},
		&ProductFeatures{Brand: "tide"},
	)

	assert.Equal(t, 1.0, exact)
	assert.Equal(t, 0.9, synonym)
	assert.Greater(t, fuzzy, 0.0)
	assert.Less(t, fuzzy, synonym)
	assert.Equal(t, 0.0, none)
}

func TestScore_BrandAbsent(t *testing.T) {
	_, s := newTestScorer()

	got := s.brand(&ProductFeatures{}, &ProductFeatures{Brand: "heinz"})
	assert.Equal(t, 0.0, got)
}

func TestScore_CategoryTiers(t *testing.T) {
	_, s := newTestScorer()

	exact := s.category(&ProductFeatures{Category: "dairy"}, &ProductFeatures{Category: "dairy"})
	linked := s.category(&ProductFeatures{Category: "dairy"}, &ProductFeatures{Category: "beverages"})
	unrelated := s.category(&ProductFeatures{Category: "dairy"}, &ProductFeatures{Category: "household"})
	absent := s.category(&ProductFeatures{Category: "dairy"}, &ProductFeatures{})

	assert.Equal(t, 1.0, exact)
	assert.Equal(t, 0.6, linked)
	assert.Equal(t, 0.0, unrelated)
	assert.Equal(t, 0.0, absent)
}

func TestScore_SizeConversion(t *testing.T) {
	_, s := newTestScorer()

	lb := &ProductFeatures{Size: 1, Unit: "lb", HasSize: true}
	oz16 := &ProductFeatures{Size: 16, Unit: "oz", HasSize: true}
	oz8 := &ProductFeatures{Size: 8, Unit: "oz", HasSize: true}
	noUnit := &ProductFeatures{Size: 16, HasSize: true}

	assert.InDelta(t, 1.0, s.size(lb, oz16), 1e-9)
	assert.InDelta(t, 1.0-8.0/12.0, s.size(lb, oz8), 1e-9)
	assert.Equal(t, 0.0, s.size(lb, noUnit))
	assert.Equal(t, 0.0, s.size(lb, &ProductFeatures{}))
}

func TestScore_SizeFarApartClampsToZero(t *testing.T) {
	_, s := newTestScorer()

	small := &ProductFeatures{Size: 1, Unit: "oz", HasSize: true}
	big := &ProductFeatures{Size: 10, Unit: "gal", HasSize: true}
	assert.Equal(t, 0.0, s.size(small, big))
}

func TestScore_SemanticReusesCategoryAndSize(t *testing.T) {
	e, s := newTestScorer()
	w := DefaultWeights()

	a := e.Extract("whole milk 1 gal")
	b := e.Extract("skim milk 1 gal")
	m := s.Score(a, b, w)

	kw := JaccardSets(a.KeywordSet(), b.KeywordSet())
	want := 0.5*kw + 0.3*m.Category + 0.2*m.Size
	assert.InDelta(t, want, m.Semantic, 1e-9)
}

func TestScore_OverallWithinOpenUnitInterval(t *testing.T) {
	e, s := newTestScorer()
	w := DefaultWeights()

	m := s.Score(e.Extract("bread"), e.Extract("laundry detergent 50 oz"), w)
	assert.Greater(t, m.Overall, 0.0)
	assert.Less(t, m.Overall, 1.0)
}
