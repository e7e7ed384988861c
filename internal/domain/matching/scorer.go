package matching

// SimilarityMetrics carries the five sub-scores and the combined overall
// score.  All values lie in [0,1]; overall is strictly inside (0,1) because it
// passes through the logistic function.
type SimilarityMetrics struct {
	Lexical  float64 `json:"lexical"`
	Semantic float64 `json:"semantic"`
	Brand    float64 `json:"brand"`
	Category float64 `json:"category"`
	Size     float64 `json:"size"`
	Overall  float64 `json:"overall"`
}

// Scorer computes SimilarityMetrics between two feature bundles.  The
// similarity primitives are injectable so the engine can wrap them with
// memoization.
type Scorer struct {
	tables *Tables

	levSim    func(a, b string) float64
	bigramSim func(a, b string) float64
}

// NewScorer builds a Scorer using the un-memoized text metrics.
func NewScorer(tables *Tables) *Scorer {
	return &Scorer{
		tables:    tables,
		levSim:    LevenshteinSimilarity,
		bigramSim: BigramJaccard,
	}
}

// WithTextMetrics replaces the similarity primitives, typically with memoized
// versions.  Returns the scorer for chaining at construction.
func (s *Scorer) WithTextMetrics(lev, bigram func(a, b string) float64) *Scorer {
	if lev != nil {
		s.levSim = lev
	}
	if bigram != nil {
		s.bigramSim = bigram
	}
	return s
}

// Score computes all five sub-scores between a and b and combines them under
// w.  Pure for fixed tables and weights.
func (s *Scorer) Score(a, b *ProductFeatures, w WeightModel) SimilarityMetrics {
	m := SimilarityMetrics{
		Lexical:  s.lexical(a, b),
		Brand:    s.brand(a, b),
		Category: s.category(a, b),
		Size:     s.size(a, b),
	}
	m.Semantic = s.semantic(a, b, m.Category, m.Size)

	weighted := w.Lexical*m.Lexical +
		w.Semantic*m.Semantic +
		w.Brand*m.Brand +
		w.Category*m.Category +
		w.Size*m.Size
	m.Overall = Sigmoid(weighted + w.Bias)
	return m
}

// lexical blends bigram overlap and edit-distance similarity of the raw
// normalized strings.
func (s *Scorer) lexical(a, b *ProductFeatures) float64 {
	return 0.6*s.bigramSim(a.Source, b.Source) + 0.4*s.levSim(a.Source, b.Source)
}

// semantic blends keyword overlap with the category and size signals.  The
// category and size sub-scores are deliberately reused here even though they
// are also combined independently.
func (s *Scorer) semantic(a, b *ProductFeatures, categoryScore, sizeScore float64) float64 {
	kw := JaccardSets(a.KeywordSet(), b.KeywordSet())
	return 0.5*kw + 0.3*categoryScore + 0.2*sizeScore
}

// brand scores the brand signal in tiers: exact 1.0, synonym 0.9, then a
// fuzzy tier gated on edit-distance similarity above 0.8.
func (s *Scorer) brand(a, b *ProductFeatures) float64 {
	if a.Brand == "" || b.Brand == "" {
		return 0
	}
	if a.Brand == b.Brand {
		return 1.0
	}
	if s.tables.BrandsRelated(a.Brand, b.Brand) {
		return 0.9
	}
	if sim := s.levSim(a.Brand, b.Brand); sim > 0.8 {
		return sim * 0.8
	}
	return 0
}

func (s *Scorer) category(a, b *ProductFeatures) float64 {
	if a.Category == "" || b.Category == "" {
		return 0
	}
	if a.Category == b.Category {
		return 1.0
	}
	if s.tables.CategoriesRelated(a.Category, b.Category) {
		return 0.8
	}
	if s.tables.CategoriesLinked(a.Category, b.Category) {
		return 0.6
	}
	return 0
}

// size compares quantities after conversion to ounces.  Both sides need a
// parsed size and a convertible unit.
func (s *Scorer) size(a, b *ProductFeatures) float64 {
	if !a.HasSize || !b.HasSize || a.Unit == "" || b.Unit == "" {
		return 0
	}
	s1, ok1 := s.tables.ToOunces(a.Size, a.Unit)
	s2, ok2 := s.tables.ToOunces(b.Size, b.Unit)
	if !ok1 || !ok2 {
		return 0
	}
	avg := (s1 + s2) / 2
	if avg == 0 {
		return 1.0
	}
	diff := s1 - s2
	if diff < 0 {
		diff = -diff
	}
	sim := 1.0 - diff/avg
	if sim < 0 {
		return 0
	}
	return sim
}
