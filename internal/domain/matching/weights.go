package matching

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MinTrainEvents is the smallest buffer size on which a training pass runs; a
// smaller buffer makes Train a no-op.
const MinTrainEvents = 50

// retainedEvents is the sliding window kept in the buffer after training.
const retainedEvents = 100

// weightFloor is the clamp applied before renormalization so a degenerate
// buffer can never drive every weight to zero.
const weightFloor = 1e-6

// FeedbackLabel classifies a feedback event.
type FeedbackLabel string

const (
	LabelPositive FeedbackLabel = "positive"
	LabelNegative FeedbackLabel = "negative"
	LabelNeutral  FeedbackLabel = "neutral"
)

// Expected returns the target score for the label.
func (l FeedbackLabel) Expected() float64 {
	switch l {
	case LabelPositive:
		return 1.0
	case LabelNegative:
		return 0.0
	default:
		return 0.5
	}
}

// Valid reports whether l is one of the three known labels.
func (l FeedbackLabel) Valid() bool {
	switch l {
	case LabelPositive, LabelNegative, LabelNeutral:
		return true
	}
	return false
}

// FeedbackEvent records one user signal about a (query, product) pair.
type FeedbackEvent struct {
	ID          string        `json:"id"`
	Query       string        `json:"query"`
	ProductName string        `json:"product_name"`
	Score       float64       `json:"score"`
	Label       FeedbackLabel `json:"label"`
	Timestamp   time.Time     `json:"timestamp"`
}

// NewFeedbackEvent builds an event with a generated ID and current timestamp.
func NewFeedbackEvent(query, productName string, score float64, label FeedbackLabel) FeedbackEvent {
	return FeedbackEvent{
		ID:          uuid.NewString(),
		Query:       query,
		ProductName: productName,
		Score:       score,
		Label:       label,
		Timestamp:   time.Now().UTC(),
	}
}

// WeightModel is the immutable weight vector combined with the sub-scores by
// the scorer.  Instances are never mutated after publication; Train swaps in a
// fresh value.
type WeightModel struct {
	Lexical      float64 `json:"lexical"`
	Semantic     float64 `json:"semantic"`
	Brand        float64 `json:"brand"`
	Category     float64 `json:"category"`
	Size         float64 `json:"size"`
	Bias         float64 `json:"bias"`
	LearningRate float64 `json:"learning_rate"`
}

// DefaultWeights returns the startup weight vector.  The five signal weights
// sum to 1.
func DefaultWeights() WeightModel {
	return WeightModel{
		Lexical:      0.30,
		Semantic:     0.25,
		Brand:        0.15,
		Category:     0.15,
		Size:         0.15,
		Bias:         0,
		LearningRate: 0.01,
	}
}

// Sum returns the total of the five signal weights.
func (w WeightModel) Sum() float64 {
	return w.Lexical + w.Semantic + w.Brand + w.Category + w.Size
}

// normalized clamps each weight to the positive floor and rescales so the
// signal weights sum to 1.  Bias and learning rate pass through unchanged.
func (w WeightModel) normalized() WeightModel {
	clamp := func(v float64) float64 {
		if v < weightFloor {
			return weightFloor
		}
		return v
	}
	w.Lexical = clamp(w.Lexical)
	w.Semantic = clamp(w.Semantic)
	w.Brand = clamp(w.Brand)
	w.Category = clamp(w.Category)
	w.Size = clamp(w.Size)

	sum := w.Sum()
	w.Lexical /= sum
	w.Semantic /= sum
	w.Brand /= sum
	w.Category /= sum
	w.Size /= sum
	return w
}

// AdaptiveModel owns the live weight vector and the bounded feedback buffer.
// Reads are lock-free through an atomic pointer; Record and Train serialize on
// a mutex so there is a single writer at any time.
type AdaptiveModel struct {
	current atomic.Pointer[WeightModel]

	mu        sync.Mutex
	buffer    []FeedbackEvent
	threshold int
}

// NewAdaptiveModel starts from the given weights with the buffer threshold at
// which Record reports that training is due.
func NewAdaptiveModel(initial WeightModel, threshold int) *AdaptiveModel {
	if threshold < MinTrainEvents {
		threshold = MinTrainEvents
	}
	m := &AdaptiveModel{threshold: threshold}
	w := initial
	m.current.Store(&w)
	return m
}

// Current returns the live weight vector.  The returned value is a copy;
// callers can hold it across a whole batch for consistent scoring.
func (m *AdaptiveModel) Current() WeightModel {
	return *m.current.Load()
}

// SetWeights replaces the live vector wholesale, normalizing first.  Used when
// restoring a persisted snapshot.
func (m *AdaptiveModel) SetWeights(w WeightModel) {
	if w.LearningRate <= 0 {
		w.LearningRate = DefaultWeights().LearningRate
	}
	norm := w.normalized()
	m.current.Store(&norm)
}

// Record appends a feedback event and reports whether the buffer has reached
// the training threshold.
func (m *AdaptiveModel) Record(ev FeedbackEvent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffer = append(m.buffer, ev)
	return len(m.buffer) >= m.threshold
}

// BufferLen returns the number of buffered events.
func (m *AdaptiveModel) BufferLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffer)
}

// Train runs one damped gradient pass over the buffered events and publishes
// the renormalized weight vector.  With fewer than MinTrainEvents buffered it
// is a no-op and returns false.  After a pass the buffer is trimmed to the
// most recent window rather than cleared.
func (m *AdaptiveModel) Train() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.buffer) < MinTrainEvents {
		return false
	}

	w := *m.current.Load()
	for _, ev := range m.buffer {
		err := ev.Label.Expected() - ev.Score
		step := w.LearningRate * err * 0.1
		w.Lexical += step
		w.Semantic += step
		w.Brand += step
		w.Category += step
		w.Size += step
	}
	norm := w.normalized()
	m.current.Store(&norm)

	if len(m.buffer) > retainedEvents {
		trimmed := make([]FeedbackEvent, retainedEvents)
		copy(trimmed, m.buffer[len(m.buffer)-retainedEvents:])
		m.buffer = trimmed
	}
	return true
}
