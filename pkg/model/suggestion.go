package model

import (
	"encoding/json"
	"time"
)

// Recommendation represents one audit-decision recommendation derived
// from a run's posterior output, e.g. escalate to more ballots, or stop
// because the lead is decisive.
type Recommendation struct {
	ID             int64           `json:"id,omitempty" db:"id"`
	RunUUID        string          `json:"rid" db:"rid"`
	Candidate      string          `json:"candidate,omitempty" db:"candidate"`
	Severity       string          `json:"severity,omitempty"`
	Text           string          `json:"text" db:"text"`
	WinProbability float64         `json:"win_probability,omitempty" db:"win_probability"`
	Detail         json.RawMessage `json:"detail,omitempty" db:"detail"`
	CreatedAt      time.Time       `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at,omitempty" db:"updated_at"`
}

// RecommendationRule represents a rule for generating a recommendation
// from a run's aggregated win probabilities.
type RecommendationRule struct {
	ID                    int64   `json:"id" db:"id"`
	Type                  string  `json:"type" db:"type"`
	Operation             string  `json:"operation" db:"operation"`
	Target                string  `json:"target" db:"target"` // e.g. "win_probability"
	TargetType            string  `json:"target_type" db:"target_type"`
	Threshold             float64 `json:"threshold" db:"threshold"`
	RecommendationContent string  `json:"recommendation_content" db:"recommendation_content"`
}

// RecommendationBuilder helps build recommendations with a fluent interface.
type RecommendationBuilder struct {
	recommendation Recommendation
}

// NewRecommendationBuilder creates a new RecommendationBuilder.
func NewRecommendationBuilder() *RecommendationBuilder {
	return &RecommendationBuilder{
		recommendation: Recommendation{
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}
}

// WithRunUUID sets the run UUID.
func (b *RecommendationBuilder) WithRunUUID(runUUID string) *RecommendationBuilder {
	b.recommendation.RunUUID = runUUID
	return b
}

// WithCandidate sets the candidate name.
func (b *RecommendationBuilder) WithCandidate(candidate string) *RecommendationBuilder {
	b.recommendation.Candidate = candidate
	return b
}

// WithText sets the recommendation text.
func (b *RecommendationBuilder) WithText(text string) *RecommendationBuilder {
	b.recommendation.Text = text
	return b
}

// WithSeverity sets the severity.
func (b *RecommendationBuilder) WithSeverity(severity string) *RecommendationBuilder {
	b.recommendation.Severity = severity
	return b
}

// WithWinProbability sets the win probability the recommendation is based on.
func (b *RecommendationBuilder) WithWinProbability(p float64) *RecommendationBuilder {
	b.recommendation.WinProbability = p
	return b
}

// WithDetail sets structured detail, marshaled to JSON.
func (b *RecommendationBuilder) WithDetail(detail interface{}) *RecommendationBuilder {
	if detail != nil {
		data, err := json.Marshal(detail)
		if err == nil {
			b.recommendation.Detail = data
		}
	}
	return b
}

// Build returns the built Recommendation.
func (b *RecommendationBuilder) Build() Recommendation {
	return b.recommendation
}

// IsEmpty returns true if the recommendation text is empty.
func (r *Recommendation) IsEmpty() bool {
	return r.Text == ""
}

// RunGroupRecommendations holds recommendations grouped by complexity
// class, for dispatchers that batch related runs together.
type RunGroupRecommendations struct {
	Light []RecommendationGroup `json:"light"`
	Heavy []RecommendationGroup `json:"heavy"`
}

// RecommendationGroup represents a group of recommendations from one run.
type RecommendationGroup struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// NewRunGroupRecommendations creates a new RunGroupRecommendations instance.
func NewRunGroupRecommendations() *RunGroupRecommendations {
	return &RunGroupRecommendations{
		Light: make([]RecommendationGroup, 0),
		Heavy: make([]RecommendationGroup, 0),
	}
}

// AddRecommendationGroup adds a recommendation group under the given
// complexity class.
func (m *RunGroupRecommendations) AddRecommendationGroup(class ComplexityClass, group RecommendationGroup) {
	switch class {
	case ComplexityLight:
		m.Light = append(m.Light, group)
	case ComplexityHeavy:
		m.Heavy = append(m.Heavy, group)
	}
}
