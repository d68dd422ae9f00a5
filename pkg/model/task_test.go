package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatus_String(t *testing.T) {
	tests := []struct {
		status   RunStatus
		expected string
	}{
		{RunStatusPending, "pending"},
		{RunStatusRunning, "running"},
		{RunStatusCompleted, "completed"},
		{RunStatusFailed, "failed"},
		{RunStatus(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestAuditRun_IsHighPriority(t *testing.T) {
	tests := []struct {
		name     string
		run      *AuditRun
		expected bool
	}{
		{
			name: "small workload",
			run: &AuditRun{
				RequestParams: AuditParams{NElections: 10, NBallots: 50},
			},
			expected: true,
		},
		{
			name: "large workload",
			run: &AuditRun{
				RequestParams: AuditParams{NElections: 1000, NBallots: 1000},
			},
			expected: false,
		},
		{
			name: "zero workload",
			run: &AuditRun{
				RequestParams: AuditParams{},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.run.IsHighPriority())
		})
	}
}

func TestAuditRun_IsResumedRun(t *testing.T) {
	tests := []struct {
		name     string
		run      *AuditRun
		expected bool
	}{
		{
			name:     "without parent",
			run:      &AuditRun{ParentRunUUID: nil},
			expected: false,
		},
		{
			name:     "with empty parent",
			run:      &AuditRun{ParentRunUUID: stringPtr("")},
			expected: false,
		},
		{
			name:     "with parent",
			run:      &AuditRun{ParentRunUUID: stringPtr("parent-123")},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.run.IsResumedRun())
		})
	}
}

func TestAuditRun_GetComplexityClass(t *testing.T) {
	tests := []struct {
		nCandidates int
		expected    ComplexityClass
	}{
		{2, ComplexityLight},
		{7, ComplexityLight},
		{8, ComplexityHeavy},
		{20, ComplexityHeavy},
	}

	for _, tt := range tests {
		t.Run(string(tt.expected), func(t *testing.T) {
			run := &AuditRun{RequestParams: AuditParams{NCandidates: tt.nCandidates}}
			assert.Equal(t, tt.expected, run.GetComplexityClass())
		})
	}
}

func TestAuditParams_TotalDraws(t *testing.T) {
	p := AuditParams{NElections: 20, NBallots: 15}
	assert.Equal(t, 300, p.TotalDraws())
}

func TestNewAuditRun(t *testing.T) {
	params := AuditParams{NCandidates: 3, A0: 1.0}
	run := NewAuditRun(123, "uuid-456", params)

	assert.Equal(t, int64(123), run.ID)
	assert.Equal(t, "uuid-456", run.RunUUID)
	assert.Equal(t, RunStatusPending, run.Status)
	assert.Equal(t, params, run.RequestParams)
	assert.False(t, run.CreateTime.IsZero())
}

func TestAuditParams_UnmarshalJSON(t *testing.T) {
	jsonStr := `{"n_candidates": 4, "a0": 1.5, "n_batches": 100}`

	var params AuditParams
	err := json.Unmarshal([]byte(jsonStr), &params)

	assert.NoError(t, err)
	assert.Equal(t, 4, params.NCandidates)
	assert.Equal(t, 1.5, params.A0)
	assert.Equal(t, 100, params.NBatches)
}

// Helper function
func stringPtr(s string) *string {
	return &s
}
