package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelFromScore(t *testing.T) {
	tests := []struct {
		score    int
		expected Label
	}{
		{0, LabelSafe},
		{29, LabelSafe},
		{30, LabelSuspicious},
		{59, LabelSuspicious},
		{60, LabelPhishing},
		{100, LabelPhishing},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("score %d", tt.score), func(t *testing.T) {
			assert.Equal(t, tt.expected, LabelFromScore(tt.score))
		})
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-5))
	assert.Equal(t, 42, ClampScore(42))
	assert.Equal(t, 100, ClampScore(175))
}

func TestInvalidVerdict(t *testing.T) {
	v := InvalidVerdict("http://exa mple")

	assert.Equal(t, LabelInvalid, v.Label)
	assert.Equal(t, 100, v.Score)
	assert.Empty(t, v.Breakdown)
	assert.NotEmpty(t, v.Reasons)
}

func TestDedupeReasons(t *testing.T) {
	in := []string{"a", "b", "a", "", "c", "b"}
	assert.Equal(t, []string{"a", "b", "c"}, DedupeReasons(in))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(fmt.Errorf("whois: %w", ErrLookupTimeout)))
	assert.False(t, IsTimeout(errors.New("connection refused")))
	assert.False(t, IsTimeout(nil))
}

func TestDetectorFailure_Unwrap(t *testing.T) {
	err := &DetectorFailure{Detector: "reputation", Cause: context.DeadlineExceeded}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "reputation")
}
