package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGrade(t *testing.T) {
	qz := &Quiz{
		PassingScore: 60,
		Questions: []Question{
			{Prompt: "q1", CorrectIndex: 0, Points: 2},
			{Prompt: "q2", CorrectIndex: 2, Points: 3},
			{Prompt: "q3", CorrectIndex: 1, Points: 5},
		},
	}

	tests := []struct {
		name        string
		answers     []int
		wantScore   int
		wantPercent float64
		wantPassed  bool
	}{
		{"all correct", []int{0, 2, 1}, 10, 100, true},
		{"all wrong", []int{1, 0, 0}, 0, 0, false},
		{"partial below passing", []int{0, 0, 0}, 2, 20, false},
		{"partial above passing", []int{1, 2, 1}, 8, 80, true},
		{"half score below passing", []int{1, 0, 1}, 5, 50, false},
		{"unanswered earns nothing", []int{0, -1, -1}, 2, 20, false},
		{"short answer slice", []int{0}, 2, 20, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, total, percent, passed := Grade(qz, tt.answers)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, 10, total)
			assert.InDelta(t, tt.wantPercent, percent, 0.001)
			assert.Equal(t, tt.wantPassed, passed)
		})
	}
}

func TestGradeBoundary(t *testing.T) {
	qz := &Quiz{
		PassingScore: 50,
		Questions: []Question{
			{CorrectIndex: 0, Points: 1},
			{CorrectIndex: 0, Points: 1},
		},
	}
	// exactly at the passing score passes
	_, _, percent, passed := Grade(qz, []int{0, 1})
	assert.Equal(t, 50.0, percent)
	assert.True(t, passed)
}
