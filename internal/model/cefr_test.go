package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelSteps(t *testing.T) {
	assert.Equal(t, "B2", NextLevelUp("B1"))
	assert.Equal(t, "A2", NextLevelDown("B1"))
	assert.Equal(t, "C2", NextLevelUp("C2"))
	assert.Equal(t, "A1", NextLevelDown("A1"))
}

func TestLevelForPercentage(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{95, "C2"}, {90, "C2"},
		{85, "C1"}, {80, "C1"},
		{75, "B2"}, {70, "B2"},
		{65, "B1"}, {60, "B1"},
		{55, "A2"}, {50, "A2"},
		{49, "A1"}, {0, "A1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForPercentage(tt.score), "score %v", tt.score)
	}
}

func TestTestStateAdjustSaturates(t *testing.T) {
	state := NewTestState()
	assert.Equal(t, "B1", state.EstimatedLevel)

	for i := 0; i < 10; i++ {
		state.Adjust(true)
	}
	assert.Equal(t, "C2", state.EstimatedLevel)

	for i := 0; i < 10; i++ {
		state.Adjust(false)
	}
	assert.Equal(t, "A1", state.EstimatedLevel)
}

func TestTestStateRecordWindow(t *testing.T) {
	state := NewTestState()
	for i := 1; i <= 15; i++ {
		state.Record(uint(i), uint(100+i))
	}

	assert.Len(t, state.QuestionIDs, 15)
	assert.Len(t, state.RecentTopics, 10)
	assert.Equal(t, uint(106), state.RecentTopics[0])

	window := state.RecentTopicWindow()
	assert.Equal(t, []uint{113, 114, 115}, window)
}

func TestTestStateScanLegacyKeys(t *testing.T) {
	var state TestState
	err := state.Scan([]byte(`{"estimated_level":"B2","recent_topics":[4],"question_ids":[9,10]}`))
	assert.NoError(t, err)
	assert.Equal(t, "B2", state.EstimatedLevel)
	assert.Equal(t, []uint{9, 10}, state.QuestionIDs)
}

func TestTestStateScanCorruptFallsBack(t *testing.T) {
	var state TestState
	assert.Error(t, state.Scan([]byte(`{broken`)))

	var empty TestState
	assert.NoError(t, empty.Scan(nil))
	assert.Equal(t, DefaultLevel, empty.EstimatedLevel)
}
