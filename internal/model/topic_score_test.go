package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicScoreTally(t *testing.T) {
	var score TopicScore
	assert.Zero(t, score.Percentage())

	score.AddAnswer(true)
	score.AddAnswer(true)
	score.AddAnswer(false)
	score.AddAnswer(true)

	assert.Equal(t, 4, score.QuestionsCount)
	assert.Equal(t, 3, score.CorrectCount)
	assert.InDelta(t, 75, score.Percentage(), 0.001)
}

func TestQuestionAnswerStats(t *testing.T) {
	var q Question
	q.ApplyAnswerStats(true)
	assert.Equal(t, 1, q.UsageCount)
	assert.InDelta(t, 1, q.CorrectRate, 0.001)

	q.ApplyAnswerStats(false)
	q.ApplyAnswerStats(false)
	q.ApplyAnswerStats(true)
	assert.Equal(t, 4, q.UsageCount)
	assert.InDelta(t, 0.5, q.CorrectRate, 0.001)
}
