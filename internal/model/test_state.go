package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// recentTopicLimit bounds the topic exclusion window used when picking the
// next question.
const recentTopicLimit = 10

// TestState is the adaptive engine's per-session working memory, stored as a
// JSON column on the session row.
type TestState struct {
	EstimatedLevel string `json:"estimated_level"`
	RecentTopics   []uint `json:"recent_topics"`
	QuestionIDs    []uint `json:"question_ids"`
}

// NewTestState seeds the estimate at the middle of the scale.
func NewTestState() TestState {
	return TestState{
		EstimatedLevel: DefaultLevel,
		RecentTopics:   []uint{},
		QuestionIDs:    []uint{},
	}
}

// Adjust moves the estimate one CEFR step, saturating at the scale ends.
func (s *TestState) Adjust(correct bool) {
	if correct {
		s.EstimatedLevel = NextLevelUp(s.EstimatedLevel)
	} else {
		s.EstimatedLevel = NextLevelDown(s.EstimatedLevel)
	}
}

// Record remembers a served question and its topic. The topic window keeps
// only the most recent entries.
func (s *TestState) Record(questionID, topicID uint) {
	s.QuestionIDs = append(s.QuestionIDs, questionID)
	s.RecentTopics = append(s.RecentTopics, topicID)
	if len(s.RecentTopics) > recentTopicLimit {
		s.RecentTopics = s.RecentTopics[len(s.RecentTopics)-recentTopicLimit:]
	}
}

// RecentTopicWindow returns the topics to avoid when selecting the next
// question, at most three of the latest ones.
func (s *TestState) RecentTopicWindow() []uint {
	n := len(s.RecentTopics)
	if n > 3 {
		n = 3
	}
	out := make([]uint, 0, n)
	for i := len(s.RecentTopics) - n; i < len(s.RecentTopics); i++ {
		out = append(out, s.RecentTopics[i])
	}
	return out
}

func (s TestState) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *TestState) Scan(value interface{}) error {
	if value == nil {
		*s = NewTestState()
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported test state type %T", value)
	}
	if len(data) == 0 {
		*s = NewTestState()
		return nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return errors.New("corrupt test state: " + err.Error())
	}
	if !IsValidLevel(s.EstimatedLevel) {
		s.EstimatedLevel = DefaultLevel
	}
	return nil
}
