package model

// TopicScore tallies per-topic correctness inside a session, used for the
// strengths and improvement areas on the results page.
type TopicScore struct {
	BaseModel
	SessionID      uint        `gorm:"uniqueIndex:idx_session_topic;not null" json:"sessionId"`
	Session        TestSession `gorm:"foreignKey:SessionID" json:"-"`
	TopicID        uint        `gorm:"uniqueIndex:idx_session_topic;not null" json:"topicId"`
	Topic          Topic       `gorm:"foreignKey:TopicID" json:"topic,omitempty"`
	QuestionsCount int         `gorm:"default:0" json:"questionsCount"`
	CorrectCount   int         `gorm:"default:0" json:"correctCount"`
}

func (TopicScore) TableName() string {
	return "topic_scores"
}

func (t *TopicScore) AddAnswer(correct bool) {
	t.QuestionsCount++
	if correct {
		t.CorrectCount++
	}
}

func (t *TopicScore) Percentage() float64 {
	if t.QuestionsCount == 0 {
		return 0
	}
	return float64(t.CorrectCount) / float64(t.QuestionsCount) * 100
}
