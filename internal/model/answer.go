package model

import "encoding/json"

// TestAnswer is one recorded response within a session.
type TestAnswer struct {
	BaseModel
	SessionID  uint            `gorm:"index;not null" json:"sessionId"`
	Session    TestSession     `gorm:"foreignKey:SessionID" json:"-"`
	QuestionID uint            `gorm:"index;not null" json:"questionId"`
	Question   Question        `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
	UserAnswer json.RawMessage `gorm:"type:json" json:"userAnswer"`
	IsCorrect  bool            `gorm:"default:false" json:"isCorrect"`
	TimeTaken  int             `gorm:"default:0" json:"timeTaken"`
}

func (TestAnswer) TableName() string {
	return "test_answers"
}
