package model

import "encoding/json"

const (
	QuestionTypeSingle   = "single_choice"
	QuestionTypeMultiple = "multiple_choice"
	QuestionTypeText     = "text_input"
)

// Question is a single assessment item, either curated or produced by the
// AI generator during a test.
type Question struct {
	BaseModel
	QuestionText string `gorm:"type:text;not null" json:"questionText"`
	QuestionType string `gorm:"size:20;not null;default:'single_choice'" json:"questionType"`
	Level        string `gorm:"size:2;not null;index" json:"level"`
	TopicID      uint   `gorm:"index" json:"topicId"`
	Topic        Topic  `gorm:"foreignKey:TopicID" json:"topic,omitempty"`
	// Options is a JSON array of answer choices, empty for text input.
	Options json.RawMessage `gorm:"type:json" json:"options"`
	// CorrectAnswer is an option index for single choice, an index array for
	// multiple choice, or an array of accepted strings for text input.
	CorrectAnswer   json.RawMessage `gorm:"type:json;not null" json:"-"`
	Explanation     string          `gorm:"type:text" json:"explanation"`
	DifficultyScore int             `gorm:"default:50" json:"difficultyScore"`
	IsActive        bool            `gorm:"default:true" json:"isActive"`
	IsAIGenerated   bool            `gorm:"default:false" json:"isAiGenerated"`
	UsageCount      int             `gorm:"default:0" json:"usageCount"`
	CorrectRate     float64         `gorm:"default:0" json:"correctRate"`
}

func (Question) TableName() string {
	return "questions"
}

// ApplyAnswerStats folds one answer into the rolling usage statistics.
func (q *Question) ApplyAnswerStats(correct bool) {
	total := float64(q.UsageCount) * q.CorrectRate
	if correct {
		total++
	}
	q.UsageCount++
	q.CorrectRate = total / float64(q.UsageCount)
}
