package model

import "strings"

const (
	CategoryGrammar    = "grammar"
	CategoryVocabulary = "vocabulary"
	CategoryReading    = "reading"
	CategoryUsage      = "usage"
)

// Topic groups questions by what they assess (present_simple, articles, ...).
type Topic struct {
	BaseModel
	Name        string `gorm:"size:100;unique;not null" json:"name"`
	Code        string `gorm:"size:50;unique;not null" json:"code"`
	Description string `gorm:"type:text" json:"description"`
	// Comma-separated CEFR codes this topic is suitable for, e.g. "A1,A2,B1".
	Levels   string `gorm:"size:50;default:'A1,A2,B1,B2,C1,C2'" json:"levels"`
	Category string `gorm:"size:50;default:'grammar'" json:"category"`
	IsActive bool   `gorm:"default:true" json:"isActive"`
}

func (Topic) TableName() string {
	return "topics"
}

// CategoryForTopicCode infers a category for topics minted by the generator.
func CategoryForTopicCode(code string) string {
	switch {
	case strings.Contains(code, "vocab") || strings.Contains(code, "word"):
		return CategoryVocabulary
	case strings.Contains(code, "read") || strings.Contains(code, "text"):
		return CategoryReading
	case strings.Contains(code, "use") || strings.Contains(code, "practice"):
		return CategoryUsage
	default:
		return CategoryGrammar
	}
}
