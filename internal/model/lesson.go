package model

import (
	"encoding/json"
	"time"
)

const (
	LessonTypeGrammar    = "grammar"
	LessonTypeVocabulary = "vocabulary"
	LessonTypeReading    = "reading"
)

// LessonOrder fixes the lesson sequence within every block.
var LessonOrder = []string{LessonTypeGrammar, LessonTypeVocabulary, LessonTypeReading}

// LessonBlock is one generated unit of three lessons on a shared grammar
// topic.
type LessonBlock struct {
	BaseModel
	UserID            uint       `gorm:"index;not null" json:"userId"`
	User              User       `gorm:"foreignKey:UserID" json:"-"`
	Title             string     `gorm:"size:255;not null" json:"title"`
	Description       string     `gorm:"type:text" json:"description"`
	Level             string     `gorm:"size:2;not null" json:"level"`
	DifficultyLevel   int        `gorm:"default:1" json:"difficultyLevel"`
	GrammarTopic      string     `gorm:"size:255" json:"grammarTopic"`
	Order             int        `gorm:"column:block_order;not null" json:"order"`
	IsCompleted       bool       `gorm:"default:false;index" json:"isCompleted"`
	IsPassed          bool       `gorm:"default:false;index" json:"isPassed"`
	CompletionPercent float64    `gorm:"default:0" json:"completionPercent"`
	CompletedAt       *time.Time `json:"completedAt"`
	Lessons           []Lesson   `gorm:"foreignKey:BlockID" json:"lessons,omitempty"`
}

func (LessonBlock) TableName() string {
	return "lesson_blocks"
}

// Lesson is a single unit of content with its exercises stored as JSON.
type Lesson struct {
	BaseModel
	BlockID    uint            `gorm:"index;not null" json:"blockId"`
	Block      LessonBlock     `gorm:"foreignKey:BlockID" json:"-"`
	Title      string          `gorm:"size:255;not null" json:"title"`
	LessonType string          `gorm:"size:20;not null" json:"lessonType"`
	Content    json.RawMessage `gorm:"type:json" json:"content"`
	Order      int             `gorm:"column:lesson_order;not null" json:"order"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// LessonProgress tracks a user's attempts on one lesson. ExercisesData keeps
// the raw answer map of the latest submission.
type LessonProgress struct {
	BaseModel
	UserID        uint            `gorm:"uniqueIndex:idx_user_lesson;not null" json:"userId"`
	User          User            `gorm:"foreignKey:UserID" json:"-"`
	LessonID      uint            `gorm:"uniqueIndex:idx_user_lesson;not null" json:"lessonId"`
	Lesson        Lesson          `gorm:"foreignKey:LessonID" json:"-"`
	IsUnlocked    bool            `gorm:"default:false" json:"isUnlocked"`
	IsCompleted   bool            `gorm:"default:false" json:"isCompleted"`
	BestScore     float64         `gorm:"default:0" json:"bestScore"`
	CurrentScore  float64         `gorm:"default:0" json:"currentScore"`
	Attempts      int             `gorm:"default:0" json:"attempts"`
	ExercisesData json.RawMessage `gorm:"type:json" json:"exercisesData,omitempty"`
	CompletedAt   *time.Time      `json:"completedAt"`
}

func (LessonProgress) TableName() string {
	return "lesson_progresses"
}
