package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;unique;not null" json:"email"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	Role      UserRole  `gorm:"size:20;default:'student'" json:"role"`
	Disabled  bool      `gorm:"default:false" json:"disabled"`
	LastLogin time.Time `json:"lastLogin"`
}

func (User) TableName() string {
	return "users"
}

// Profile carries the learner-facing state that drives prompt personalization
// and progression. One row per user, created on demand.
type Profile struct {
	BaseModel
	UserID           uint       `gorm:"uniqueIndex;not null" json:"userId"`
	About            string     `gorm:"size:250" json:"about"`
	Interests        string     `gorm:"size:250" json:"interests"`
	LearningGoals    string     `gorm:"size:250" json:"learningGoals"`
	LanguageLevel    string     `gorm:"size:2;default:'A1'" json:"languageLevel"`
	DaysStreak       int        `gorm:"default:0" json:"daysStreak"`
	LastActivityDate *time.Time `json:"lastActivityDate"`
	LessonsCompleted int        `gorm:"default:0" json:"lessonsCompleted"`
	WordsLearned     int        `gorm:"default:0" json:"wordsLearned"`
}

func (Profile) TableName() string {
	return "profiles"
}
