package model

import "time"

const (
	TestStatusInProgress = "in_progress"
	TestStatusCompleted  = "completed"
	TestStatusAbandoned  = "abandoned"
	TestStatusTimeout    = "timeout"
)

const (
	// TestMaxQuestions ends the test automatically once reached.
	TestMaxQuestions = 30
	// TestMinQuestions is required before an early finish is accepted.
	TestMinQuestions = 10
	// TestDuration is the wall-clock budget for a session.
	TestDuration = 30 * time.Minute
)

// TestSession is one placement test run for a user.
type TestSession struct {
	BaseModel
	UserID         uint       `gorm:"index;not null" json:"userId"`
	User           User       `gorm:"foreignKey:UserID" json:"-"`
	Status         string     `gorm:"size:20;not null;default:'in_progress';index" json:"status"`
	State          TestState  `gorm:"type:json" json:"-"`
	StartedAt      time.Time  `json:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt"`
	TotalQuestions int        `gorm:"default:0" json:"totalQuestions"`
	CorrectAnswers int        `gorm:"default:0" json:"correctAnswers"`
	Score          float64    `gorm:"default:0" json:"score"`
	DeterminedLevel string    `gorm:"size:2" json:"determinedLevel"`
	GrammarScore    float64   `gorm:"default:0" json:"grammarScore"`
	VocabularyScore float64   `gorm:"default:0" json:"vocabularyScore"`
	ReadingScore    float64   `gorm:"default:0" json:"readingScore"`
	UsageScore      float64   `gorm:"default:0" json:"usageScore"`
	TimeSpent       int       `gorm:"default:0" json:"timeSpent"`
}

func (TestSession) TableName() string {
	return "test_sessions"
}

func (s *TestSession) Percentage() float64 {
	if s.TotalQuestions == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.TotalQuestions) * 100
}

func (s *TestSession) Deadline() time.Time {
	return s.StartedAt.Add(TestDuration)
}

func (s *TestSession) IsExpired(now time.Time) bool {
	return now.After(s.Deadline())
}

// TimeRemaining reports whole seconds left, never negative.
func (s *TestSession) TimeRemaining(now time.Time) int {
	remaining := s.Deadline().Sub(now)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds())
}

// TimeWarning grades the remaining seconds for client display: "critical"
// under one minute, "low" under five, empty otherwise.
func TimeWarning(seconds int) string {
	switch {
	case seconds < 60:
		return "critical"
	case seconds < 300:
		return "low"
	default:
		return ""
	}
}

// Complete finalizes the session with its score and determined level.
func (s *TestSession) Complete(now time.Time) {
	s.Status = TestStatusCompleted
	s.CompletedAt = &now
	s.Score = s.Percentage()
	s.DeterminedLevel = LevelForPercentage(s.Score)
	s.TimeSpent = int(now.Sub(s.StartedAt).Seconds())
}

// Timeout marks the session expired. Answers given before the deadline still
// produce a level, and the full budget is booked as time spent.
func (s *TestSession) Timeout(now time.Time) {
	s.Status = TestStatusTimeout
	s.CompletedAt = &now
	s.TimeSpent = int(TestDuration.Seconds())
	if s.TotalQuestions > 0 {
		s.Score = s.Percentage()
		s.DeterminedLevel = LevelForPercentage(s.Score)
	}
}
