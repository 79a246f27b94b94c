package service

import (
	"encoding/json"
	"errors"
	"math"
	"time"

	"englishforyou_backend/internal/config"
	"englishforyou_backend/internal/model"
	"englishforyou_backend/internal/repository"
	"englishforyou_backend/internal/util"
	"englishforyou_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressService checks exercise answers and applies lesson completion:
// unlocks, streaks, word counts, and level progression.
type ProgressService struct {
	LessonRepo *repository.LessonRepository
	UserRepo   *repository.UserRepository
	Cfg        *config.Config
}

func NewProgressService(lessonRepo *repository.LessonRepository, userRepo *repository.UserRepository, cfg *config.Config) *ProgressService {
	return &ProgressService{LessonRepo: lessonRepo, UserRepo: userRepo, Cfg: cfg}
}

// ExerciseCheck is the feedback for one checked exercise.
type ExerciseCheck struct {
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation"`
}

// CheckExercise grades one exercise of an unlocked lesson without touching
// any progress state.
func (s *ProgressService) CheckExercise(userID, lessonID uint, exerciseIndex int, userAnswer json.RawMessage) (*ExerciseCheck, error) {
	lesson, err := s.loadAccessibleLesson(userID, lessonID)
	if err != nil {
		return nil, err
	}

	var content map[string]interface{}
	if err := json.Unmarshal(lesson.Content, &content); err != nil {
		return nil, err
	}
	exercises, ok := content["exercises"].([]interface{})
	if !ok || exerciseIndex < 0 || exerciseIndex >= len(exercises) {
		return nil, util.ErrExerciseNotFound
	}
	exercise, ok := exercises[exerciseIndex].(map[string]interface{})
	if !ok {
		return nil, util.ErrExerciseNotFound
	}

	exType, _ := exercise["type"].(string)
	var user interface{}
	if len(userAnswer) > 0 {
		json.Unmarshal(userAnswer, &user)
	}

	check := &ExerciseCheck{
		IsCorrect: util.CheckExerciseAnswer(exType, user, exercise["correct_answer"]),
	}
	if explanation, ok := exercise["explanation"].(string); ok {
		check.Explanation = explanation
	}
	return check, nil
}

// CompletionResult reports what a finished attempt changed.
type CompletionResult struct {
	Passed         bool    `json:"passed"`
	Score          float64 `json:"score"`
	BestScore      float64 `json:"bestScore"`
	UnlockedLesson uint    `json:"unlockedLesson,omitempty"`
	BlockCompleted bool    `json:"blockCompleted"`
	BlockPassed    bool    `json:"blockPassed"`
	LeveledUp      bool    `json:"leveledUp"`
	NewLevel       string  `json:"newLevel,omitempty"`
	DaysStreak     int     `json:"daysStreak"`
}

// CompleteLesson scores one submitted attempt over the lesson's exercises and
// records it. Attempts always count and the best score only goes up. A passing
// score marks the first completion, unlocks the next lesson, and feeds the
// profile counters. Everything the attempt changes is written in one
// transaction.
func (s *ProgressService) CompleteLesson(userID, lessonID uint, exercises map[string]json.RawMessage) (*CompletionResult, error) {
	lesson, err := s.loadAccessibleLesson(userID, lessonID)
	if err != nil {
		return nil, err
	}

	var content map[string]interface{}
	if err := json.Unmarshal(lesson.Content, &content); err != nil {
		return nil, err
	}
	score := util.LessonScore(content, exercises)

	if exercises == nil {
		exercises = map[string]json.RawMessage{}
	}
	snapshot, err := json.Marshal(exercises)
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{
		Score:  score,
		Passed: score >= s.Cfg.Lessons.PassScore,
	}

	err = s.LessonRepo.DB.Transaction(func(tx *gorm.DB) error {
		lessonRepo := s.LessonRepo.WithTx(tx)
		userRepo := s.UserRepo.WithTx(tx)

		progress, err := lessonRepo.GetOrCreateProgress(userID, lessonID)
		if err != nil {
			return err
		}

		progress.Attempts++
		progress.CurrentScore = score
		progress.ExercisesData = snapshot
		if score > progress.BestScore {
			progress.BestScore = score
		}
		result.BestScore = progress.BestScore

		firstCompletion := result.Passed && !progress.IsCompleted
		if firstCompletion {
			now := time.Now()
			progress.IsCompleted = true
			progress.CompletedAt = &now

			next, err := lessonRepo.FindNextLesson(lesson)
			if err == nil {
				nextProgress, err := lessonRepo.GetOrCreateProgress(userID, next.ID)
				if err != nil {
					return err
				}
				if !nextProgress.IsUnlocked {
					nextProgress.IsUnlocked = true
					if err := lessonRepo.SaveProgress(nextProgress); err != nil {
						return err
					}
				}
				result.UnlockedLesson = next.ID
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		if err := lessonRepo.SaveProgress(progress); err != nil {
			return err
		}

		profile, err := userRepo.GetOrCreateProfile(userID)
		if err != nil {
			return err
		}

		if firstCompletion {
			profile.LessonsCompleted++
			if lesson.LessonType == model.LessonTypeVocabulary {
				profile.WordsLearned += countLessonWords(lesson)
			}

			completed, passed, err := s.evaluateBlock(lessonRepo, userID, &lesson.Block)
			if err != nil {
				return err
			}
			result.BlockCompleted = completed
			result.BlockPassed = passed

			// The streak and the level counter move only when a whole
			// block is passed.
			if passed {
				applyStreak(profile, time.Now())

				leveled, newLevel, err := s.maybeLevelUp(lessonRepo, userID, profile)
				if err != nil {
					return err
				}
				result.LeveledUp = leveled
				result.NewLevel = newLevel
			}
		}
		result.DaysStreak = profile.DaysStreak

		return userRepo.SaveProfile(profile)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ProgressService) loadAccessibleLesson(userID, lessonID uint) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindLessonByID(lessonID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrLessonNotFound
	}
	if err != nil {
		return nil, err
	}
	if lesson.Block.UserID != userID {
		return nil, util.ErrLessonNotFound
	}

	progress, err := s.LessonRepo.GetOrCreateProgress(userID, lessonID)
	if err != nil {
		return nil, err
	}
	if !progress.IsUnlocked {
		return nil, util.ErrLessonLocked
	}
	return lesson, nil
}

// evaluateBlock re-checks the block after a first lesson completion and, once
// every lesson is done, stamps the completion and pass flags on the block row.
func (s *ProgressService) evaluateBlock(repo *repository.LessonRepository, userID uint, block *model.LessonBlock) (completed, passed bool, err error) {
	lessons, err := repo.ListBlockLessons(block.ID)
	if err != nil {
		return false, false, err
	}
	passed = true
	for _, lesson := range lessons {
		progress, err := repo.GetOrCreateProgress(userID, lesson.ID)
		if err != nil {
			return false, false, err
		}
		if !progress.IsCompleted {
			return false, false, nil
		}
		if progress.BestScore < s.Cfg.Lessons.PassScore {
			passed = false
		}
	}

	now := time.Now()
	block.IsCompleted = true
	block.IsPassed = passed
	block.CompletionPercent = 100
	block.CompletedAt = &now
	if err := repo.SaveBlock(block); err != nil {
		return false, false, err
	}
	return true, passed, nil
}

// maybeLevelUp grants one CEFR step for every LevelUpBlocks fully passed
// blocks, capped at the top of the scale.
func (s *ProgressService) maybeLevelUp(repo *repository.LessonRepository, userID uint, profile *model.Profile) (bool, string, error) {
	passedBlocks, err := repo.CountPassedBlocks(userID)
	if err != nil {
		return false, "", err
	}
	if passedBlocks == 0 || passedBlocks%int64(s.Cfg.Lessons.LevelUpBlocks) != 0 {
		return false, "", nil
	}

	next := model.NextLevelUp(profile.LanguageLevel)
	if next == profile.LanguageLevel {
		return false, "", nil
	}
	profile.LanguageLevel = next
	logger.Log.Info("learner leveled up",
		zap.Uint("user_id", userID),
		zap.String("level", next),
		zap.Int64("passed_blocks", passedBlocks))
	return true, next, nil
}

// applyStreak advances the daily streak after a passed block: a pass on the
// next calendar day extends it, a same-day pass keeps it, a gap resets it to
// one. Days are compared as calendar dates, not 24-hour windows.
func applyStreak(profile *model.Profile, now time.Time) {
	today := midnightOf(now)
	if profile.LastActivityDate != nil {
		last := midnightOf(profile.LastActivityDate.In(now.Location()))
		switch int(math.Round(today.Sub(last).Hours() / 24)) {
		case 0:
			return
		case 1:
			profile.DaysStreak++
			profile.LastActivityDate = &today
			return
		}
	}
	profile.DaysStreak = 1
	profile.LastActivityDate = &today
}

func midnightOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// countLessonWords reads how many vocabulary entries the lesson introduced.
func countLessonWords(lesson *model.Lesson) int {
	var content map[string]interface{}
	if err := json.Unmarshal(lesson.Content, &content); err != nil {
		return 0
	}
	if words, ok := content["words"].([]interface{}); ok {
		return len(words)
	}
	return 0
}
