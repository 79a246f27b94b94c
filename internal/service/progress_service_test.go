package service

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"englishforyou_backend/internal/model"
	"englishforyou_backend/internal/repository"
	"englishforyou_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestProgressService(t *testing.T, db *gorm.DB) *ProgressService {
	t.Helper()
	return NewProgressService(
		repository.NewLessonRepository(db),
		repository.NewUserRepository(db),
		newTestConfig(),
	)
}

// generateUserBlock seeds a completed test and runs the pipeline once so the
// progress tests work against a real persisted block.
func generateUserBlock(t *testing.T, db *gorm.DB, userID uint) *model.LessonBlock {
	t.Helper()
	createCompletedTest(t, db, userID)
	svc := newTestLessonService(t, db, pipelineGenerator())
	block, err := svc.GenerateBlock(context.Background(), userID)
	require.NoError(t, err)
	return block
}

// lessonAnswers builds a submission map with the first n of the lesson's five
// exercises marked correct.
func lessonAnswers(correct int) map[string]json.RawMessage {
	answers := make(map[string]json.RawMessage, 5)
	for i := 0; i < 5; i++ {
		if i < correct {
			answers[strconv.Itoa(i)] = json.RawMessage(`{"answer": 1, "is_correct": true}`)
		} else {
			answers[strconv.Itoa(i)] = json.RawMessage(`{"answer": 2, "is_correct": false}`)
		}
	}
	return answers
}

func TestCheckExercise(t *testing.T) {
	db := newTestDB(t)
	svc := newTestProgressService(t, db)
	user := createTestUser(t, db)
	block := generateUserBlock(t, db, user.ID)
	lessonID := block.Lessons[0].ID

	check, err := svc.CheckExercise(user.ID, lessonID, 0, json.RawMessage(`1`))
	require.NoError(t, err)
	assert.True(t, check.IsCorrect)
	assert.Equal(t, "because", check.Explanation)

	check, err = svc.CheckExercise(user.ID, lessonID, 0, json.RawMessage(`2`))
	require.NoError(t, err)
	assert.False(t, check.IsCorrect)

	_, err = svc.CheckExercise(user.ID, lessonID, 5, json.RawMessage(`1`))
	assert.ErrorIs(t, err, util.ErrExerciseNotFound)
	_, err = svc.CheckExercise(user.ID, lessonID, -1, json.RawMessage(`1`))
	assert.ErrorIs(t, err, util.ErrExerciseNotFound)

	// Checking never marks anything complete.
	progress, err := svc.LessonRepo.GetOrCreateProgress(user.ID, lessonID)
	require.NoError(t, err)
	assert.False(t, progress.IsCompleted)
	assert.Equal(t, 0, progress.Attempts)
}

func TestCheckExerciseRespectsLocks(t *testing.T) {
	db := newTestDB(t)
	svc := newTestProgressService(t, db)
	user := createTestUser(t, db)
	block := generateUserBlock(t, db, user.ID)

	_, err := svc.CheckExercise(user.ID, block.Lessons[1].ID, 0, json.RawMessage(`1`))
	assert.ErrorIs(t, err, util.ErrLessonLocked)
}

func TestCompleteLessonScoresSubmittedAnswers(t *testing.T) {
	db := newTestDB(t)
	svc := newTestProgressService(t, db)
	user := createTestUser(t, db)
	block := generateUserBlock(t, db, user.ID)
	lessonID := block.Lessons[0].ID

	// The score comes from the answer map, not from the client.
	result, err := svc.CompleteLesson(user.ID, lessonID, lessonAnswers(3))
	require.NoError(t, err)
	assert.InDelta(t, 60, result.Score, 0.001)
	assert.False(t, result.Passed)

	progress, err := svc.LessonRepo.GetOrCreateProgress(user.ID, lessonID)
	require.NoError(t, err)
	assert.InDelta(t, 60, progress.CurrentScore, 0.001)

	// The raw submission is kept on the progress row.
	var snapshot map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(progress.ExercisesData, &snapshot))
	assert.Len(t, snapshot, 5)
	assert.Contains(t, snapshot, "0")

	// No answers at all scores zero.
	result, err = svc.CompleteLesson(user.ID, lessonID, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0, result.Score, 0.001)
}

func TestCompleteLessonBelowPassScore(t *testing.T) {
	db := newTestDB(t)
	svc := newTestProgressService(t, db)
	user := createTestUser(t, db)
	block := generateUserBlock(t, db, user.ID)

	result, err := svc.CompleteLesson(user.ID, block.Lessons[0].ID, lessonAnswers(3))
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.InDelta(t, 60, result.BestScore, 0.001)
	assert.Zero(t, result.UnlockedLesson)

	progress, err := svc.LessonRepo.GetOrCreateProgress(user.ID, block.Lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Attempts)
	assert.False(t, progress.IsCompleted)

	// The second lesson stays locked.
	next, err := svc.LessonRepo.GetOrCreateProgress(user.ID, block.Lessons[1].ID)
	require.NoError(t, err)
	assert.False(t, next.IsUnlocked)

	// A failed attempt never starts a streak.
	profile, err := svc.UserRepo.GetOrCreateProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, profile.DaysStreak)
	assert.Nil(t, profile.LastActivityDate)
}

func TestCompleteLessonPassUnlocksNext(t *testing.T) {
	db := newTestDB(t)
	svc := newTestProgressService(t, db)
	user := createTestUser(t, db)
	block := generateUserBlock(t, db, user.ID)

	result, err := svc.CompleteLesson(user.ID, block.Lessons[0].ID, lessonAnswers(4))
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, block.Lessons[1].ID, result.UnlockedLesson)
	assert.False(t, result.BlockCompleted)

	progress, err := svc.LessonRepo.GetOrCreateProgress(user.ID, block.Lessons[0].ID)
	require.NoError(t, err)
	assert.True(t, progress.IsCompleted)
	require.NotNil(t, progress.CompletedAt)

	profile, err := svc.UserRepo.GetOrCreateProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, profile.LessonsCompleted)

	// Passing one lesson does not move the streak, only a passed block does.
	assert.Equal(t, 0, profile.DaysStreak)
	assert.Nil(t, profile.LastActivityDate)
}

func TestCompleteLessonBestScoreOnlyGoesUp(t *testing.T) {
	db := newTestDB(t)
	svc := newTestProgressService(t, db)
	user := createTestUser(t, db)
	block := generateUserBlock(t, db, user.ID)

	_, err := svc.CompleteLesson(user.ID, block.Lessons[0].ID, lessonAnswers(5))
	require.NoError(t, err)
	result, err := svc.CompleteLesson(user.ID, block.Lessons[0].ID, lessonAnswers(4))
	require.NoError(t, err)
	assert.InDelta(t, 100, result.BestScore, 0.001)
	assert.Zero(t, result.UnlockedLesson, "repeat pass must not re-unlock")

	progress, err := svc.LessonRepo.GetOrCreateProgress(user.ID, block.Lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Attempts)
	assert.InDelta(t, 100, progress.BestScore, 0.001)
	assert.InDelta(t, 80, progress.CurrentScore, 0.001)

	// The second completion does not bump the lesson counter again.
	profile, err := svc.UserRepo.GetOrCreateProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, profile.LessonsCompleted)
}

func TestVocabularyLessonCountsWords(t *testing.T) {
	db := newTestDB(t)
	svc := newTestProgressService(t, db)
	user := createTestUser(t, db)
	block := generateUserBlock(t, db, user.ID)

	_, err := svc.CompleteLesson(user.ID, block.Lessons[0].ID, lessonAnswers(4))
	require.NoError(t, err)

	// The vocabulary lesson content carries three words.
	_, err = svc.CompleteLesson(user.ID, block.Lessons[1].ID, lessonAnswers(4))
	require.NoError(t, err)

	profile, err := svc.UserRepo.GetOrCreateProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, profile.WordsLearned)

	// Repeating the vocabulary lesson does not double-count.
	_, err = svc.CompleteLesson(user.ID, block.Lessons[1].ID, lessonAnswers(5))
	require.NoError(t, err)
	profile, err = svc.UserRepo.GetOrCreateProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, profile.WordsLearned)
}

func TestCompleteLessonRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	svc := newTestProgressService(t, db)
	user := createTestUser(t, db)
	block := generateUserBlock(t, db, user.ID)

	// Break the profile table so the completion fails midway.
	require.NoError(t, db.Migrator().DropTable(&model.Profile{}))

	_, err := svc.CompleteLesson(user.ID, block.Lessons[0].ID, lessonAnswers(5))
	require.Error(t, err)

	// Nothing of the attempt survives the rollback.
	progress, err := svc.LessonRepo.GetOrCreateProgress(user.ID, block.Lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, progress.Attempts)
	assert.False(t, progress.IsCompleted)
	assert.Empty(t, progress.ExercisesData)

	next, err := svc.LessonRepo.GetOrCreateProgress(user.ID, block.Lessons[1].ID)
	require.NoError(t, err)
	assert.False(t, next.IsUnlocked)
}

func completeBlock(t *testing.T, svc *ProgressService, userID uint, block *model.LessonBlock, correct int) *CompletionResult {
	t.Helper()
	var last *CompletionResult
	for _, lesson := range block.Lessons {
		result, err := svc.CompleteLesson(userID, lesson.ID, lessonAnswers(correct))
		require.NoError(t, err)
		last = result
	}
	return last
}

func TestBlockCompletionAndPass(t *testing.T) {
	db := newTestDB(t)
	svc := newTestProgressService(t, db)
	user := createTestUser(t, db)
	block := generateUserBlock(t, db, user.ID)

	result := completeBlock(t, svc, user.ID, block, 4)
	assert.True(t, result.BlockCompleted)
	assert.True(t, result.BlockPassed)
	assert.False(t, result.LeveledUp)
	assert.Equal(t, 1, result.DaysStreak)

	// The outcome is stamped on the block row itself.
	var stored model.LessonBlock
	require.NoError(t, db.First(&stored, block.ID).Error)
	assert.True(t, stored.IsCompleted)
	assert.True(t, stored.IsPassed)
	assert.InDelta(t, 100, stored.CompletionPercent, 0.001)
	require.NotNil(t, stored.CompletedAt)

	incomplete, err := svc.LessonRepo.HasIncompleteBlock(user.ID)
	require.NoError(t, err)
	assert.False(t, incomplete)

	passedBlocks, err := svc.LessonRepo.CountPassedBlocks(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, passedBlocks)
}

func TestStreakMovesOnlyOnPassedBlock(t *testing.T) {
	db := newTestDB(t)
	svc := newTestProgressService(t, db)
	user := createTestUser(t, db)
	block := generateUserBlock(t, db, user.ID)

	// Two passed lessons leave the streak alone.
	_, err := svc.CompleteLesson(user.ID, block.Lessons[0].ID, lessonAnswers(5))
	require.NoError(t, err)
	_, err = svc.CompleteLesson(user.ID, block.Lessons[1].ID, lessonAnswers(5))
	require.NoError(t, err)

	profile, err := svc.UserRepo.GetOrCreateProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, profile.DaysStreak)

	// The third pass completes the block and starts the streak.
	result, err := svc.CompleteLesson(user.ID, block.Lessons[2].ID, lessonAnswers(5))
	require.NoError(t, err)
	assert.True(t, result.BlockPassed)
	assert.Equal(t, 1, result.DaysStreak)

	profile, err = svc.UserRepo.GetOrCreateProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, profile.DaysStreak)
	require.NotNil(t, profile.LastActivityDate)
}

func TestLevelUpAfterEnoughPassedBlocks(t *testing.T) {
	db := newTestDB(t)
	svc := newTestProgressService(t, db)
	svc.Cfg.Lessons.LevelUpBlocks = 1
	user := createTestUser(t, db)
	block := generateUserBlock(t, db, user.ID)

	profile, err := svc.UserRepo.GetOrCreateProfile(user.ID)
	require.NoError(t, err)
	profile.LanguageLevel = "A1"
	require.NoError(t, svc.UserRepo.SaveProfile(profile))

	result := completeBlock(t, svc, user.ID, block, 5)
	assert.True(t, result.BlockPassed)
	assert.True(t, result.LeveledUp)
	assert.Equal(t, "A2", result.NewLevel)

	profile, err = svc.UserRepo.GetOrCreateProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "A2", profile.LanguageLevel)
}

func TestCompleteLessonLockedAndForeign(t *testing.T) {
	db := newTestDB(t)
	svc := newTestProgressService(t, db)
	user := createTestUser(t, db)
	block := generateUserBlock(t, db, user.ID)

	_, err := svc.CompleteLesson(user.ID, block.Lessons[2].ID, lessonAnswers(5))
	assert.ErrorIs(t, err, util.ErrLessonLocked)

	stranger := &model.User{Name: "Other", Email: "foreign@example.com", Password: "x", Role: model.Student}
	require.NoError(t, db.Create(stranger).Error)
	_, err = svc.CompleteLesson(stranger.ID, block.Lessons[0].ID, lessonAnswers(5))
	assert.ErrorIs(t, err, util.ErrLessonNotFound)
}

func TestStreakTransitions(t *testing.T) {
	profile := &model.Profile{}
	loc := time.FixedZone("UTC+3", 3*3600)
	lateEvening := time.Date(2026, 3, 10, 23, 30, 0, 0, loc)

	applyStreak(profile, lateEvening)
	assert.Equal(t, 1, profile.DaysStreak)
	require.NotNil(t, profile.LastActivityDate)

	// Shortly after midnight is already the next calendar day.
	applyStreak(profile, time.Date(2026, 3, 11, 0, 30, 0, 0, loc))
	assert.Equal(t, 2, profile.DaysStreak)

	// The same day is a no-op.
	applyStreak(profile, time.Date(2026, 3, 11, 18, 0, 0, 0, loc))
	assert.Equal(t, 2, profile.DaysStreak)

	// A missed day resets it.
	applyStreak(profile, time.Date(2026, 3, 14, 9, 0, 0, 0, loc))
	assert.Equal(t, 1, profile.DaysStreak)
}
