package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"englishforyou_backend/internal/model"
	"englishforyou_backend/internal/repository"
	"englishforyou_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestLessonService(t *testing.T, db *gorm.DB, gen Generator) *LessonService {
	t.Helper()
	return NewLessonService(
		repository.NewLessonRepository(db),
		repository.NewUserRepository(db),
		repository.NewTestRepository(db),
		gen,
		nil,
		newTestConfig(),
	)
}

func createCompletedTest(t *testing.T, db *gorm.DB, userID uint) *model.TestSession {
	t.Helper()
	now := time.Now()
	session := &model.TestSession{
		UserID:          userID,
		Status:          model.TestStatusCompleted,
		State:           model.NewTestState(),
		StartedAt:       now.Add(-20 * time.Minute),
		CompletedAt:     &now,
		TotalQuestions:  10,
		CorrectAnswers:  7,
		Score:           70,
		DeterminedLevel: "B1",
	}
	require.NoError(t, db.Create(session).Error)
	return session
}

const blockInfoJSON = `{
	"title": "Present Perfect in Daily Life",
	"description": "A block about the present perfect tense.",
	"level": "B1",
	"difficulty_level": 1,
	"grammar_topic": "present_perfect"
}`

func exercisesJSON() string {
	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < 5; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{
			"question": "Exercise %d",
			"type": "single_choice",
			"options": ["one", "two", "three"],
			"correct_answer": 1,
			"explanation": "because"
		}`, i+1)
	}
	b.WriteString("]")
	return b.String()
}

func lessonJSON(lessonType string) string {
	extra := ""
	if lessonType == model.LessonTypeVocabulary {
		extra = `"words": [
			{"word": "achieve", "definition": "to succeed in doing something"},
			{"word": "recent", "definition": "happening a short time ago"},
			{"word": "experience", "definition": "knowledge from doing things"}
		],`
	}
	if lessonType == model.LessonTypeReading {
		extra = `"text": "A short passage using the present perfect.",`
	}
	return fmt.Sprintf(`{
		"title": "%s lesson",
		"content": {
			"explanation": "Lesson body.",
			%s
			"exercises": %s
		}
	}`, lessonType, extra, exercisesJSON())
}

// pipelineGenerator answers the planning prompt and the three lesson
// prompts the way the real model would.
func pipelineGenerator() *fakeGenerator {
	return &fakeGenerator{respond: func(prompt string, _ int) (string, error) {
		switch {
		case strings.Contains(prompt, "Plan the next English lesson block"):
			return "```json\n" + blockInfoJSON + "\n```", nil
		case strings.Contains(prompt, "Write a grammar lesson"):
			return lessonJSON(model.LessonTypeGrammar), nil
		case strings.Contains(prompt, "Write a vocabulary lesson"):
			return lessonJSON(model.LessonTypeVocabulary), nil
		case strings.Contains(prompt, "Write a reading lesson"):
			return lessonJSON(model.LessonTypeReading), nil
		}
		return "", fmt.Errorf("unexpected prompt: %s", prompt)
	}}
}

func TestGenerateBlockRequiresCompletedTest(t *testing.T) {
	db := newTestDB(t)
	svc := newTestLessonService(t, db, pipelineGenerator())
	user := createTestUser(t, db)

	_, err := svc.GenerateBlock(context.Background(), user.ID)
	assert.ErrorIs(t, err, util.ErrTestRequired)
}

func TestGenerateBlockHappyPath(t *testing.T) {
	db := newTestDB(t)
	svc := newTestLessonService(t, db, pipelineGenerator())
	user := createTestUser(t, db)
	createCompletedTest(t, db, user.ID)

	block, err := svc.GenerateBlock(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, block.Order)
	assert.Equal(t, "present_perfect", block.GrammarTopic)
	assert.Equal(t, "B1", block.Level)

	require.Len(t, block.Lessons, 3)
	for i, want := range model.LessonOrder {
		assert.Equal(t, want, block.Lessons[i].LessonType)
		assert.Equal(t, i+1, block.Lessons[i].Order)
	}

	// Only the grammar lesson starts unlocked.
	var progresses []model.LessonProgress
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&progresses).Error)
	require.Len(t, progresses, 3)
	unlockedByLesson := map[uint]bool{}
	for _, p := range progresses {
		unlockedByLesson[p.LessonID] = p.IsUnlocked
		assert.False(t, p.IsCompleted)
	}
	assert.True(t, unlockedByLesson[block.Lessons[0].ID])
	assert.False(t, unlockedByLesson[block.Lessons[1].ID])
	assert.False(t, unlockedByLesson[block.Lessons[2].ID])
}

func TestGenerateBlockPlanningFailureAborts(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{respond: func(string, int) (string, error) {
		return "", fmt.Errorf("upstream down")
	}}
	svc := newTestLessonService(t, db, gen)
	user := createTestUser(t, db)
	createCompletedTest(t, db, user.ID)

	_, err := svc.GenerateBlock(context.Background(), user.ID)
	assert.ErrorIs(t, err, util.ErrGenerationFailed)
	assert.Equal(t, 1, gen.calls)

	var count int64
	db.Model(&model.LessonBlock{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestGenerateBlockLessonFailureIsAtomic(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{respond: func(prompt string, _ int) (string, error) {
		switch {
		case strings.Contains(prompt, "Plan the next English lesson block"):
			return blockInfoJSON, nil
		case strings.Contains(prompt, "Write a vocabulary lesson"):
			return "", fmt.Errorf("upstream down")
		}
		return lessonJSON(model.LessonTypeGrammar), nil
	}}
	svc := newTestLessonService(t, db, gen)
	user := createTestUser(t, db)
	createCompletedTest(t, db, user.ID)

	_, err := svc.GenerateBlock(context.Background(), user.ID)
	require.ErrorIs(t, err, util.ErrGenerationFailed)
	assert.Contains(t, err.Error(), "vocabulary")

	var blocks, lessons, progresses int64
	db.Model(&model.LessonBlock{}).Count(&blocks)
	db.Model(&model.Lesson{}).Count(&lessons)
	db.Model(&model.LessonProgress{}).Count(&progresses)
	assert.EqualValues(t, 0, blocks)
	assert.EqualValues(t, 0, lessons)
	assert.EqualValues(t, 0, progresses)
}

func TestGenerateBlockRejectsUnfinishedBlock(t *testing.T) {
	db := newTestDB(t)
	svc := newTestLessonService(t, db, pipelineGenerator())
	user := createTestUser(t, db)
	createCompletedTest(t, db, user.ID)

	_, err := svc.GenerateBlock(context.Background(), user.ID)
	require.NoError(t, err)

	_, err = svc.GenerateBlock(context.Background(), user.ID)
	assert.ErrorIs(t, err, util.ErrBlockInProgress)
}

func finishBlockLessons(t *testing.T, db *gorm.DB, score float64) {
	t.Helper()
	require.NoError(t, db.Model(&model.LessonProgress{}).Where("1 = 1").Updates(map[string]interface{}{
		"is_unlocked":  true,
		"is_completed": true,
		"best_score":   score,
		"attempts":     1,
	}).Error)
	require.NoError(t, db.Model(&model.LessonBlock{}).Where("1 = 1").Updates(map[string]interface{}{
		"is_completed":       true,
		"is_passed":          score >= 80,
		"completion_percent": 100,
		"completed_at":       time.Now(),
	}).Error)
}

func TestNextBlockDifficultyFollowsScores(t *testing.T) {
	db := newTestDB(t)
	var prompts []string
	gen := pipelineGenerator()
	base := gen.respond
	gen.respond = func(prompt string, maxTokens int) (string, error) {
		prompts = append(prompts, prompt)
		return base(prompt, maxTokens)
	}
	svc := newTestLessonService(t, db, gen)
	user := createTestUser(t, db)
	createCompletedTest(t, db, user.ID)

	_, err := svc.GenerateBlock(context.Background(), user.ID)
	require.NoError(t, err)
	finishBlockLessons(t, db, 95)

	prompts = nil
	block, err := svc.GenerateBlock(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, block.Order)

	// A strong previous block pushes the requested difficulty up, and the
	// covered topic is offered to the planner for exclusion.
	require.NotEmpty(t, prompts)
	assert.Contains(t, prompts[0], "difficulty 2 of 5")
	assert.Contains(t, prompts[0], "present_perfect")
}

func TestBoardReflectsProgress(t *testing.T) {
	db := newTestDB(t)
	svc := newTestLessonService(t, db, pipelineGenerator())
	user := createTestUser(t, db)
	createCompletedTest(t, db, user.ID)

	block, err := svc.GenerateBlock(context.Background(), user.ID)
	require.NoError(t, err)

	board, err := svc.Board(user.ID)
	require.NoError(t, err)
	require.Len(t, board.Blocks, 1)
	assert.Equal(t, block.ID, board.Blocks[0].ID)
	assert.False(t, board.Blocks[0].IsCompleted)
	assert.True(t, board.HasIncompleteBlock)
	assert.InDelta(t, 0, board.Blocks[0].CompletionPercent, 0.001)
	require.Len(t, board.Blocks[0].Lessons, 3)
	assert.True(t, board.Blocks[0].Lessons[0].IsUnlocked)
	assert.False(t, board.Blocks[0].Lessons[1].IsUnlocked)

	finishBlockLessons(t, db, 90)

	board, err = svc.Board(user.ID)
	require.NoError(t, err)
	assert.True(t, board.Blocks[0].IsCompleted)
	assert.True(t, board.Blocks[0].IsPassed)
	assert.False(t, board.HasIncompleteBlock)
	assert.InDelta(t, 100, board.Blocks[0].CompletionPercent, 0.001)
}

func TestGetLessonStripsAnswers(t *testing.T) {
	db := newTestDB(t)
	svc := newTestLessonService(t, db, pipelineGenerator())
	user := createTestUser(t, db)
	createCompletedTest(t, db, user.ID)

	block, err := svc.GenerateBlock(context.Background(), user.ID)
	require.NoError(t, err)

	view, err := svc.GetLesson(user.ID, block.Lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.LessonTypeGrammar, view.LessonType)

	exercises, ok := view.Content["exercises"].([]interface{})
	require.True(t, ok)
	require.Len(t, exercises, 5)
	for _, raw := range exercises {
		exercise := raw.(map[string]interface{})
		assert.NotContains(t, exercise, "correct_answer")
		assert.NotContains(t, exercise, "explanation")
		assert.Contains(t, exercise, "question")
	}

	raw, err := json.Marshal(view.Content)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "correct_answer")
}

func TestGetLessonAccessControl(t *testing.T) {
	db := newTestDB(t)
	svc := newTestLessonService(t, db, pipelineGenerator())
	user := createTestUser(t, db)
	createCompletedTest(t, db, user.ID)

	block, err := svc.GenerateBlock(context.Background(), user.ID)
	require.NoError(t, err)

	_, err = svc.GetLesson(user.ID, block.Lessons[1].ID)
	assert.ErrorIs(t, err, util.ErrLessonLocked)

	stranger := &model.User{Name: "Other", Email: "other@example.com", Password: "x", Role: model.Student}
	require.NoError(t, db.Create(stranger).Error)
	_, err = svc.GetLesson(stranger.ID, block.Lessons[0].ID)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)

	_, err = svc.GetLesson(user.ID, 9999)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)
}
