package service

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"englishforyou_backend/internal/config"
	"englishforyou_backend/internal/model"
	"englishforyou_backend/pkg/database"
	"englishforyou_backend/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Assessment.MaxQuestions = 30
	cfg.Assessment.MinQuestions = 10
	cfg.Assessment.GenerateEveryN = 5
	cfg.Lessons.PassScore = 80
	cfg.Lessons.LevelUpBlocks = 15
	cfg.AI.Dispatch = "errgroup"
	cfg.AI.Workers = 4
	cfg.AI.Timeout = 5 * time.Second
	return cfg
}

// fakeGenerator routes prompts to canned responses.
type fakeGenerator struct {
	respond func(prompt string, maxTokens int) (string, error)
	calls   int
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, maxTokens int) (string, error) {
	f.calls++
	if f.respond == nil {
		return "", fmt.Errorf("no generator configured")
	}
	return f.respond(prompt, maxTokens)
}

func createTestUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	user := &model.User{Name: "Test Learner", Email: fmt.Sprintf("%s@example.com", t.Name()), Password: "x", Role: model.Student}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTopic(t *testing.T, db *gorm.DB, code, category string) *model.Topic {
	t.Helper()
	topic := &model.Topic{Name: code, Code: code, Category: category, IsActive: true, Levels: "A1,A2,B1,B2,C1,C2"}
	require.NoError(t, db.Create(topic).Error)
	return topic
}

func createQuestion(t *testing.T, db *gorm.DB, level string, topicID uint) *model.Question {
	t.Helper()
	question := &model.Question{
		QuestionText:  fmt.Sprintf("question at %s", level),
		QuestionType:  model.QuestionTypeSingle,
		Level:         level,
		TopicID:       topicID,
		Options:       []byte(`["a","b","c"]`),
		CorrectAnswer: []byte(`1`),
		IsActive:      true,
	}
	require.NoError(t, db.Create(question).Error)
	return question
}
