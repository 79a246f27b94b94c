package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"englishforyou_backend/internal/config"
	"englishforyou_backend/internal/model"
	"englishforyou_backend/internal/repository"
	"englishforyou_backend/internal/util"
	"englishforyou_backend/pkg/logger"
	"englishforyou_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// generationLockTTL caps how long a generation lock can linger if the
// process dies mid-pipeline.
const generationLockTTL = 10 * time.Minute

// LessonService builds lesson blocks with the two-stage generation pipeline
// and serves the lesson board.
type LessonService struct {
	LessonRepo *repository.LessonRepository
	UserRepo   *repository.UserRepository
	TestRepo   *repository.TestRepository
	Generator  Generator
	Redis      *redis.Client
	Cfg        *config.Config
	dispatch   dispatcher
}

func NewLessonService(
	lessonRepo *repository.LessonRepository,
	userRepo *repository.UserRepository,
	testRepo *repository.TestRepository,
	generator Generator,
	redisClient *redis.Client,
	cfg *config.Config,
) *LessonService {
	return &LessonService{
		LessonRepo: lessonRepo,
		UserRepo:   userRepo,
		TestRepo:   testRepo,
		Generator:  generator,
		Redis:      redisClient,
		Cfg:        cfg,
		dispatch:   newDispatcher(cfg.AI.Dispatch, cfg.AI.Workers),
	}
}

// GenerateBlock runs the full pipeline for the user's next block: one call
// that plans the block, then three concurrent calls that write its lessons.
// Nothing is persisted unless every stage succeeds.
func (s *LessonService) GenerateBlock(ctx context.Context, userID uint) (*model.LessonBlock, error) {
	if s.Redis != nil {
		lockKey := fmt.Sprintf("lesson_generation:%d", userID)
		ok, err := s.Redis.SetNX(ctx, lockKey, 1, generationLockTTL).Result()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, util.ErrGenerationBusy
		}
		defer s.Redis.Del(context.Background(), lockKey)
	}

	if _, err := s.TestRepo.LatestCompletedByUser(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestRequired
		}
		return nil, err
	}

	incomplete, err := s.LessonRepo.HasIncompleteBlock(userID)
	if err != nil {
		return nil, err
	}
	if incomplete {
		return nil, util.ErrBlockInProgress
	}

	profile, err := s.UserRepo.GetOrCreateProfile(userID)
	if err != nil {
		return nil, err
	}

	difficulty, err := s.nextDifficulty(userID)
	if err != nil {
		return nil, err
	}
	coveredTopics, err := s.LessonRepo.ListGrammarTopics(userID)
	if err != nil {
		return nil, err
	}

	started := time.Now()

	info, err := s.generateBlockInfo(ctx, profile, difficulty, coveredTopics)
	if err != nil {
		logger.Log.Error("block planning failed", zap.Uint("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", util.ErrGenerationFailed, err)
	}

	lessons, err := s.generateLessons(ctx, profile, info)
	if err != nil {
		logger.Log.Error("lesson generation failed",
			zap.Uint("user_id", userID),
			zap.String("grammar_topic", info.GrammarTopic),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", util.ErrGenerationFailed, err)
	}

	maxOrder, err := s.LessonRepo.MaxBlockOrder(userID)
	if err != nil {
		return nil, err
	}

	block := &model.LessonBlock{
		UserID:          userID,
		Title:           info.Title,
		Description:     info.Description,
		Level:           info.Level,
		DifficultyLevel: info.Difficulty,
		GrammarTopic:    info.GrammarTopic,
		Order:           maxOrder + 1,
		Lessons:         lessons,
	}

	// Only the first lesson starts unlocked.
	progresses := make([]model.LessonProgress, len(lessons))
	for i := range progresses {
		progresses[i] = model.LessonProgress{UserID: userID, IsUnlocked: i == 0}
	}

	if err := s.LessonRepo.CreateBlock(block, progresses); err != nil {
		return nil, err
	}

	monitoring.BlocksGenerated.Inc()
	monitoring.BlockGenerationDuration.Observe(time.Since(started).Seconds())
	logger.Log.Info("lesson block generated",
		zap.Uint("user_id", userID),
		zap.Uint("block_id", block.ID),
		zap.String("grammar_topic", block.GrammarTopic),
		zap.Duration("took", time.Since(started)))
	return block, nil
}

// nextDifficulty derives the next block's difficulty from how the last one
// went: strong scores push it up, weak ones pull it down.
func (s *LessonService) nextDifficulty(userID uint) (int, error) {
	block, err := s.LessonRepo.LastBlock(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}

	progresses, err := s.LessonRepo.ListBlockProgress(userID, block.ID)
	if err != nil {
		return 0, err
	}
	if len(progresses) == 0 {
		return block.DifficultyLevel, nil
	}

	var sum float64
	for _, p := range progresses {
		sum += p.BestScore
	}
	avg := sum / float64(len(progresses))

	difficulty := block.DifficultyLevel
	switch {
	case avg >= 90 && difficulty < 5:
		difficulty++
	case avg < 60 && difficulty > 1:
		difficulty--
	}
	return difficulty, nil
}

type blockInfo struct {
	Title        string
	Description  string
	Level        string
	Difficulty   int
	GrammarTopic string
}

func (s *LessonService) generateBlockInfo(ctx context.Context, profile *model.Profile, difficulty int, coveredTopics []string) (*blockInfo, error) {
	prompt := buildBlockInfoPrompt(profile.LanguageLevel, difficulty, coveredTopics, profile.Interests, profile.LearningGoals)
	raw, err := s.Generator.Generate(ctx, prompt, blockInfoMaxTokens)
	if err != nil {
		return nil, err
	}
	doc, err := util.DecodeModelJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := util.ValidateBlockInfo(doc); err != nil {
		return nil, err
	}
	return &blockInfo{
		Title:        doc["title"].(string),
		Description:  doc["description"].(string),
		Level:        doc["level"].(string),
		Difficulty:   int(doc["difficulty_level"].(float64)),
		GrammarTopic: doc["grammar_topic"].(string),
	}, nil
}

// generateLessons runs the three lesson calls through the configured
// dispatcher and assembles them in their fixed order.
func (s *LessonService) generateLessons(ctx context.Context, profile *model.Profile, info *blockInfo) ([]model.Lesson, error) {
	type spec struct {
		lessonType string
		prompt     string
		maxTokens  int
	}
	specs := []spec{
		{model.LessonTypeGrammar, buildGrammarLessonPrompt(info.Level, info.GrammarTopic, info.Difficulty), grammarMaxTokens},
		{model.LessonTypeVocabulary, buildVocabularyLessonPrompt(info.Level, info.GrammarTopic, info.Difficulty, profile.Interests), vocabMaxTokens},
		{model.LessonTypeReading, buildReadingLessonPrompt(info.Level, info.GrammarTopic, info.Difficulty, profile.Interests), readingMaxTokens},
	}

	lessons := make([]model.Lesson, len(specs))
	jobs := make([]generationJob, len(specs))
	for i, sp := range specs {
		i, sp := i, sp
		jobs[i] = generationJob{
			name: sp.lessonType,
			run: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, s.Cfg.AI.Timeout)
				defer cancel()

				raw, err := s.Generator.Generate(ctx, sp.prompt, sp.maxTokens)
				if err != nil {
					return fmt.Errorf("%s lesson: %w", sp.lessonType, err)
				}
				doc, err := util.DecodeModelJSON(raw)
				if err != nil {
					return fmt.Errorf("%s lesson: %w", sp.lessonType, err)
				}
				if err := util.ValidateLessonDocument(doc); err != nil {
					return fmt.Errorf("%s lesson: %w", sp.lessonType, err)
				}
				content, err := json.Marshal(doc["content"])
				if err != nil {
					return err
				}
				lessons[i] = model.Lesson{
					Title:      doc["title"].(string),
					LessonType: sp.lessonType,
					Content:    content,
					Order:      i + 1,
				}
				return nil
			},
		}
	}

	if err := s.dispatch.Dispatch(ctx, jobs); err != nil {
		return nil, err
	}
	return lessons, nil
}

// BoardLesson is one lesson row on the board with the viewer's progress.
type BoardLesson struct {
	ID          uint    `json:"id"`
	Title       string  `json:"title"`
	LessonType  string  `json:"lessonType"`
	Order       int     `json:"order"`
	IsUnlocked  bool    `json:"isUnlocked"`
	IsCompleted bool    `json:"isCompleted"`
	BestScore   float64 `json:"bestScore"`
	Attempts    int     `json:"attempts"`
}

// BoardBlock is one block row on the board.
type BoardBlock struct {
	ID                uint          `json:"id"`
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	Level             string        `json:"level"`
	DifficultyLevel   int           `json:"difficultyLevel"`
	GrammarTopic      string        `json:"grammarTopic"`
	Order             int           `json:"order"`
	IsCompleted       bool          `json:"isCompleted"`
	IsPassed          bool          `json:"isPassed"`
	CompletionPercent float64       `json:"completionPercent"`
	Lessons           []BoardLesson `json:"lessons"`
}

// BoardStats are the learner counters shown next to the blocks.
type BoardStats struct {
	LanguageLevel    string `json:"languageLevel"`
	DaysStreak       int    `json:"daysStreak"`
	LessonsCompleted int    `json:"lessonsCompleted"`
	WordsLearned     int    `json:"wordsLearned"`
}

// BoardView is the full lesson board payload.
type BoardView struct {
	Blocks             []BoardBlock `json:"blocks"`
	HasIncompleteBlock bool         `json:"hasIncompleteBlock"`
	Stats              BoardStats   `json:"stats"`
}

// Board lists the user's blocks oldest first with per-lesson progress, the
// learner's counters, and whether a new block can be generated yet.
func (s *LessonService) Board(userID uint) (*BoardView, error) {
	blocks, err := s.LessonRepo.ListBlocks(userID)
	if err != nil {
		return nil, err
	}

	board := make([]BoardBlock, 0, len(blocks))
	for _, block := range blocks {
		row := BoardBlock{
			ID:                block.ID,
			Title:             block.Title,
			Description:       block.Description,
			Level:             block.Level,
			DifficultyLevel:   block.DifficultyLevel,
			GrammarTopic:      block.GrammarTopic,
			Order:             block.Order,
			IsCompleted:       block.IsCompleted,
			IsPassed:          block.IsPassed,
			CompletionPercent: block.CompletionPercent,
			Lessons:           make([]BoardLesson, 0, len(block.Lessons)),
		}

		progresses, err := s.LessonRepo.ListBlockProgress(userID, block.ID)
		if err != nil {
			return nil, err
		}
		byLesson := make(map[uint]model.LessonProgress, len(progresses))
		for _, p := range progresses {
			byLesson[p.LessonID] = p
		}

		completed := 0
		for _, lesson := range block.Lessons {
			progress := byLesson[lesson.ID]
			if progress.IsCompleted {
				completed++
			}
			row.Lessons = append(row.Lessons, BoardLesson{
				ID:          lesson.ID,
				Title:       lesson.Title,
				LessonType:  lesson.LessonType,
				Order:       lesson.Order,
				IsUnlocked:  progress.IsUnlocked,
				IsCompleted: progress.IsCompleted,
				BestScore:   progress.BestScore,
				Attempts:    progress.Attempts,
			})
		}
		// Open blocks show their partial percentage, finished ones keep
		// the stamped value.
		if n := len(block.Lessons); n > 0 && !block.IsCompleted {
			row.CompletionPercent = float64(completed) / float64(n) * 100
		}
		board = append(board, row)
	}

	incomplete, err := s.LessonRepo.HasIncompleteBlock(userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.UserRepo.GetOrCreateProfile(userID)
	if err != nil {
		return nil, err
	}

	return &BoardView{
		Blocks:             board,
		HasIncompleteBlock: incomplete,
		Stats: BoardStats{
			LanguageLevel:    profile.LanguageLevel,
			DaysStreak:       profile.DaysStreak,
			LessonsCompleted: profile.LessonsCompleted,
			WordsLearned:     profile.WordsLearned,
		},
	}, nil
}

// LessonView is a single lesson with its exercises stripped of answers.
type LessonView struct {
	ID         uint                   `json:"id"`
	BlockID    uint                   `json:"blockId"`
	Title      string                 `json:"title"`
	LessonType string                 `json:"lessonType"`
	Order      int                    `json:"order"`
	Content    map[string]interface{} `json:"content"`
}

// GetLesson returns an unlocked lesson for study. Correct answers and
// explanations never leave the server here, checking happens per exercise.
func (s *LessonService) GetLesson(userID, lessonID uint) (*LessonView, error) {
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

	var content map[string]interface{}
	if err := json.Unmarshal(lesson.Content, &content); err != nil {
		return nil, err
	}
	sanitizeExercises(content)

	return &LessonView{
		ID:         lesson.ID,
		BlockID:    lesson.BlockID,
		Title:      lesson.Title,
		LessonType: lesson.LessonType,
		Order:      lesson.Order,
		Content:    content,
	}, nil
}

func sanitizeExercises(content map[string]interface{}) {
	exercises, ok := content["exercises"].([]interface{})
	if !ok {
		return
	}
	for _, raw := range exercises {
		if ex, ok := raw.(map[string]interface{}); ok {
			delete(ex, "correct_answer")
			delete(ex, "explanation")
		}
	}
}
