package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"englishforyou_backend/internal/config"
	"englishforyou_backend/internal/model"
	"englishforyou_backend/internal/repository"
	"englishforyou_backend/internal/util"
	"englishforyou_backend/pkg/logger"
	"englishforyou_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TestService runs the adaptive placement test: it walks the difficulty
// estimate one CEFR step per answer and serves questions near the estimate,
// generating new ones when the curated pool runs thin.
type TestService struct {
	TestRepo     *repository.TestRepository
	QuestionRepo *repository.QuestionRepository
	TopicRepo    *repository.TopicRepository
	UserRepo     *repository.UserRepository
	Generator    Generator
	Cfg          *config.Config
}

func NewTestService(
	testRepo *repository.TestRepository,
	questionRepo *repository.QuestionRepository,
	topicRepo *repository.TopicRepository,
	userRepo *repository.UserRepository,
	generator Generator,
	cfg *config.Config,
) *TestService {
	return &TestService{
		TestRepo:     testRepo,
		QuestionRepo: questionRepo,
		TopicRepo:    topicRepo,
		UserRepo:     userRepo,
		Generator:    generator,
		Cfg:          cfg,
	}
}

// Start opens a fresh session. Any session still running for the user is
// abandoned first, so there is never more than one in progress.
func (s *TestService) Start(userID uint) (*model.TestSession, error) {
	session := &model.TestSession{
		UserID:    userID,
		Status:    model.TestStatusInProgress,
		State:     model.NewTestState(),
		StartedAt: time.Now(),
	}
	if err := s.TestRepo.StartSession(session); err != nil {
		return nil, err
	}
	monitoring.TestSessionsStarted.Inc()
	return session, nil
}

// NextQuestion is what the engine hands to the client for the session's
// current step. Finished is set when the session ended instead.
type NextQuestion struct {
	Session        *model.TestSession
	Question       *model.Question
	QuestionNumber int
	TimeRemaining  int
	Finished       bool
}

// CurrentQuestion picks the next question for the user's running session.
// When the session hit its time or question budget, or the pool is exhausted,
// the session is closed and Finished is reported instead of a question.
func (s *TestService) CurrentQuestion(ctx context.Context, userID uint) (*NextQuestion, error) {
	session, err := s.TestRepo.FindInProgressByUser(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTestNotFound
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if session.IsExpired(now) {
		return s.closeExpired(session, now)
	}
	if session.TotalQuestions >= s.Cfg.Assessment.MaxQuestions {
		return s.finish(session, now)
	}

	// Re-serve the pending question if the last one was never answered, so a
	// page reload does not consume a fresh one.
	if len(session.State.QuestionIDs) > session.TotalQuestions {
		pending := session.State.QuestionIDs[len(session.State.QuestionIDs)-1]
		question, err := s.QuestionRepo.FindByID(pending)
		if err != nil {
			return nil, err
		}
		return &NextQuestion{
			Session:        session,
			Question:       question,
			QuestionNumber: session.TotalQuestions + 1,
			TimeRemaining:  session.TimeRemaining(now),
		}, nil
	}

	for session.TotalQuestions < s.Cfg.Assessment.MaxQuestions {
		question, err := s.selectQuestion(ctx, session)
		if errors.Is(err, util.ErrNoQuestions) {
			// Nothing left to serve at any level.
			return s.finish(session, now)
		}
		if err != nil {
			return nil, err
		}

		session.State.Record(question.ID, question.TopicID)

		// A broken question is recorded as a skipped miss and replaced.
		if !servableQuestion(question) {
			logger.Log.Warn("skipping malformed question",
				zap.Uint("session_id", session.ID), zap.Uint("question_id", question.ID))
			answer := &model.TestAnswer{
				SessionID:  session.ID,
				QuestionID: question.ID,
				UserAnswer: json.RawMessage(`{"skipped":true}`),
				IsCorrect:  false,
			}
			if err := s.TestRepo.CreateAnswer(answer); err != nil {
				return nil, err
			}
			session.TotalQuestions++
			if err := s.TestRepo.Save(session); err != nil {
				return nil, err
			}
			continue
		}

		if err := s.TestRepo.Save(session); err != nil {
			return nil, err
		}
		return &NextQuestion{
			Session:        session,
			Question:       question,
			QuestionNumber: session.TotalQuestions + 1,
			TimeRemaining:  session.TimeRemaining(now),
		}, nil
	}
	return s.finish(session, now)
}

// servableQuestion rejects questions the client cannot render or that can
// never be graded: choice questions without options, anything without a
// correct answer on record.
func servableQuestion(question *model.Question) bool {
	if len(question.CorrectAnswer) == 0 || string(question.CorrectAnswer) == "null" {
		return false
	}
	if question.QuestionType == model.QuestionTypeText {
		return true
	}
	var options []interface{}
	if err := json.Unmarshal(question.Options, &options); err != nil {
		return false
	}
	return len(options) >= 2
}

// selectQuestion walks the fallback ladder: an on-demand generated question
// on every Nth step, then the pool at the estimated level avoiding recent
// topics, then the neighbouring levels, then anything still unanswered.
func (s *TestService) selectQuestion(ctx context.Context, session *model.TestSession) (*model.Question, error) {
	state := &session.State
	served := state.QuestionIDs
	recent := state.RecentTopicWindow()

	nextNumber := session.TotalQuestions + 1
	if nextNumber%s.Cfg.Assessment.GenerateEveryN == 0 {
		question, err := s.generateQuestion(ctx, session)
		if err == nil {
			return question, nil
		}
		logger.Log.Warn("question generation failed, falling back to pool",
			zap.Uint("session_id", session.ID), zap.Error(err))
	}

	question, err := s.QuestionRepo.FindRandomAtLevel(state.EstimatedLevel, served, recent)
	if err == nil {
		return question, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	for _, level := range []string{model.NextLevelUp(state.EstimatedLevel), model.NextLevelDown(state.EstimatedLevel)} {
		if level == state.EstimatedLevel {
			continue
		}
		question, err = s.QuestionRepo.FindRandomAtLevel(level, served, recent)
		if err == nil {
			return question, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	question, err = s.QuestionRepo.FindRandomAnyLevel(served)
	if err == nil {
		return question, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNoQuestions
	}
	return nil, err
}

func (s *TestService) generateQuestion(ctx context.Context, session *model.TestSession) (*model.Question, error) {
	recentCodes := make([]string, 0, len(session.State.RecentTopics))
	for _, topicID := range session.State.RecentTopics {
		topic, err := s.TopicRepo.FindByID(topicID)
		if err == nil {
			recentCodes = append(recentCodes, topic.Code)
		}
	}

	prompt := buildQuestionPrompt(session.State.EstimatedLevel, recentCodes)
	raw, err := s.Generator.Generate(ctx, prompt, questionMaxTokens)
	if err != nil {
		return nil, err
	}

	doc, err := util.DecodeModelJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := util.ValidateQuestionData(doc); err != nil {
		return nil, err
	}

	topicCode := doc["topic_code"].(string)
	topic, err := s.TopicRepo.GetOrCreateByCode(topicCode, doc["level"].(string))
	if err != nil {
		return nil, err
	}

	options, _ := json.Marshal(doc["options"])
	correct, _ := json.Marshal(doc["correct_answer"])
	question := &model.Question{
		QuestionText:    doc["question_text"].(string),
		QuestionType:    doc["question_type"].(string),
		Level:           doc["level"].(string),
		TopicID:         topic.ID,
		Options:         options,
		CorrectAnswer:   correct,
		Explanation:     doc["explanation"].(string),
		DifficultyScore: int(doc["difficulty_score"].(float64)),
		IsActive:        true,
		IsAIGenerated:   true,
	}
	if err := s.QuestionRepo.Create(question); err != nil {
		return nil, err
	}
	monitoring.QuestionsGenerated.Inc()
	return question, nil
}

// QuestionPoolStats is the administrative view of the question pool.
type QuestionPoolStats struct {
	ActiveQuestions int64            `json:"activeQuestions"`
	MostUsed        []model.Question `json:"mostUsed"`
}

// PoolStats reports pool size and the most served questions with their
// rolling correct rates.
func (s *TestService) PoolStats(limit int) (*QuestionPoolStats, error) {
	count, err := s.QuestionRepo.CountActive()
	if err != nil {
		return nil, err
	}
	questions, err := s.QuestionRepo.ListMostUsed(limit)
	if err != nil {
		return nil, err
	}
	return &QuestionPoolStats{ActiveQuestions: count, MostUsed: questions}, nil
}

// AnswerResult is the feedback returned after one submission.
type AnswerResult struct {
	IsCorrect   bool
	Explanation string
	Finished    bool
}

// SubmitAnswer records one response, moves the difficulty estimate, and
// closes the session when its budget is spent.
func (s *TestService) SubmitAnswer(userID, questionID uint, userAnswer json.RawMessage, timeTaken int) (*AnswerResult, error) {
	session, err := s.TestRepo.FindInProgressByUser(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTestNotFound
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if session.IsExpired(now) {
		if _, err := s.closeExpired(session, now); err != nil {
			return nil, err
		}
		return nil, util.ErrTestExpired
	}

	// Only a question the engine actually served may be answered.
	served := false
	for _, id := range session.State.QuestionIDs {
		if id == questionID {
			served = true
			break
		}
	}
	if !served {
		return nil, util.ErrQuestionNotFound
	}
	answered, err := s.TestRepo.HasAnswer(session.ID, questionID)
	if err != nil {
		return nil, err
	}
	if answered {
		return nil, util.ErrQuestionNotFound
	}

	question, err := s.QuestionRepo.FindByID(questionID)
	if err != nil {
		return nil, err
	}

	correct := util.CheckTestAnswer(question.QuestionType, userAnswer, question.CorrectAnswer)

	answer := &model.TestAnswer{
		SessionID:  session.ID,
		QuestionID: question.ID,
		UserAnswer: userAnswer,
		IsCorrect:  correct,
		TimeTaken:  timeTaken,
	}
	if err := s.TestRepo.CreateAnswer(answer); err != nil {
		return nil, err
	}

	question.ApplyAnswerStats(correct)
	if err := s.QuestionRepo.Save(question); err != nil {
		return nil, err
	}

	score, err := s.TestRepo.GetOrCreateTopicScore(session.ID, question.TopicID)
	if err != nil {
		return nil, err
	}
	score.AddAnswer(correct)
	if err := s.TestRepo.SaveTopicScore(score); err != nil {
		return nil, err
	}

	session.TotalQuestions++
	if correct {
		session.CorrectAnswers++
	}
	session.State.Adjust(correct)

	result := &AnswerResult{IsCorrect: correct, Explanation: question.Explanation}
	if session.TotalQuestions >= s.Cfg.Assessment.MaxQuestions {
		if _, err := s.finish(session, now); err != nil {
			return nil, err
		}
		result.Finished = true
		return result, nil
	}

	if err := s.TestRepo.Save(session); err != nil {
		return nil, err
	}
	return result, nil
}

// Finish closes the running session on the user's request. At least the
// minimum number of questions must have been answered.
func (s *TestService) Finish(userID uint) (*model.TestSession, error) {
	session, err := s.TestRepo.FindInProgressByUser(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTestNotFound
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if session.IsExpired(now) {
		if _, err := s.closeExpired(session, now); err != nil {
			return nil, err
		}
		return nil, util.ErrTestExpired
	}
	if session.TotalQuestions < s.Cfg.Assessment.MinQuestions {
		return nil, util.ErrTooFewQuestions
	}

	if _, err := s.finish(session, now); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *TestService) finish(session *model.TestSession, now time.Time) (*NextQuestion, error) {
	session.Complete(now)
	if err := s.applyCategoryScores(session); err != nil {
		return nil, err
	}
	if err := s.TestRepo.Save(session); err != nil {
		return nil, err
	}

	// The determined level becomes the learner's working level.
	profile, err := s.UserRepo.GetOrCreateProfile(session.UserID)
	if err != nil {
		return nil, err
	}
	profile.LanguageLevel = session.DeterminedLevel
	if err := s.UserRepo.SaveProfile(profile); err != nil {
		return nil, err
	}

	monitoring.TestSessionsCompleted.Inc()
	logger.Log.Info("placement test completed",
		zap.Uint("session_id", session.ID),
		zap.Uint("user_id", session.UserID),
		zap.Float64("score", session.Score),
		zap.String("level", session.DeterminedLevel))

	return &NextQuestion{Session: session, Finished: true}, nil
}

func (s *TestService) closeExpired(session *model.TestSession, now time.Time) (*NextQuestion, error) {
	session.Timeout(now)
	if err := s.TestRepo.Save(session); err != nil {
		return nil, err
	}
	logger.Log.Info("placement test timed out",
		zap.Uint("session_id", session.ID), zap.Uint("user_id", session.UserID))
	return &NextQuestion{Session: session, Finished: true}, nil
}

// applyCategoryScores fills the per-category columns from the answer tallies.
// A category the test never touched inherits the overall percentage.
func (s *TestService) applyCategoryScores(session *model.TestSession) error {
	overall := session.Percentage()
	scores := map[string]float64{
		model.CategoryGrammar:    overall,
		model.CategoryVocabulary: overall,
		model.CategoryReading:    overall,
		model.CategoryUsage:      overall,
	}

	tallies, err := s.TestRepo.CategoryTallies(session.ID)
	if err != nil {
		return err
	}
	for _, t := range tallies {
		if t.Total > 0 {
			scores[t.Category] = float64(t.Correct) / float64(t.Total) * 100
		}
	}

	session.GrammarScore = scores[model.CategoryGrammar]
	session.VocabularyScore = scores[model.CategoryVocabulary]
	session.ReadingScore = scores[model.CategoryReading]
	session.UsageScore = scores[model.CategoryUsage]
	return nil
}

// TestResults is the results page payload for a finished session.
type TestResults struct {
	Session          *model.TestSession `json:"session"`
	LevelInfo        model.LevelInfo    `json:"levelInfo"`
	TopicScores      []model.TopicScore `json:"topicScores"`
	Strengths        []string           `json:"strengths"`
	ImprovementAreas []string           `json:"improvementAreas"`
	LearningPlan     string             `json:"learningPlan"`
	AllLevels        []model.LevelInfo  `json:"allLevels"`
	TimedOut         bool               `json:"timedOut"`
}

// Results assembles the analysis for a finished session: strong categories
// become strengths, weak ones feed the improvement list, and the determined
// level selects the study plan.
func (s *TestService) Results(sessionID, userID uint) (*TestResults, error) {
	session, err := s.TestRepo.FindByIDAndUser(sessionID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTestNotFound
	}
	if err != nil {
		return nil, err
	}
	if session.Status != model.TestStatusCompleted && session.Status != model.TestStatusTimeout {
		return nil, util.ErrTestNotCompleted
	}

	scores, err := s.TestRepo.ListTopicScores(session.ID)
	if err != nil {
		return nil, err
	}

	categories := []struct {
		name  string
		score float64
	}{
		{"Grammar", session.GrammarScore},
		{"Vocabulary", session.VocabularyScore},
		{"Reading comprehension", session.ReadingScore},
		{"Language in use", session.UsageScore},
	}

	results := &TestResults{
		Session:      session,
		LevelInfo:    model.InfoForLevel(session.DeterminedLevel),
		TopicScores:  scores,
		LearningPlan: model.LearningPlanForLevel(session.DeterminedLevel),
		AllLevels:    model.AllLevels(),
		TimedOut:     session.Status == model.TestStatusTimeout,
	}
	for _, category := range categories {
		if category.score >= 70 {
			results.Strengths = append(results.Strengths,
				fmt.Sprintf("%s: strong result (%.0f%%)", category.name, category.score))
		}
		if category.score < 50 {
			results.ImprovementAreas = append(results.ImprovementAreas,
				fmt.Sprintf("Work more on %s", strings.ToLower(category.name)))
		}
	}
	if len(results.Strengths) == 0 {
		results.Strengths = []string{"You have a solid base to build on"}
	}
	if len(results.ImprovementAreas) == 0 {
		results.ImprovementAreas = []string{"Keep practicing to reach the next level"}
	}
	return results, nil
}
