package repository

import (
	"errors"

	"englishforyou_backend/internal/model"
	"englishforyou_backend/internal/util"

	"gorm.io/gorm"
)

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

// StartSession abandons any running sessions and creates the new one in a
// single transaction, so a user can never hold two in-progress sessions. The
// recount after the abandon guards against a concurrent start committing in
// between.
func (r *TestRepository) StartSession(session *model.TestSession) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.TestSession{}).
			Where("user_id = ? AND status = ?", session.UserID, model.TestStatusInProgress).
			Update("status", model.TestStatusAbandoned).Error; err != nil {
			return err
		}
		var running int64
		if err := tx.Model(&model.TestSession{}).
			Where("user_id = ? AND status = ?", session.UserID, model.TestStatusInProgress).
			Count(&running).Error; err != nil {
			return err
		}
		if running > 0 {
			return util.ErrTestAlreadyRunning
		}
		return tx.Create(session).Error
	})
}

func (r *TestRepository) Save(session *model.TestSession) error {
	return r.DB.Save(session).Error
}

func (r *TestRepository) FindByID(id uint) (*model.TestSession, error) {
	var session model.TestSession
	err := r.DB.First(&session, id).Error
	return &session, err
}

func (r *TestRepository) FindByIDAndUser(id, userID uint) (*model.TestSession, error) {
	var session model.TestSession
	err := r.DB.Where("id = ? AND user_id = ?", id, userID).First(&session).Error
	return &session, err
}

func (r *TestRepository) FindInProgressByUser(userID uint) (*model.TestSession, error) {
	var session model.TestSession
	err := r.DB.Where("user_id = ? AND status = ?", userID, model.TestStatusInProgress).
		First(&session).Error
	return &session, err
}

func (r *TestRepository) LatestCompletedByUser(userID uint) (*model.TestSession, error) {
	var session model.TestSession
	err := r.DB.Where("user_id = ? AND status = ?", userID, model.TestStatusCompleted).
		Order("completed_at DESC").First(&session).Error
	return &session, err
}

func (r *TestRepository) CreateAnswer(answer *model.TestAnswer) error {
	return r.DB.Create(answer).Error
}

func (r *TestRepository) HasAnswer(sessionID, questionID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.TestAnswer{}).
		Where("session_id = ? AND question_id = ?", sessionID, questionID).
		Count(&count).Error
	return count > 0, err
}

func (r *TestRepository) GetOrCreateTopicScore(sessionID, topicID uint) (*model.TopicScore, error) {
	var score model.TopicScore
	err := r.DB.Where("session_id = ? AND topic_id = ?", sessionID, topicID).
		First(&score).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		score = model.TopicScore{SessionID: sessionID, TopicID: topicID}
		err = r.DB.Create(&score).Error
	}
	if err != nil {
		return nil, err
	}
	return &score, nil
}

func (r *TestRepository) SaveTopicScore(score *model.TopicScore) error {
	return r.DB.Save(score).Error
}

func (r *TestRepository) ListTopicScores(sessionID uint) ([]model.TopicScore, error) {
	var scores []model.TopicScore
	err := r.DB.Preload("Topic").Where("session_id = ?", sessionID).Find(&scores).Error
	return scores, err
}

// CategoryTally holds per-category correctness for one session.
type CategoryTally struct {
	Category string
	Total    int
	Correct  int
}

// CategoryTallies aggregates answers by the topic category of their question.
func (r *TestRepository) CategoryTallies(sessionID uint) ([]CategoryTally, error) {
	var tallies []CategoryTally
	err := r.DB.Model(&model.TestAnswer{}).
		Select("topics.category AS category, COUNT(*) AS total, SUM(CASE WHEN test_answers.is_correct THEN 1 ELSE 0 END) AS correct").
		Joins("JOIN questions ON questions.id = test_answers.question_id").
		Joins("JOIN topics ON topics.id = questions.topic_id").
		Where("test_answers.session_id = ?", sessionID).
		Group("topics.category").
		Scan(&tallies).Error
	return tallies, err
}
