package repository

import (
	"math/rand"

	"englishforyou_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(question *model.Question) error {
	return r.DB.Create(question).Error
}

func (r *QuestionRepository) Save(question *model.Question) error {
	return r.DB.Save(question).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var question model.Question
	err := r.DB.Preload("Topic").First(&question, id).Error
	return &question, err
}

// pickRandom loads the candidate ids and picks one in Go, which keeps the
// query portable across SQL dialects.
func (r *QuestionRepository) pickRandom(query *gorm.DB) (*model.Question, error) {
	var ids []uint
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ids[rand.Intn(len(ids))])
}

// FindRandomAtLevel returns a random active question at the given level,
// skipping already served questions and recently used topics.
func (r *QuestionRepository) FindRandomAtLevel(level string, excludeIDs, excludeTopics []uint) (*model.Question, error) {
	query := r.DB.Model(&model.Question{}).
		Where("is_active = ? AND level = ?", true, level)
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}
	if len(excludeTopics) > 0 {
		query = query.Where("topic_id NOT IN ?", excludeTopics)
	}
	return r.pickRandom(query)
}

// FindRandomAnyLevel is the last selection fallback before the test is
// finished for lack of material.
func (r *QuestionRepository) FindRandomAnyLevel(excludeIDs []uint) (*model.Question, error) {
	query := r.DB.Model(&model.Question{}).Where("is_active = ?", true)
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}
	return r.pickRandom(query)
}

func (r *QuestionRepository) CountActive() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

// ListMostUsed returns questions ordered by how often they were served, for
// the pool health view.
func (r *QuestionRepository) ListMostUsed(limit int) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Preload("Topic").Order("usage_count DESC").Limit(limit).Find(&questions).Error
	return questions, err
}
