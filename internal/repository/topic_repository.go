package repository

import (
	"errors"

	"englishforyou_backend/internal/model"

	"gorm.io/gorm"
)

type TopicRepository struct {
	DB *gorm.DB
}

func NewTopicRepository(db *gorm.DB) *TopicRepository {
	return &TopicRepository{DB: db}
}

func (r *TopicRepository) FindByCode(code string) (*model.Topic, error) {
	var topic model.Topic
	err := r.DB.Where("code = ?", code).First(&topic).Error
	return &topic, err
}

func (r *TopicRepository) FindByID(id uint) (*model.Topic, error) {
	var topic model.Topic
	err := r.DB.First(&topic, id).Error
	return &topic, err
}

// GetOrCreateByCode resolves a topic code minted by the generator, creating
// the topic with an inferred category when it is new.
func (r *TopicRepository) GetOrCreateByCode(code, level string) (*model.Topic, error) {
	var topic model.Topic
	err := r.DB.Where("code = ?", code).First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		topic = model.Topic{
			Name:     code,
			Code:     code,
			Levels:   level,
			Category: model.CategoryForTopicCode(code),
			IsActive: true,
		}
		err = r.DB.Create(&topic).Error
	}
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *TopicRepository) ListActive() ([]model.Topic, error) {
	var topics []model.Topic
	err := r.DB.Where("is_active = ?", true).Order("name").Find(&topics).Error
	return topics, err
}
