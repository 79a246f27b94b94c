package repository

import (
	"errors"

	"englishforyou_backend/internal/model"

	"gorm.io/gorm"
)

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

// WithTx rebinds the repository to a running transaction.
func (r *LessonRepository) WithTx(tx *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: tx}
}

// CreateBlock persists a block with its lessons and seed progress rows in one
// transaction.
func (r *LessonRepository) CreateBlock(block *model.LessonBlock, progresses []model.LessonProgress) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(block).Error; err != nil {
			return err
		}
		for i := range progresses {
			progresses[i].LessonID = block.Lessons[i].ID
			if err := tx.Create(&progresses[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *LessonRepository) MaxBlockOrder(userID uint) (int, error) {
	var max int
	err := r.DB.Model(&model.LessonBlock{}).Where("user_id = ?", userID).
		Select("COALESCE(MAX(block_order), 0)").Scan(&max).Error
	return max, err
}

func (r *LessonRepository) LastBlock(userID uint) (*model.LessonBlock, error) {
	var block model.LessonBlock
	err := r.DB.Preload("Lessons", func(db *gorm.DB) *gorm.DB {
		return db.Order("lesson_order")
	}).Where("user_id = ?", userID).Order("block_order DESC").First(&block).Error
	return &block, err
}

func (r *LessonRepository) ListBlocks(userID uint) ([]model.LessonBlock, error) {
	var blocks []model.LessonBlock
	err := r.DB.Preload("Lessons", func(db *gorm.DB) *gorm.DB {
		return db.Order("lesson_order")
	}).Where("user_id = ?", userID).Order("block_order").Find(&blocks).Error
	return blocks, err
}

// ListGrammarTopics returns the grammar topics already covered, used to keep
// new blocks from repeating material.
func (r *LessonRepository) ListGrammarTopics(userID uint) ([]string, error) {
	var topics []string
	err := r.DB.Model(&model.LessonBlock{}).Where("user_id = ?", userID).
		Order("block_order").Pluck("grammar_topic", &topics).Error
	return topics, err
}

func (r *LessonRepository) FindLessonByID(id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.Preload("Block").First(&lesson, id).Error
	return &lesson, err
}

func (r *LessonRepository) ListBlockLessons(blockID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Where("block_id = ?", blockID).Order("lesson_order").Find(&lessons).Error
	return lessons, err
}

// FindNextLesson returns the lesson that follows within the same block, or
// gorm.ErrRecordNotFound for the last one.
func (r *LessonRepository) FindNextLesson(lesson *model.Lesson) (*model.Lesson, error) {
	var next model.Lesson
	err := r.DB.Where("block_id = ? AND lesson_order = ?", lesson.BlockID, lesson.Order+1).
		First(&next).Error
	return &next, err
}

func (r *LessonRepository) GetOrCreateProgress(userID, lessonID uint) (*model.LessonProgress, error) {
	var progress model.LessonProgress
	err := r.DB.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		progress = model.LessonProgress{UserID: userID, LessonID: lessonID}
		err = r.DB.Create(&progress).Error
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *LessonRepository) SaveProgress(progress *model.LessonProgress) error {
	return r.DB.Save(progress).Error
}

func (r *LessonRepository) ListBlockProgress(userID, blockID uint) ([]model.LessonProgress, error) {
	var progresses []model.LessonProgress
	err := r.DB.Joins("JOIN lessons ON lessons.id = lesson_progresses.lesson_id").
		Where("lesson_progresses.user_id = ? AND lessons.block_id = ?", userID, blockID).
		Order("lessons.lesson_order").Find(&progresses).Error
	return progresses, err
}

func (r *LessonRepository) SaveBlock(block *model.LessonBlock) error {
	return r.DB.Save(block).Error
}

// HasIncompleteBlock reports whether the user's latest block is still open.
// Completion is stamped on the block row when its last lesson is finished.
func (r *LessonRepository) HasIncompleteBlock(userID uint) (bool, error) {
	var block model.LessonBlock
	err := r.DB.Where("user_id = ?", userID).Order("block_order DESC").First(&block).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !block.IsCompleted, nil
}

// CountPassedBlocks counts blocks stamped as passed, which drives level
// progression.
func (r *LessonRepository) CountPassedBlocks(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.LessonBlock{}).
		Where("user_id = ? AND is_passed = ?", userID, true).
		Count(&count).Error
	return count, err
}
