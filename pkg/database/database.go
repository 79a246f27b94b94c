package database

import (
	"fmt"
	"log"

	"englishforyou_backend/internal/config"
	"englishforyou_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	if err := SeedTopics(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Profile{},
		&model.Topic{},
		&model.Question{},
		&model.TestSession{},
		&model.TestAnswer{},
		&model.TopicScore{},
		&model.LessonBlock{},
		&model.Lesson{},
		&model.LessonProgress{},
	)
}

// SeedTopics inserts the curated topic catalogue on an empty database.
func SeedTopics(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Topic{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaultTopics := []model.Topic{
		{Name: "Present Simple", Code: "present_simple", Levels: "A1,A2", Category: model.CategoryGrammar, IsActive: true},
		{Name: "Present Continuous", Code: "present_continuous", Levels: "A1,A2,B1", Category: model.CategoryGrammar, IsActive: true},
		{Name: "Past Simple", Code: "past_simple", Levels: "A2,B1", Category: model.CategoryGrammar, IsActive: true},
		{Name: "Present Perfect", Code: "present_perfect", Levels: "B1,B2", Category: model.CategoryGrammar, IsActive: true},
		{Name: "Conditionals", Code: "conditionals", Levels: "B1,B2,C1", Category: model.CategoryGrammar, IsActive: true},
		{Name: "Passive Voice", Code: "passive_voice", Levels: "B1,B2,C1", Category: model.CategoryGrammar, IsActive: true},
		{Name: "Reported Speech", Code: "reported_speech", Levels: "B2,C1", Category: model.CategoryGrammar, IsActive: true},
		{Name: "Articles", Code: "articles", Levels: "A1,A2,B1", Category: model.CategoryGrammar, IsActive: true},
		{Name: "Modal Verbs", Code: "modal_verbs", Levels: "A2,B1,B2", Category: model.CategoryGrammar, IsActive: true},
		{Name: "Everyday Vocabulary", Code: "everyday_vocab", Levels: "A1,A2", Category: model.CategoryVocabulary, IsActive: true},
		{Name: "Word Formation", Code: "word_formation", Levels: "B2,C1,C2", Category: model.CategoryVocabulary, IsActive: true},
		{Name: "Phrasal Verbs", Code: "phrasal_vocab", Levels: "B1,B2,C1", Category: model.CategoryVocabulary, IsActive: true},
		{Name: "Reading Comprehension", Code: "reading_comprehension", Levels: "A2,B1,B2,C1,C2", Category: model.CategoryReading, IsActive: true},
		{Name: "Short Texts", Code: "short_texts", Levels: "A1,A2", Category: model.CategoryReading, IsActive: true},
		{Name: "English in Use", Code: "english_in_use", Levels: "B1,B2,C1", Category: model.CategoryUsage, IsActive: true},
		{Name: "Collocation Practice", Code: "collocation_practice", Levels: "B2,C1,C2", Category: model.CategoryUsage, IsActive: true},
	}
	for _, t := range defaultTopics {
		if err := db.Create(&t).Error; err != nil {
			return err
		}
	}
	return nil
}
