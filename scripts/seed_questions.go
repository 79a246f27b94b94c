// Bulk loader for curated placement test questions.
//
// Reads a JSON array of question documents (the same shape the generator
// produces) and inserts them, resolving topic codes against the catalogue.
//
// Usage: go run scripts/seed_questions.go -file data/questions.json
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"englishforyou_backend/internal/config"
	"englishforyou_backend/internal/model"
	"englishforyou_backend/internal/repository"
	"englishforyou_backend/internal/util"
	"englishforyou_backend/pkg/database"
	"englishforyou_backend/pkg/logger"
)

func main() {
	file := flag.String("file", "data/questions.json", "path to the question JSON file")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("failed to read %s: %v", *file, err)
	}

	var docs []map[string]interface{}
	if err := json.Unmarshal(data, &docs); err != nil {
		log.Fatalf("failed to parse %s: %v", *file, err)
	}

	topics := repository.NewTopicRepository(db)
	questions := repository.NewQuestionRepository(db)

	inserted, skipped := 0, 0
	for i, doc := range docs {
		if err := util.ValidateQuestionData(doc); err != nil {
			log.Printf("skipping question %d: %v", i+1, err)
			skipped++
			continue
		}

		topic, err := topics.GetOrCreateByCode(doc["topic_code"].(string), doc["level"].(string))
		if err != nil {
			log.Fatalf("failed to resolve topic for question %d: %v", i+1, err)
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
		}
		if err := questions.Create(question); err != nil {
			log.Fatalf("failed to insert question %d: %v", i+1, err)
		}
		inserted++
	}

	log.Printf("done: %d inserted, %d skipped", inserted, skipped)
}
