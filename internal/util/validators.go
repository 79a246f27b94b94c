package util

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"englishforyou_backend/internal/model"
)

// StripCodeFences removes a markdown code fence the language model sometimes
// wraps its JSON payload in.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// DecodeModelJSON parses a model response into a generic document after
// stripping any code fence.
func DecodeModelJSON(raw string) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), &doc); err != nil {
		return nil, fmt.Errorf("model returned invalid JSON: %w", err)
	}
	return doc, nil
}

func stringField(doc map[string]interface{}, key string) (string, bool) {
	v, ok := doc[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// ValidateQuestionData checks a generated question document and normalizes it
// in place. Missing optional fields receive defaults, the correct answer is
// coerced to the shape its question type expects.
func ValidateQuestionData(doc map[string]interface{}) error {
	if _, ok := stringField(doc, "question_text"); !ok {
		return fmt.Errorf("question_text is missing")
	}
	qType, ok := stringField(doc, "question_type")
	if !ok {
		return fmt.Errorf("question_type is missing")
	}
	switch qType {
	case model.QuestionTypeSingle, model.QuestionTypeMultiple, model.QuestionTypeText:
	default:
		return fmt.Errorf("unknown question_type %q", qType)
	}
	level, ok := stringField(doc, "level")
	if !ok || !model.IsValidLevel(level) {
		return fmt.Errorf("level is missing or invalid")
	}
	doc["level"] = level

	correct, ok := doc["correct_answer"]
	if !ok || correct == nil {
		return fmt.Errorf("correct_answer is missing")
	}

	if qType == model.QuestionTypeSingle || qType == model.QuestionTypeMultiple {
		opts, ok := doc["options"].([]interface{})
		if !ok || len(opts) < 2 {
			return fmt.Errorf("choice question needs at least two options")
		}
	}

	switch qType {
	case model.QuestionTypeSingle:
		// Models sometimes answer with the index as a string.
		if s, isStr := correct.(string); isStr {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return fmt.Errorf("correct_answer %q is not an option index", s)
			}
			doc["correct_answer"] = float64(n)
		}
	case model.QuestionTypeText:
		// Text answers are stored as a list of accepted variants.
		if _, isArr := correct.([]interface{}); !isArr {
			doc["correct_answer"] = []interface{}{correct}
		}
	}

	if _, ok := stringField(doc, "explanation"); !ok {
		doc["explanation"] = ""
	}
	if _, ok := stringField(doc, "topic_code"); !ok {
		doc["topic_code"] = "general"
	}
	if _, ok := doc["difficulty_score"].(float64); !ok {
		doc["difficulty_score"] = float64(50)
	}
	return nil
}

// ValidateBlockInfo checks the first-stage generation output that describes
// the block itself.
func ValidateBlockInfo(doc map[string]interface{}) error {
	for _, key := range []string{"title", "description", "grammar_topic"} {
		if _, ok := stringField(doc, key); !ok {
			return fmt.Errorf("block info %s is missing", key)
		}
	}
	level, ok := stringField(doc, "level")
	if !ok || !model.IsValidLevel(level) {
		return fmt.Errorf("block info level is missing or invalid")
	}
	doc["level"] = level
	d, ok := doc["difficulty_level"].(float64)
	if !ok || d < 1 || d > 5 {
		return fmt.Errorf("block info difficulty_level must be 1..5")
	}
	return nil
}

// ValidateLessonDocument checks one second-stage lesson payload: a title,
// content, and exactly five well-formed exercises.
func ValidateLessonDocument(doc map[string]interface{}) error {
	if _, ok := stringField(doc, "title"); !ok {
		return fmt.Errorf("lesson title is missing")
	}
	content, ok := doc["content"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("lesson content is missing")
	}
	exercises, ok := content["exercises"].([]interface{})
	if !ok || len(exercises) != 5 {
		return fmt.Errorf("lesson must contain exactly 5 exercises, got %d", len(exercises))
	}
	for i, raw := range exercises {
		ex, ok := raw.(map[string]interface{})
		if !ok {
			return fmt.Errorf("exercise %d is not an object", i+1)
		}
		if _, ok := stringField(ex, "question"); !ok {
			return fmt.Errorf("exercise %d question is missing", i+1)
		}
		exType, ok := stringField(ex, "type")
		if !ok {
			return fmt.Errorf("exercise %d type is missing", i+1)
		}
		switch exType {
		case model.QuestionTypeSingle, model.QuestionTypeMultiple, model.QuestionTypeText:
		default:
			return fmt.Errorf("exercise %d has unknown type %q", i+1, exType)
		}
		if exType != model.QuestionTypeText {
			opts, ok := ex["options"].([]interface{})
			if !ok || len(opts) < 2 {
				return fmt.Errorf("exercise %d needs at least two options", i+1)
			}
		}
		correct, ok := ex["correct_answer"]
		if !ok || correct == nil {
			return fmt.Errorf("exercise %d correct_answer is missing", i+1)
		}
		if exType == model.QuestionTypeText {
			if _, isArr := correct.([]interface{}); !isArr {
				ex["correct_answer"] = []interface{}{correct}
			}
		}
	}
	return nil
}
