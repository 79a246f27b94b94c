package util

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{}\n```\n ", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func validQuestionDoc() map[string]interface{} {
	var doc map[string]interface{}
	json.Unmarshal([]byte(`{
		"question_text": "She ___ to school every day.",
		"question_type": "single_choice",
		"options": ["go", "goes", "going"],
		"correct_answer": 1,
		"explanation": "Third person singular takes -es.",
		"level": "A1",
		"topic_code": "present_simple",
		"difficulty_score": 30
	}`), &doc)
	return doc
}

func TestValidateQuestionData_Valid(t *testing.T) {
	doc := validQuestionDoc()
	require.NoError(t, ValidateQuestionData(doc))
	assert.Equal(t, float64(1), doc["correct_answer"])
}

func TestValidateQuestionData_StringIndexCoerced(t *testing.T) {
	doc := validQuestionDoc()
	doc["correct_answer"] = "2"
	require.NoError(t, ValidateQuestionData(doc))
	assert.Equal(t, float64(2), doc["correct_answer"])
}

func TestValidateQuestionData_TextScalarBecomesList(t *testing.T) {
	doc := validQuestionDoc()
	doc["question_type"] = "text_input"
	doc["correct_answer"] = "goes"
	delete(doc, "options")
	require.NoError(t, ValidateQuestionData(doc))
	assert.Equal(t, []interface{}{"goes"}, doc["correct_answer"])
}

func TestValidateQuestionData_Defaults(t *testing.T) {
	doc := validQuestionDoc()
	delete(doc, "explanation")
	delete(doc, "topic_code")
	delete(doc, "difficulty_score")
	require.NoError(t, ValidateQuestionData(doc))
	assert.Equal(t, "", doc["explanation"])
	assert.Equal(t, "general", doc["topic_code"])
	assert.Equal(t, float64(50), doc["difficulty_score"])
}

func TestValidateQuestionData_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"missing question_text", func(d map[string]interface{}) { delete(d, "question_text") }},
		{"missing question_type", func(d map[string]interface{}) { delete(d, "question_type") }},
		{"unknown question_type", func(d map[string]interface{}) { d["question_type"] = "essay" }},
		{"missing level", func(d map[string]interface{}) { delete(d, "level") }},
		{"invalid level", func(d map[string]interface{}) { d["level"] = "Z9" }},
		{"missing correct_answer", func(d map[string]interface{}) { delete(d, "correct_answer") }},
		{"single option", func(d map[string]interface{}) { d["options"] = []interface{}{"go"} }},
		{"non numeric string index", func(d map[string]interface{}) { d["correct_answer"] = "goes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validQuestionDoc()
			tt.mutate(doc)
			assert.Error(t, ValidateQuestionData(doc))
		})
	}
}

func validBlockInfoDoc() map[string]interface{} {
	return map[string]interface{}{
		"title":            "Talking About Habits",
		"description":      "A block about daily routines.",
		"level":            "A2",
		"difficulty_level": float64(2),
		"grammar_topic":    "Present Simple",
	}
}

func TestValidateBlockInfo(t *testing.T) {
	require.NoError(t, ValidateBlockInfo(validBlockInfoDoc()))

	for name, mutate := range map[string]func(map[string]interface{}){
		"missing title":      func(d map[string]interface{}) { delete(d, "title") },
		"invalid level":      func(d map[string]interface{}) { d["level"] = "XX" },
		"difficulty too big": func(d map[string]interface{}) { d["difficulty_level"] = float64(6) },
		"difficulty missing": func(d map[string]interface{}) { delete(d, "difficulty_level") },
	} {
		t.Run(name, func(t *testing.T) {
			doc := validBlockInfoDoc()
			mutate(doc)
			assert.Error(t, ValidateBlockInfo(doc))
		})
	}
}

func validLessonDoc() map[string]interface{} {
	exercise := func() interface{} {
		return map[string]interface{}{
			"question":       "Pick the right form.",
			"type":           "single_choice",
			"options":        []interface{}{"go", "goes"},
			"correct_answer": float64(1),
			"explanation":    "",
		}
	}
	return map[string]interface{}{
		"title": "Present Simple Basics",
		"content": map[string]interface{}{
			"theory":    "...",
			"exercises": []interface{}{exercise(), exercise(), exercise(), exercise(), exercise()},
		},
	}
}

func TestValidateLessonDocument_Valid(t *testing.T) {
	require.NoError(t, ValidateLessonDocument(validLessonDoc()))
}

func TestValidateLessonDocument_ExerciseCount(t *testing.T) {
	doc := validLessonDoc()
	content := doc["content"].(map[string]interface{})
	content["exercises"] = content["exercises"].([]interface{})[:4]
	assert.Error(t, ValidateLessonDocument(doc))
}

func TestValidateLessonDocument_BadExercise(t *testing.T) {
	doc := validLessonDoc()
	content := doc["content"].(map[string]interface{})
	ex := content["exercises"].([]interface{})[2].(map[string]interface{})
	delete(ex, "correct_answer")
	assert.Error(t, ValidateLessonDocument(doc))
}

func TestValidateLessonDocument_TextAnswerCoerced(t *testing.T) {
	doc := validLessonDoc()
	content := doc["content"].(map[string]interface{})
	ex := content["exercises"].([]interface{})[0].(map[string]interface{})
	ex["type"] = "text_input"
	ex["correct_answer"] = "goes"
	delete(ex, "options")
	require.NoError(t, ValidateLessonDocument(doc))
	assert.Equal(t, []interface{}{"goes"}, ex["correct_answer"])
}
