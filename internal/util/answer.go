package util

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"englishforyou_backend/internal/model"
)

// normalizeScalar renders any JSON scalar as a trimmed string so that the
// index 1 and the string "1" compare equal.
func normalizeScalar(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", x))
	}
}

func normalizeSet(items []interface{}) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		s := normalizeScalar(it)
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

func decodeJSON(raw json.RawMessage) (interface{}, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return v, true
}

// CheckTestAnswer compares a submitted answer against the stored correct one
// according to the question type. A missing or empty answer is never correct.
func CheckTestAnswer(questionType string, userRaw, correctRaw json.RawMessage) bool {
	user, ok := decodeJSON(userRaw)
	if !ok || user == nil {
		return false
	}
	correct, ok := decodeJSON(correctRaw)
	if !ok || correct == nil {
		return false
	}

	switch questionType {
	case model.QuestionTypeSingle:
		u := normalizeScalar(user)
		if u == "" {
			return false
		}
		// Curated data may store the index wrapped in a one-element array.
		if arr, isArr := correct.([]interface{}); isArr {
			if len(arr) != 1 {
				return false
			}
			return u == normalizeScalar(arr[0])
		}
		return u == normalizeScalar(correct)

	case model.QuestionTypeMultiple:
		uArr, uOK := user.([]interface{})
		cArr, cOK := correct.([]interface{})
		if !uOK || !cOK || len(uArr) == 0 || len(cArr) == 0 {
			return false
		}
		uSet := normalizeSet(uArr)
		cSet := normalizeSet(cArr)
		if len(uSet) != len(cSet) {
			return false
		}
		for k := range cSet {
			if _, found := uSet[k]; !found {
				return false
			}
		}
		return true

	case model.QuestionTypeText:
		u := strings.ToLower(normalizeScalar(user))
		if u == "" {
			return false
		}
		accepted, isArr := correct.([]interface{})
		if !isArr {
			accepted = []interface{}{correct}
		}
		for _, a := range accepted {
			if u == strings.ToLower(normalizeScalar(a)) {
				return true
			}
		}
		return false
	}
	return false
}

// LessonScore computes the percentage of a lesson's exercises whose submitted
// entry was marked correct. Entries are keyed by the exercise position within
// the lesson's content; a missing or unreadable entry counts as wrong. A
// lesson without exercises scores 0.
func LessonScore(content map[string]interface{}, answers map[string]json.RawMessage) float64 {
	exercises, ok := content["exercises"].([]interface{})
	if !ok || len(exercises) == 0 {
		return 0
	}
	correct := 0
	for i := range exercises {
		raw, ok := answers[strconv.Itoa(i)]
		if !ok {
			continue
		}
		var entry struct {
			IsCorrect bool `json:"is_correct"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if entry.IsCorrect {
			correct++
		}
	}
	return float64(correct) / float64(len(exercises)) * 100
}

// CheckExerciseAnswer applies the same comparison rules to a lesson exercise,
// where both sides arrive as already decoded JSON values.
func CheckExerciseAnswer(exerciseType string, user, correct interface{}) bool {
	userRaw, err := json.Marshal(user)
	if err != nil {
		return false
	}
	correctRaw, err := json.Marshal(correct)
	if err != nil {
		return false
	}
	return CheckTestAnswer(exerciseType, userRaw, correctRaw)
}
