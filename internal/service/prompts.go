package service

import (
	"fmt"
	"strings"
)

// Token budgets per generation call.
const (
	questionMaxTokens  = 800
	blockInfoMaxTokens = 500
	grammarMaxTokens   = 2500
	vocabMaxTokens     = 2500
	readingMaxTokens   = 3000
)

// vocabularyWordCounts maps block difficulty to how many new words a
// vocabulary lesson introduces.
var vocabularyWordCounts = map[int]int{1: 10, 2: 12, 3: 13, 4: 15, 5: 18}

// readingTextLengths maps block difficulty to the target reading text length
// in words.
var readingTextLengths = map[int]int{1: 200, 2: 250, 3: 300, 4: 350, 5: 400}

func buildQuestionPrompt(level string, recentTopics []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate one English placement test question for CEFR level %s.\n", level)
	if len(recentTopics) > 0 {
		fmt.Fprintf(&b, "Avoid these recently used topics: %s.\n", strings.Join(recentTopics, ", "))
	}
	b.WriteString(`
Return ONLY a JSON object, no prose, with this exact shape:
{
  "question_text": "...",
  "question_type": "single_choice" | "multiple_choice" | "text_input",
  "options": ["...", "..."],
  "correct_answer": <option index, index array, or accepted strings>,
  "explanation": "...",
  "level": "` + level + `",
  "topic_code": "snake_case_topic",
  "difficulty_score": 1-100
}
Options are required for choice questions and must have at least two entries.
For single_choice the correct_answer is the zero-based index of the right option.`)
	return b.String()
}

func buildBlockInfoPrompt(level string, difficulty int, coveredTopics []string, interests, goals string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan the next English lesson block for a learner at CEFR level %s, difficulty %d of 5.\n", level, difficulty)
	if len(coveredTopics) > 0 {
		fmt.Fprintf(&b, "Grammar topics already covered, do not repeat them: %s.\n", strings.Join(coveredTopics, ", "))
	}
	if interests != "" {
		fmt.Fprintf(&b, "Learner interests: %s.\n", interests)
	}
	if goals != "" {
		fmt.Fprintf(&b, "Learning goals: %s.\n", goals)
	}
	fmt.Fprintf(&b, `
Return ONLY a JSON object:
{
  "title": "...",
  "description": "...",
  "level": "%s",
  "difficulty_level": %d,
  "grammar_topic": "one new grammar topic for this block"
}`, level, difficulty)
	return b.String()
}

func buildGrammarLessonPrompt(level, grammarTopic string, difficulty int) string {
	return fmt.Sprintf(`Write a grammar lesson on "%s" for an English learner at CEFR level %s, difficulty %d of 5.

Return ONLY a JSON object:
{
  "title": "...",
  "content": {
    "theory": "full explanation of the rule with usage notes",
    "examples": ["...", "..."],
    "exercises": [ ...exactly 5 exercise objects... ]
  }
}
Each exercise object: {"question": "...", "type": "single_choice" | "multiple_choice" | "text_input", "options": [...], "correct_answer": ..., "explanation": "..."}.
Choice exercises need at least two options; correct_answer for single_choice is the zero-based option index.`, grammarTopic, level, difficulty)
}

func buildVocabularyLessonPrompt(level, grammarTopic string, difficulty int, interests string) string {
	words := vocabularyWordCounts[difficulty]
	if words == 0 {
		words = 12
	}
	theme := ""
	if interests != "" {
		theme = fmt.Sprintf(" Prefer vocabulary related to: %s.", interests)
	}
	return fmt.Sprintf(`Write a vocabulary lesson for an English learner at CEFR level %s introducing exactly %d new words, thematically connected to the grammar topic "%s".%s

Return ONLY a JSON object:
{
  "title": "...",
  "content": {
    "words": [{"word": "...", "translation": "...", "definition": "...", "example": "..."}],
    "exercises": [ ...exactly 5 exercise objects... ]
  }
}
Each exercise object: {"question": "...", "type": "single_choice" | "multiple_choice" | "text_input", "options": [...], "correct_answer": ..., "explanation": "..."}.`, level, words, grammarTopic, theme)
}

func buildReadingLessonPrompt(level, grammarTopic string, difficulty int, interests string) string {
	length := readingTextLengths[difficulty]
	if length == 0 {
		length = 250
	}
	theme := ""
	if interests != "" {
		theme = fmt.Sprintf(" about a subject matching these interests: %s", interests)
	}
	return fmt.Sprintf(`Write a reading lesson for an English learner at CEFR level %s%s. The text must be about %d words long and naturally use the grammar topic "%s".

Return ONLY a JSON object:
{
  "title": "...",
  "content": {
    "text": "the reading passage",
    "exercises": [ ...exactly 5 comprehension exercise objects... ]
  }
}
Each exercise object: {"question": "...", "type": "single_choice" | "multiple_choice" | "text_input", "options": [...], "correct_answer": ..., "explanation": "..."}.`, level, theme, length, grammarTopic)
}
