package model

// CEFRLevels lists the six reference levels in ascending order.
var CEFRLevels = []string{"A1", "A2", "B1", "B2", "C1", "C2"}

const DefaultLevel = "B1"

// LevelIndex maps a CEFR code to its ordinal. Unknown codes map to B1.
func LevelIndex(level string) int {
	for i, l := range CEFRLevels {
		if l == level {
			return i
		}
	}
	return 2
}

func IsValidLevel(level string) bool {
	for _, l := range CEFRLevels {
		if l == level {
			return true
		}
	}
	return false
}

// NextLevelUp returns the level one step above, saturating at C2.
func NextLevelUp(level string) string {
	idx := LevelIndex(level)
	if idx < len(CEFRLevels)-1 {
		return CEFRLevels[idx+1]
	}
	return CEFRLevels[len(CEFRLevels)-1]
}

// NextLevelDown returns the level one step below, saturating at A1.
func NextLevelDown(level string) string {
	idx := LevelIndex(level)
	if idx > 0 {
		return CEFRLevels[idx-1]
	}
	return CEFRLevels[0]
}

// LevelInfo is the display card for one CEFR level.
type LevelInfo struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var levelCatalog = map[string]LevelInfo{
	"A1": {"A1", "Beginner", "You can understand and use simple phrases and expressions for concrete needs."},
	"A2": {"A2", "Elementary", "You can communicate in simple routine situations on familiar topics."},
	"B1": {"B1", "Intermediate", "You can deal with most situations and talk confidently about familiar subjects."},
	"B2": {"B2", "Upper-Intermediate", "You can interact fluently with native speakers and discuss a wide range of topics."},
	"C1": {"C1", "Advanced", "You can use the language flexibly and effectively for social, academic and professional purposes."},
	"C2": {"C2", "Proficient", "You can understand virtually everything and express yourself precisely, close to a native speaker."},
}

// InfoForLevel returns the display card for a level, falling back to B1 for
// unknown codes.
func InfoForLevel(level string) LevelInfo {
	if info, ok := levelCatalog[level]; ok {
		return info
	}
	return levelCatalog[DefaultLevel]
}

// AllLevels returns the level cards in ascending order, for scale displays.
func AllLevels() []LevelInfo {
	levels := make([]LevelInfo, 0, len(CEFRLevels))
	for _, code := range CEFRLevels {
		levels = append(levels, levelCatalog[code])
	}
	return levels
}

var learningPlans = map[string]string{
	"A1": "Focus on basic grammar, core vocabulary and simple dialogues. Aim for 3-4 short sessions of about 30 minutes per week.",
	"A2": "Work through common grammar structures, grow your vocabulary actively and read simple texts. Aim for 4-5 sessions per week.",
	"B1": "Deepen your grammar, read graded readers and practice speaking. Five sessions of about 45 minutes per week work well.",
	"B2": "Study complex grammar structures, read original texts and communicate in English as much as possible. Daily practice is recommended.",
	"C1": "Polish your style, work on idioms and specialised vocabulary. Immersion in an English-speaking environment is ideal.",
	"C2": "Maintain your level through demanding literature, films and regular conversation with native speakers.",
}

// LearningPlanForLevel returns the study recommendation for a level.
func LearningPlanForLevel(level string) string {
	if plan, ok := learningPlans[level]; ok {
		return plan
	}
	return learningPlans[DefaultLevel]
}

// LevelForPercentage maps an overall test percentage to a CEFR level.
func LevelForPercentage(percentage float64) string {
	switch {
	case percentage >= 90:
		return "C2"
	case percentage >= 80:
		return "C1"
	case percentage >= 70:
		return "B2"
	case percentage >= 60:
		return "B1"
	case percentage >= 50:
		return "A2"
	default:
		return "A1"
	}
}
