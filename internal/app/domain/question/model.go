// Package question defines the daily questionnaire items and their
// canonical ordering.
package question

// Question is a single self-report item answered on a four-point scale.
type Question struct {
	ID          int
	Text        string
	ScaleLabels [4]string
	Summary     string
}

// Scale bounds for every answer. Answers outside this range are rejected by
// the observation codec.
const (
	MinAnswer = 1
	MaxAnswer = 4
)

var defaultScale = [4]string{"Not Present", "Noticed", "Impactful", "Debilitating"}

// Bank returns the active question set in canonical order. The order is
// load-bearing: encoded observations carry one digit per question in
// exactly this sequence.
func Bank() []Question {
	return []Question{
		{ID: 1, Text: "Voices/sounds others don't hear", ScaleLabels: defaultScale, Summary: "Caffeine"},
		{ID: 2, Text: "Beliefs others find strange", ScaleLabels: defaultScale, Summary: "Sleepiness"},
		{ID: 3, Text: "Feeling unreal/disconnected", ScaleLabels: defaultScale, Summary: "Cat"},
		{ID: 4, Text: "Feeling sad/depressed", ScaleLabels: defaultScale, Summary: "Door"},
		{ID: 5, Text: "Energy level", ScaleLabels: [4]string{"Elevated", "Normal", "Tired", "Exhausted"}, Summary: "Tabs"},
		{ID: 6, Text: "Difficulty concentrating", ScaleLabels: defaultScale, Summary: "Stretch"},
		{ID: 7, Text: "Problems with daily tasks", ScaleLabels: defaultScale, Summary: "Hunger"},
		{ID: 8, Text: "Social withdrawal", ScaleLabels: defaultScale, Summary: "Regret"},
		{ID: 9, Text: "Thoughts of self-harm", ScaleLabels: defaultScale, Summary: "Workspace"},
		{ID: 10, Text: "Sleep quality", ScaleLabels: [4]string{"Good", "Fair", "Degraded", "Terrible"}, Summary: "Hobby"},
	}
}
