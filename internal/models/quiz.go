package models

type QuestionType string

const (
	SingleChoice QuestionType = "single_choice"
	TrueFalse    QuestionType = "true_false"
	ShortAnswer  QuestionType = "short_answer"
	LongAnswer   QuestionType = "long_answer"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case SingleChoice, TrueFalse, ShortAnswer, LongAnswer:
		return true
	}
	return false
}

// HasOptions reports whether questions of this type carry an option list.
func (t QuestionType) HasOptions() bool {
	return t == SingleChoice || t == TrueFalse
}

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type Question struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Text    string       `json:"text"`
	Options []Option     `json:"options,omitempty"` // single_choice/true_false only
	Points  int          `json:"points"`            // informational; the grading service owns scoring
}

// QuizDefinition is the immutable quiz content returned by the catalog
// service. Question order is significant: it dictates submission payload
// order.
type QuizDefinition struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	TimeLimitSeconds *int       `json:"time_limit_seconds"` // nil means untimed
	PassThreshold    float64    `json:"pass_threshold"`
	Questions        []Question `json:"questions"`
}

// QuestionByID returns the question with the given id, or nil.
func (q *QuizDefinition) QuestionByID(id string) *Question {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i]
		}
	}
	return nil
}
