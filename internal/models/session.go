package models

type Phase string

const (
	PhaseLoading      Phase = "loading"
	PhaseInProgress   Phase = "in_progress"
	PhaseSubmitting   Phase = "submitting"
	PhaseCompleted    Phase = "completed"
	PhaseLoadFailed   Phase = "load_failed"
	PhaseSubmitFailed Phase = "submit_failed"
)

// Terminal reports whether no further transition can leave this phase.
// LOAD_FAILED and SUBMIT_FAILED are recoverable via explicit caller action.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted
}

type SubmitTrigger string

const (
	TriggerManual  SubmitTrigger = "manual"
	TriggerTimeout SubmitTrigger = "timeout"
)

// AnswerValue is the tagged variant for an in-progress draft answer.
// OptionAnswer is used for single_choice/true_false questions, TextAnswer
// for short_answer/long_answer. Serialization branches exhaustively on the
// question type, so a draft of the wrong kind is treated as unanswered.
type AnswerValue interface {
	answerValue()
}

type OptionAnswer struct {
	OptionID string
}

type TextAnswer struct {
	Text string
}

func (OptionAnswer) answerValue() {}
func (TextAnswer) answerValue()   {}

// AnswerPayload is one entry of the grading submission. Choice questions
// carry selected_option_id (absent when unanswered); text questions carry
// text_response (empty string when unanswered).
type AnswerPayload struct {
	QuestionID       string  `json:"question_id"`
	SelectedOptionID *string `json:"selected_option_id,omitempty"`
	TextResponse     *string `json:"text_response,omitempty"`
}

// SubmissionPayload is the body POSTed to the grading service. Entries are
// ordered by quiz question order, never by answer-entry order.
type SubmissionPayload struct {
	QuizID  string          `json:"quiz_id"`
	Answers []AnswerPayload `json:"answers"`
}

// SubmissionResult echoes the grading service's authoritative verdict.
type SubmissionResult struct {
	Score  float64 `json:"score"`
	Passed bool    `json:"passed"`
}

// SessionSnapshot is a read-only view of one attempt's state, safe to hand
// to transports and subscribers.
type SessionSnapshot struct {
	ID                string            `json:"id"`
	QuizID            string            `json:"quiz_id"`
	Phase             Phase             `json:"phase"`
	RemainingSeconds  *int              `json:"remaining_seconds,omitempty"` // nil for untimed quizzes
	QuestionsAnswered int               `json:"questions_answered"`
	TotalQuestions    int               `json:"total_questions"`
	EndReason         *SubmitTrigger    `json:"end_reason,omitempty"`
	Result            *SubmissionResult `json:"result,omitempty"` // populated only in completed
}
