package domain

import "fmt"

const (
	// MinTimeLimitSec and MaxTimeLimitSec bound a question's countdown.
	MinTimeLimitSec = 5
	MaxTimeLimitSec = 300

	minOptions = 2
)

// Validate checks a quiz definition before a session is created from it.
func (q QuizDefinition) Validate() error {
	if len(q.Questions) == 0 {
		return &ValidationError{Field: "questions", Reason: "quiz has no questions"}
	}
	for i, question := range q.Questions {
		if err := question.validate(); err != nil {
			if verr, ok := err.(*ValidationError); ok {
				verr.Field = fmt.Sprintf("questions[%d].%s", i, verr.Field)
			}
			return err
		}
	}
	return nil
}

func (q Question) validate() error {
	if q.Text == "" {
		return &ValidationError{Field: "text", Reason: "question text is empty"}
	}
	if q.TimeLimitSec < MinTimeLimitSec || q.TimeLimitSec > MaxTimeLimitSec {
		return &ValidationError{
			Field:  "timeLimitSec",
			Reason: fmt.Sprintf("time limit %d outside [%d,%d]", q.TimeLimitSec, MinTimeLimitSec, MaxTimeLimitSec),
		}
	}
	switch q.Type {
	case QuestionMultipleChoice:
		if len(q.Options) < minOptions {
			return &ValidationError{Field: "options", Reason: fmt.Sprintf("need at least %d options", minOptions)}
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return &ValidationError{Field: "correctIndex", Reason: "correct index out of range"}
		}
	case QuestionTrueFalse:
		if q.CorrectIndex != 0 && q.CorrectIndex != 1 {
			return &ValidationError{Field: "correctIndex", Reason: "true-false answer must be 0 or 1"}
		}
	case QuestionWord:
		if NormalizeWord(q.CorrectText) == "" {
			return &ValidationError{Field: "correctText", Reason: "word answer is empty"}
		}
	default:
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown question type %q", q.Type)}
	}
	return nil
}

// CheckAnswer verifies that a submitted value matches the question's declared
// type and, for multiple choice, references a real option.
func (q Question) CheckAnswer(v AnswerValue) error {
	switch q.Type {
	case QuestionMultipleChoice:
		if v.Kind != AnswerOption {
			return &ValidationError{Field: "answer", Reason: "expected an option index"}
		}
		if v.OptionIndex < 0 || v.OptionIndex >= len(q.Options) {
			return &ValidationError{Field: "answer", Reason: "option index out of range"}
		}
	case QuestionTrueFalse:
		if v.Kind != AnswerBoolean {
			return &ValidationError{Field: "answer", Reason: "expected a boolean choice"}
		}
	case QuestionWord:
		if v.Kind != AnswerText {
			return &ValidationError{Field: "answer", Reason: "expected a text answer"}
		}
	}
	return nil
}
