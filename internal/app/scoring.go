package app

import "github.com/YuvrajSatwan/QuizVerse-sub000/internal/domain"

const baseScore = 100

// scoreAnswer is a pure function from (question, answer, elapsed) to
// (correct, score). A wrong answer scores zero; a correct one scores the base
// plus half the remaining whole seconds, so faster answers earn more.
func scoreAnswer(q domain.Question, v domain.AnswerValue, elapsedMillis int64) (bool, int) {
	if !answerCorrect(q, v) {
		return false, 0
	}
	return true, baseScore + timeBonus(q.TimeLimitSec, elapsedMillis)
}

func answerCorrect(q domain.Question, v domain.AnswerValue) bool {
	switch q.Type {
	case domain.QuestionMultipleChoice:
		return v.Kind == domain.AnswerOption && v.OptionIndex == q.CorrectIndex
	case domain.QuestionTrueFalse:
		if v.Kind != domain.AnswerBoolean {
			return false
		}
		selected := 0
		if v.Boolean {
			selected = 1
		}
		return selected == q.CorrectIndex
	case domain.QuestionWord:
		return v.Kind == domain.AnswerText &&
			domain.NormalizeWord(v.Text) == domain.NormalizeWord(q.CorrectText)
	}
	return false
}

// timeBonus awards floor(remainingSeconds/2) for a correct answer. Late
// submissions (elapsed past the limit) earn nothing extra.
func timeBonus(timeLimitSec int, elapsedMillis int64) int {
	remaining := timeLimitSec - int(elapsedMillis/1000)
	if remaining < 0 {
		remaining = 0
	}
	return remaining / 2
}
