package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QuestionType discriminates how a question is answered and scored.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionTrueFalse      QuestionType = "true-false"
	QuestionWord           QuestionType = "word"
)

// Question is one entry of a quiz definition. For true-false questions the
// correct index follows the int(bool) convention: 1 means true, 0 means false.
type Question struct {
	Text         string       `json:"text"`
	Type         QuestionType `json:"type"`
	Options      []string     `json:"options,omitempty"`
	CorrectIndex int          `json:"correctIndex,omitempty"`
	CorrectText  string       `json:"correctText,omitempty"`
	TimeLimitSec int          `json:"timeLimitSec"`
}

// QuizDefinition is the immutable quiz content a session runs against.
// It is supplied at session creation and read-only for the session's lifetime.
type QuizDefinition struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// SessionStatus is the top-level phase of a session. Transitions are monotonic:
// waiting -> active -> finished, never backwards.
type SessionStatus string

const (
	StatusWaiting  SessionStatus = "waiting"
	StatusActive   SessionStatus = "active"
	StatusFinished SessionStatus = "finished"
)

// SessionSnapshot is the externally visible phase state of a session.
type SessionSnapshot struct {
	SessionID           string        `json:"sessionId"`
	JoinCode            string        `json:"joinCode"`
	Status              SessionStatus `json:"status"`
	CurrentQuestion     int           `json:"currentQuestionIndex"`
	QuestionCount       int           `json:"questionCount"`
	ResultsRevealed     bool          `json:"resultsRevealed"`
	LeaderboardRevealed bool          `json:"leaderboardRevealed"`
	ParticipantCount    int           `json:"participantCount"`
	CreatedAt           time.Time     `json:"createdAt"`
	StartedAt           time.Time     `json:"startedAt,omitempty"`
	EndedAt             time.Time     `json:"endedAt,omitempty"`
}

// Participant is one joined player. Participants are never removed; Connected
// is presence display only and has no bearing on the ledger.
type Participant struct {
	ID          string    `json:"participantId"`
	DisplayName string    `json:"displayName"`
	JoinedAt    time.Time `json:"joinedAt"`
	Connected   bool      `json:"connected"`
}

// AnswerKind tags which variant an AnswerValue carries.
type AnswerKind string

const (
	AnswerOption  AnswerKind = "option"
	AnswerBoolean AnswerKind = "boolean"
	AnswerText    AnswerKind = "text"
)

// AnswerValue is a tagged answer payload. Exactly one variant is set; the
// submission path rejects values whose kind does not match the question type.
type AnswerValue struct {
	Kind        AnswerKind
	OptionIndex int
	Boolean     bool
	Text        string
}

type answerValueJSON struct {
	OptionIndex *int    `json:"optionIndex,omitempty"`
	Boolean     *bool   `json:"boolean,omitempty"`
	Text        *string `json:"text,omitempty"`
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	var out answerValueJSON
	switch v.Kind {
	case AnswerOption:
		out.OptionIndex = &v.OptionIndex
	case AnswerBoolean:
		out.Boolean = &v.Boolean
	case AnswerText:
		out.Text = &v.Text
	default:
		return nil, fmt.Errorf("marshal answer: unknown kind %q", v.Kind)
	}
	return json.Marshal(out)
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var in answerValueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch {
	case in.OptionIndex != nil:
		*v = AnswerValue{Kind: AnswerOption, OptionIndex: *in.OptionIndex}
	case in.Boolean != nil:
		*v = AnswerValue{Kind: AnswerBoolean, Boolean: *in.Boolean}
	case in.Text != nil:
		*v = AnswerValue{Kind: AnswerText, Text: *in.Text}
	default:
		return fmt.Errorf("unmarshal answer: no variant set")
	}
	return nil
}

// Key returns the identity under which this value is counted in a
// distribution: the option index in decimal, "true"/"false", or the
// normalized word.
func (v AnswerValue) Key() string {
	switch v.Kind {
	case AnswerOption:
		return strconv.Itoa(v.OptionIndex)
	case AnswerBoolean:
		return strconv.FormatBool(v.Boolean)
	default:
		return NormalizeWord(v.Text)
	}
}

// NormalizeWord is the canonical form used for word-answer matching:
// surrounding whitespace stripped, case folded.
func NormalizeWord(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// AnswerRecord is one participant's response to one question. Records are
// append-only: created on successful submission, never mutated or deleted.
type AnswerRecord struct {
	SessionID     string      `json:"sessionId"`
	QuestionIndex int         `json:"questionIndex"`
	ParticipantID string      `json:"participantId"`
	Answer        AnswerValue `json:"answer"`
	SubmittedAt   time.Time   `json:"submittedAt"`
	ElapsedMillis int64       `json:"elapsedMillis"`
	IsCorrect     bool        `json:"isCorrect"`
	Score         int         `json:"score"`
}

// AnswerDistribution is the per-question tally of submissions by answer key.
// It is derived from the ledger and never written by callers.
type AnswerDistribution struct {
	QuestionIndex int            `json:"questionIndex"`
	Counts        map[string]int `json:"counts"`
	Total         int            `json:"total"`
}

// LeaderboardEntry is one ranked row of the session leaderboard.
type LeaderboardEntry struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	TotalScore    int    `json:"totalScore"`
	CorrectCount  int    `json:"correctCount"`
	Rank          int    `json:"rank"`
}

// Leaderboard is the ranked scoreboard derived from the answer ledger.
type Leaderboard struct {
	SessionID string             `json:"sessionId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
