package domain

// EventType names the session events fanned out to subscribers.
type EventType string

const (
	EventSnapshot            EventType = "snapshot"
	EventSessionStarted      EventType = "sessionStarted"
	EventQuestionAdvanced    EventType = "questionAdvanced"
	EventResultsRevealed     EventType = "resultsRevealed"
	EventAnswerRecorded      EventType = "answerRecorded"
	EventSessionFinished     EventType = "sessionFinished"
	EventLeaderboardRevealed EventType = "leaderboardRevealed"
)

// Event is one entry of a session's ordered event stream. Version is the
// session's write counter at commit time; it increases strictly within a
// session, so subscribers can detect the order events were committed in.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Version   uint64    `json:"version"`

	Snapshot      *SessionSnapshot    `json:"snapshot,omitempty"`
	QuestionIndex int                 `json:"questionIndex,omitempty"`
	Distribution  *AnswerDistribution `json:"distribution,omitempty"`
	Leaderboard   *Leaderboard        `json:"leaderboard,omitempty"`
	Delta         *AggregateDelta     `json:"delta,omitempty"`
}

// AggregateDelta describes one distribution increment caused by a recorded
// answer, without identifying the submitter.
type AggregateDelta struct {
	QuestionIndex int    `json:"questionIndex"`
	AnswerKey     string `json:"answerKey"`
	Count         int    `json:"count"`
	Total         int    `json:"total"`
}
