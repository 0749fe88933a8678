package app

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/domain"
)

// SessionConfig carries the per-session policy knobs. Timer expiry always
// forces a reveal; advancing past the question only happens when AutoAdvance
// is explicitly enabled.
type SessionConfig struct {
	AutoAdvance      bool
	AutoAdvanceDelay time.Duration
}

type subscriber struct {
	ch   chan domain.Event
	host bool
}

// Session is the authoritative aggregate for one live quiz run: phase state,
// participant registry, answer ledger, and derived aggregates, all guarded by
// a single lock so transitions and ledger writes serialize per session.
// Cross-session operations share nothing.
type Session struct {
	id     string
	code   string
	hostID string
	quiz   domain.QuizDefinition
	cfg    SessionConfig

	now       func() time.Time
	afterFunc func(time.Duration, func()) *time.Timer

	mu                  sync.RWMutex
	status              domain.SessionStatus
	currentIndex        int
	revealed            map[int]bool
	leaderboardRevealed bool
	createdAt           time.Time
	startedAt           time.Time
	endedAt             time.Time
	questionStartedAt   time.Time
	version             uint64

	participants  map[string]*domain.Participant
	answers       map[int]map[string]*domain.AnswerRecord
	distributions map[int]map[string]int

	subscribers   map[*subscriber]struct{}
	questionTimer *time.Timer
}

// NewSession is exported for stores that need to seed sessions.
func NewSession(id, hostID string, quiz domain.QuizDefinition, cfg SessionConfig) *Session {
	return newSessionWithClock(id, hostID, quiz, cfg, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id, hostID string, quiz domain.QuizDefinition, cfg SessionConfig, now func() time.Time) *Session {
	return newSessionWithClock(id, hostID, quiz, cfg, now)
}

func newSessionWithClock(id, hostID string, quiz domain.QuizDefinition, cfg SessionConfig, now func() time.Time) *Session {
	return &Session{
		id:            id,
		code:          domain.JoinCode(id),
		hostID:        hostID,
		quiz:          quiz,
		cfg:           cfg,
		now:           now,
		afterFunc:     time.AfterFunc,
		createdAt:     now(),
		status:        domain.StatusWaiting,
		revealed:      make(map[int]bool),
		participants:  make(map[string]*domain.Participant),
		answers:       make(map[int]map[string]*domain.AnswerRecord),
		distributions: make(map[int]map[string]int),
		subscribers:   make(map[*subscriber]struct{}),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Code returns the shareable join code derived from the session ID.
func (s *Session) Code() string { return s.code }

// Join registers a new participant. Display-name collisions are allowed; the
// participant ID is the only key. Joining is permitted while waiting or
// active, never after finish.
func (s *Session) Join(displayName string) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusFinished {
		return domain.Participant{}, domain.ErrSessionEnded
	}

	p := &domain.Participant{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		JoinedAt:    s.now(),
		Connected:   true,
	}
	s.participants[p.ID] = p
	s.version++
	return *p, nil
}

// Participant looks up a joined player by ID.
func (s *Session) Participant(participantID string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[participantID]
	if !ok {
		return domain.Participant{}, domain.ErrNotFound
	}
	return *p, nil
}

// SetConnected updates presence display state. It never removes a participant.
func (s *Session) SetConnected(participantID string, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.participants[participantID]; ok {
		p.Connected = connected
	}
}

// Start moves the session from waiting to active and arms the first
// question's timer. Host authorization happens before this is called.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusWaiting {
		return domain.ErrInvalidTransition
	}

	s.status = domain.StatusActive
	s.currentIndex = 0
	s.startedAt = s.now()
	s.questionStartedAt = s.startedAt
	s.version++
	s.armTimerLocked()

	snap := s.snapshotLocked()
	s.publishLocked(domain.Event{Type: domain.EventSessionStarted, Snapshot: &snap}, true)
	return nil
}

// RevealResults makes the current question's aggregates visible to players.
// Idempotent: revealing an already revealed question is a no-op.
func (s *Session) RevealResults() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revealLocked()
}

func (s *Session) revealLocked() error {
	if s.status != domain.StatusActive {
		return domain.ErrInvalidTransition
	}
	if s.revealed[s.currentIndex] {
		return nil
	}
	s.revealed[s.currentIndex] = true
	s.version++

	dist := s.distributionLocked(s.currentIndex)
	s.publishLocked(domain.Event{
		Type:          domain.EventResultsRevealed,
		QuestionIndex: s.currentIndex,
		Distribution:  &dist,
	}, true)
	return nil
}

// Advance moves to the next question, or finishes the session when the
// current question is the last one. The session lock serializes concurrent
// advances, so the index moves one step per call and never skips.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked()
}

func (s *Session) advanceLocked() error {
	if s.status != domain.StatusActive {
		return domain.ErrInvalidTransition
	}

	if s.currentIndex+1 < len(s.quiz.Questions) {
		s.currentIndex++
		s.questionStartedAt = s.now()
		s.version++
		s.armTimerLocked()
		s.publishLocked(domain.Event{
			Type:          domain.EventQuestionAdvanced,
			QuestionIndex: s.currentIndex,
		}, true)
		return nil
	}

	s.status = domain.StatusFinished
	s.endedAt = s.now()
	s.leaderboardRevealed = false
	s.version++
	s.stopTimerLocked()
	s.publishLocked(domain.Event{Type: domain.EventSessionFinished}, true)
	return nil
}

// RevealLeaderboard publishes the final standings. Finished sessions only;
// idempotent.
func (s *Session) RevealLeaderboard() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusFinished {
		return domain.ErrInvalidTransition
	}
	if s.leaderboardRevealed {
		return nil
	}
	s.leaderboardRevealed = true
	s.version++

	lb := s.leaderboardLocked()
	s.publishLocked(domain.Event{Type: domain.EventLeaderboardRevealed, Leaderboard: &lb}, true)
	return nil
}

// TimerExpire is the countdown callback for a question. The index guard runs
// at fire time: a timer armed for an earlier question silently does nothing
// once the host has advanced. Expiry forces a reveal and, only when
// configured, schedules the advance.
func (s *Session) TimerExpire(questionIndex int) {
	s.mu.Lock()
	if s.status != domain.StatusActive || s.currentIndex != questionIndex {
		s.mu.Unlock()
		return
	}
	_ = s.revealLocked()
	autoAdvance := s.cfg.AutoAdvance
	delay := s.cfg.AutoAdvanceDelay
	s.mu.Unlock()

	if autoAdvance {
		s.afterFunc(delay, func() {
			s.advanceIfCurrent(questionIndex)
		})
	}
}

// advanceIfCurrent is the scheduled half of auto-advance. The staleness
// re-check and the index move share one lock acquisition, so a host advance
// landing just before the callback makes it a no-op instead of double-moving.
func (s *Session) advanceIfCurrent(questionIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusActive || s.currentIndex != questionIndex {
		return
	}
	_ = s.advanceLocked()
}

// SubmitAnswer validates, scores, and appends one answer record. The
// composite key (question index, participant) is create-if-absent under the
// session lock: of N concurrent submissions for the same key exactly one
// lands and the rest get ErrDuplicateAnswer.
func (s *Session) SubmitAnswer(questionIndex int, participantID string, value domain.AnswerValue) (domain.AnswerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusActive {
		return domain.AnswerRecord{}, domain.ErrInvalidTransition
	}
	if questionIndex != s.currentIndex {
		return domain.AnswerRecord{}, domain.ErrStaleQuestion
	}
	if _, ok := s.participants[participantID]; !ok {
		return domain.AnswerRecord{}, domain.ErrNotFound
	}

	question := s.quiz.Questions[questionIndex]
	if err := question.CheckAnswer(value); err != nil {
		return domain.AnswerRecord{}, err
	}

	byParticipant, ok := s.answers[questionIndex]
	if !ok {
		byParticipant = make(map[string]*domain.AnswerRecord)
		s.answers[questionIndex] = byParticipant
	}
	if _, exists := byParticipant[participantID]; exists {
		return domain.AnswerRecord{}, domain.ErrDuplicateAnswer
	}

	submittedAt := s.now()
	elapsed := submittedAt.Sub(s.questionStartedAt).Milliseconds()
	correct, score := scoreAnswer(question, value, elapsed)

	record := &domain.AnswerRecord{
		SessionID:     s.id,
		QuestionIndex: questionIndex,
		ParticipantID: participantID,
		Answer:        value,
		SubmittedAt:   submittedAt,
		ElapsedMillis: elapsed,
		IsCorrect:     correct,
		Score:         score,
	}
	byParticipant[participantID] = record

	counts, ok := s.distributions[questionIndex]
	if !ok {
		counts = make(map[string]int)
		s.distributions[questionIndex] = counts
	}
	key := value.Key()
	counts[key]++
	s.version++

	s.publishLocked(domain.Event{
		Type: domain.EventAnswerRecorded,
		Delta: &domain.AggregateDelta{
			QuestionIndex: questionIndex,
			AnswerKey:     key,
			Count:         counts[key],
			Total:         len(byParticipant),
		},
	}, s.revealed[questionIndex])

	return *record, nil
}

// Snapshot returns the current phase state.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	return domain.SessionSnapshot{
		SessionID:           s.id,
		JoinCode:            s.code,
		Status:              s.status,
		CurrentQuestion:     s.currentIndex,
		QuestionCount:       len(s.quiz.Questions),
		ResultsRevealed:     s.revealed[s.currentIndex],
		LeaderboardRevealed: s.leaderboardRevealed,
		ParticipantCount:    len(s.participants),
		CreatedAt:           s.createdAt,
		StartedAt:           s.startedAt,
		EndedAt:             s.endedAt,
	}
}

// Distribution returns the answer tally for a question. Visibility gating
// (host vs player) is the caller's concern; Revealed reports the flag.
func (s *Session) Distribution(questionIndex int) (domain.AnswerDistribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if questionIndex < 0 || questionIndex >= len(s.quiz.Questions) {
		return domain.AnswerDistribution{}, domain.ErrNotFound
	}
	return s.distributionLocked(questionIndex), nil
}

func (s *Session) distributionLocked(questionIndex int) domain.AnswerDistribution {
	counts := make(map[string]int, len(s.distributions[questionIndex]))
	total := 0
	for key, n := range s.distributions[questionIndex] {
		counts[key] = n
		total += n
	}
	return domain.AnswerDistribution{QuestionIndex: questionIndex, Counts: counts, Total: total}
}

// Revealed reports whether a question's results have been made player-visible.
func (s *Session) Revealed(questionIndex int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revealed[questionIndex]
}

// LeaderboardVisible reports whether players may currently read the
// leaderboard: after the current question's reveal, or once the final
// leaderboard is revealed.
func (s *Session) LeaderboardVisible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revealed[s.currentIndex] || s.leaderboardRevealed
}

// Leaderboard recomputes the ranked standings from the ledger. Full recompute
// is the correctness baseline; sessions are small enough that no incremental
// shortcut is worth diverging from it.
func (s *Session) Leaderboard() domain.Leaderboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaderboardLocked()
}

func (s *Session) leaderboardLocked() domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(s.participants))
	for id, p := range s.participants {
		entry := domain.LeaderboardEntry{ParticipantID: id, DisplayName: p.DisplayName}
		for _, byParticipant := range s.answers {
			if record, ok := byParticipant[id]; ok {
				entry.TotalScore += record.Score
				if record.IsCorrect {
					entry.CorrectCount++
				}
			}
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		// Ties rank earlier joiners higher.
		pi := s.participants[entries[i].ParticipantID]
		pj := s.participants[entries[j].ParticipantID]
		if !pi.JoinedAt.Equal(pj.JoinedAt) {
			return pi.JoinedAt.Before(pj.JoinedAt)
		}
		return entries[i].ParticipantID < entries[j].ParticipantID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return domain.Leaderboard{
		SessionID: s.id,
		Entries:   entries,
		UpdatedAt: s.now(),
	}
}

// Subscribe registers an event channel: a snapshot event first, then the live
// stream in commit order. The caller must invoke cancel to avoid leaks.
// Player subscribers never receive answer-recorded events for unrevealed
// questions; that filter lives here, not in callers.
func (s *Session) Subscribe(host bool) (<-chan domain.Event, func()) {
	sub := &subscriber{ch: make(chan domain.Event, 64), host: host}

	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	snap := s.snapshotLocked()
	initial := domain.Event{
		Type:      domain.EventSnapshot,
		SessionID: s.id,
		Version:   s.version,
		Snapshot:  &snap,
	}
	if s.status != domain.StatusWaiting && (host || s.revealed[s.currentIndex]) {
		dist := s.distributionLocked(s.currentIndex)
		initial.Distribution = &dist
	}
	if host || s.revealed[s.currentIndex] || s.leaderboardRevealed {
		lb := s.leaderboardLocked()
		initial.Leaderboard = &lb
	}
	// Sent under the lock so no live event can slip in ahead of the snapshot.
	sub.ch <- initial
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[sub]; ok {
			delete(s.subscribers, sub)
			close(sub.ch)
		}
		s.mu.Unlock()
	}
	return sub.ch, cancel
}

// publishLocked stamps and fans out an event. Sends never block the session
// lock: when a subscriber's buffer is full the oldest buffered event is
// dropped, so a slow client falls behind without stalling the session, and
// recovers via resubscribe (snapshot-then-tail).
func (s *Session) publishLocked(ev domain.Event, playerVisible bool) {
	ev.SessionID = s.id
	ev.Version = s.version
	for sub := range s.subscribers {
		if !sub.host && !playerVisible {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- ev
		}
	}
}

func (s *Session) armTimerLocked() {
	s.stopTimerLocked()
	index := s.currentIndex
	limit := time.Duration(s.quiz.Questions[index].TimeLimitSec) * time.Second
	s.questionTimer = s.afterFunc(limit, func() {
		s.TimerExpire(index)
	})
}

func (s *Session) stopTimerLocked() {
	if s.questionTimer != nil {
		s.questionTimer.Stop()
		s.questionTimer = nil
	}
}

// Close stops the pending timer and drops all subscribers.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	for sub := range s.subscribers {
		delete(s.subscribers, sub)
		close(sub.ch)
	}
}
