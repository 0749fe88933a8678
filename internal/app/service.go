package app

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/domain"
)

// SessionRepository abstracts how live sessions are stored and how join codes
// resolve back to session IDs (in-memory, Redis-backed, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	ResolveCode(code string) (string, bool)
}

// QuizRepository loads stored quiz definitions (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.QuizDefinition, error)
}

// HostAuthorizer issues and checks the host credential for a session.
type HostAuthorizer interface {
	Issue(sessionID string) (string, error)
	Verify(token, sessionID string) error
}

// SessionService contains the live-quiz use cases. Every session is an
// independently addressable aggregate; the service holds no mutable state of
// its own beyond the repositories it composes.
type SessionService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	auth     HostAuthorizer
	cfg      SessionConfig
}

func NewSessionService(sessions SessionRepository, quizzes QuizRepository, auth HostAuthorizer, cfg SessionConfig) *SessionService {
	return &SessionService{sessions: sessions, quizzes: quizzes, auth: auth, cfg: cfg}
}

// CreatedSession is handed back to the host after session creation. The token
// is the only proof of host privilege and is never re-issued.
type CreatedSession struct {
	SessionID string `json:"sessionId"`
	JoinCode  string `json:"joinCode"`
	HostToken string `json:"hostToken"`
}

// CreateSession validates the definition and registers a new waiting session.
func (s *SessionService) CreateSession(_ context.Context, quiz domain.QuizDefinition, hostID string) (CreatedSession, error) {
	if err := quiz.Validate(); err != nil {
		return CreatedSession{}, err
	}

	session := NewSession(uuid.NewString(), hostID, quiz, s.cfg)
	token, err := s.auth.Issue(session.ID())
	if err != nil {
		return CreatedSession{}, err
	}
	s.sessions.Put(session)
	log.Printf("session %s created (code %s, %d questions)", session.ID(), session.Code(), len(quiz.Questions))

	return CreatedSession{SessionID: session.ID(), JoinCode: session.Code(), HostToken: token}, nil
}

// CreateSessionFromStore creates a session from a stored quiz definition.
func (s *SessionService) CreateSessionFromStore(ctx context.Context, quizID, hostID string) (CreatedSession, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return CreatedSession{}, err
	}
	return s.CreateSession(ctx, quiz, hostID)
}

// Resolve finds a session by ID or by its 6-character join code.
func (s *SessionService) Resolve(ref string) (*Session, error) {
	if session, ok := s.sessions.Get(ref); ok {
		return session, nil
	}
	if id, ok := s.sessions.ResolveCode(ref); ok {
		if session, ok := s.sessions.Get(id); ok {
			return session, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Join registers a participant in a session addressed by ID or join code.
func (s *SessionService) Join(_ context.Context, ref, displayName string) (domain.Participant, domain.SessionSnapshot, error) {
	session, err := s.Resolve(ref)
	if err != nil {
		return domain.Participant{}, domain.SessionSnapshot{}, err
	}
	participant, err := session.Join(displayName)
	if err != nil {
		return domain.Participant{}, domain.SessionSnapshot{}, err
	}
	return participant, session.Snapshot(), nil
}

func (s *SessionService) hostSession(sessionID, token string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := s.auth.Verify(token, sessionID); err != nil {
		return nil, err
	}
	return session, nil
}

// Start begins the quiz. Host-only.
func (s *SessionService) Start(_ context.Context, sessionID, hostToken string) error {
	session, err := s.hostSession(sessionID, hostToken)
	if err != nil {
		return err
	}
	return session.Start()
}

// RevealResults makes the current question's aggregates player-visible. Host-only.
func (s *SessionService) RevealResults(_ context.Context, sessionID, hostToken string) error {
	session, err := s.hostSession(sessionID, hostToken)
	if err != nil {
		return err
	}
	return session.RevealResults()
}

// Advance moves to the next question or finishes the session. Host-only.
func (s *SessionService) Advance(_ context.Context, sessionID, hostToken string) error {
	session, err := s.hostSession(sessionID, hostToken)
	if err != nil {
		return err
	}
	return session.Advance()
}

// RevealLeaderboard publishes the final standings. Host-only.
func (s *SessionService) RevealLeaderboard(_ context.Context, sessionID, hostToken string) error {
	session, err := s.hostSession(sessionID, hostToken)
	if err != nil {
		return err
	}
	return session.RevealLeaderboard()
}

// SubmitAnswer records a participant's answer for the current question and
// returns the scored record to the submitter only.
func (s *SessionService) SubmitAnswer(_ context.Context, sessionID string, questionIndex int, participantID string, value domain.AnswerValue) (domain.AnswerRecord, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.AnswerRecord{}, domain.ErrNotFound
	}
	return session.SubmitAnswer(questionIndex, participantID, value)
}

// Snapshot returns the session's phase state. Available to anyone who knows
// the session.
func (s *SessionService) Snapshot(_ context.Context, ref string) (domain.SessionSnapshot, error) {
	session, err := s.Resolve(ref)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.Snapshot(), nil
}

// Aggregates returns the answer distribution for a question. The host sees it
// live; players only once that question's results are revealed.
func (s *SessionService) Aggregates(_ context.Context, sessionID string, questionIndex int, hostToken string) (domain.AnswerDistribution, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.AnswerDistribution{}, domain.ErrNotFound
	}
	// Bounds first so a bad index reads as NotFound, not Forbidden.
	dist, err := session.Distribution(questionIndex)
	if err != nil {
		return domain.AnswerDistribution{}, err
	}
	if s.auth.Verify(hostToken, sessionID) != nil && !session.Revealed(questionIndex) {
		return domain.AnswerDistribution{}, domain.ErrForbidden
	}
	return dist, nil
}

// Leaderboard returns the ranked standings under the same visibility rule as
// the event stream: host always, players once revealed.
func (s *SessionService) Leaderboard(_ context.Context, sessionID, hostToken string) (domain.Leaderboard, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Leaderboard{}, domain.ErrNotFound
	}
	if s.auth.Verify(hostToken, sessionID) != nil && !session.LeaderboardVisible() {
		return domain.Leaderboard{}, domain.ErrForbidden
	}
	return session.Leaderboard(), nil
}

// Subscribe opens the ordered event stream for a session. A valid host token
// upgrades the subscription to host visibility. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *SessionService) Subscribe(_ context.Context, ref, hostToken string) (<-chan domain.Event, func(), error) {
	session, err := s.Resolve(ref)
	if err != nil {
		return nil, nil, err
	}
	host := hostToken != "" && s.auth.Verify(hostToken, session.ID()) == nil
	ch, cancel := session.Subscribe(host)
	return ch, cancel, nil
}

// SetConnected flags a participant's presence for display. Not a correctness
// signal; the ledger never depends on it.
func (s *SessionService) SetConnected(_ context.Context, sessionID, participantID string, connected bool) {
	if session, ok := s.sessions.Get(sessionID); ok {
		session.SetConnected(participantID, connected)
	}
}
