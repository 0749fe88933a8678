package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/app"
	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/domain"
)

func testSession(id string) *app.Session {
	return app.NewSession(id, "host-1", domain.QuizDefinition{
		Questions: []domain.Question{{Text: "q", Type: domain.QuestionTrueFalse, CorrectIndex: 1, TimeLimitSec: 10}},
	}, app.SessionConfig{})
}

func TestSessionStoreRegistersCodeDirectory(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	session := testSession("session-1")
	store.Put(session)

	if !mr.Exists("session:live:session-1") {
		t.Fatalf("expected liveness key")
	}
	if !mr.Exists("session:code:" + session.Code()) {
		t.Fatalf("expected code directory key")
	}

	if id, ok := store.ResolveCode(session.Code()); !ok || id != "session-1" {
		t.Fatalf("resolve code: got %q %v", id, ok)
	}
}

func TestSessionStoreResolvesLocallyWhenRedisEmpty(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	session := testSession("session-2")
	store.Put(session)
	mr.FlushAll()

	// Redis lost the directory entry; the local index still answers.
	if id, ok := store.ResolveCode(session.Code()); !ok || id != "session-2" {
		t.Fatalf("local fallback failed: got %q %v", id, ok)
	}
}
