package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)

	store.Put(app.NewSession("s-1", "u1", domain.TopicSummary{ID: "topic-1"}))
	if !mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be set")
	}
	if user := mr.HGet("quiz:session:s-1", "user"); user != "u1" {
		t.Fatalf("expected owner u1, got %q", user)
	}
	if _, ok := store.Get("s-1"); !ok {
		t.Fatalf("expected local session")
	}

	store.Delete("s-1")
	if mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected local session removed")
	}
}

func TestSessionStoreRefreshesTTLOnActivity(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	store.Put(app.NewSession("s-1", "u1", domain.TopicSummary{ID: "topic-1"}))

	for i := 0; i < 3; i++ {
		mr.FastForward(50 * time.Second)
		if _, ok := store.Get("s-1"); !ok {
			t.Fatalf("expected local session")
		}
	}
	if !mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected marker kept alive by activity")
	}

	mr.FastForward(61 * time.Second)
	if mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected idle marker to expire")
	}
}
