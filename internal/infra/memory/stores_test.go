package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
)

func TestHistoryStoreNewestFirstAndCapped(t *testing.T) {
	ctx := context.Background()
	store := NewHistoryStore(2)

	for _, id := range []string{"h1", "h2", "h3"} {
		if err := store.Append(ctx, domain.HistoryEntry{ID: id, UserID: "u1"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	_ = store.Append(ctx, domain.HistoryEntry{ID: "other", UserID: "u2"})

	list, err := store.List(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "h3" || list[1].ID != "h2" {
		t.Fatalf("expected [h3 h2], got %+v", list)
	}
	if limited, _ := store.List(ctx, "u1", 1); len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}

	if err := store.Clear(ctx, "u1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if list, _ := store.List(ctx, "u1", 0); len(list) != 0 {
		t.Fatalf("expected empty history, got %+v", list)
	}
	if list, _ := store.List(ctx, "u2", 0); len(list) != 1 {
		t.Fatalf("clear must not touch other users")
	}
}

func TestBookmarkStore(t *testing.T) {
	ctx := context.Background()
	store := NewBookmarkStore()
	base := time.Date(2024, 11, 22, 0, 0, 0, 0, time.UTC)

	_ = store.Save(ctx, "u1", domain.Bookmark{QuestionID: "q1", CreatedAt: base})
	_ = store.Save(ctx, "u1", domain.Bookmark{QuestionID: "q2", CreatedAt: base.Add(time.Minute)})
	_ = store.Save(ctx, "u1", domain.Bookmark{QuestionID: "q1", Explanation: "updated", CreatedAt: base})

	list, err := store.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].QuestionID != "q2" || list[1].Explanation != "updated" {
		t.Fatalf("unexpected bookmarks %+v", list)
	}

	if err := store.Remove(ctx, "u1", "q1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Remove(ctx, "u1", "q1"); !errors.Is(err, domain.ErrBookmarkNotFound) {
		t.Fatalf("expected bookmark not found, got %v", err)
	}
}

func TestSettingsStore(t *testing.T) {
	ctx := context.Background()
	store := NewSettingsStore()

	if _, err := store.Get(ctx, "u1"); !errors.Is(err, domain.ErrSettingsNotFound) {
		t.Fatalf("expected settings not found, got %v", err)
	}
	want := domain.Settings{TimePerQuestion: 20, QuestionCount: 5, DefaultMode: domain.ModePractice, Theme: "dark"}
	if err := store.Put(ctx, "u1", want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get(ctx, "u1")
	if err != nil || got != want {
		t.Fatalf("expected %+v, got %+v (%v)", want, got, err)
	}
}
