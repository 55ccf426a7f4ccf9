package session

import (
	"fmt"
	"testing"

	"github.com/byOdysea/laserfocus-host/internal/llm"
)

func TestStore_GetCreatesLazilyAndReturnsSameSession(t *testing.T) {
	store := NewStore(10)

	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d sessions", store.Len())
	}

	first := store.Get("abc")
	second := store.Get("abc")
	if first != second {
		t.Fatalf("expected same session for same id")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Len())
	}
	if first.ID() != "abc" {
		t.Fatalf("expected id abc, got %q", first.ID())
	}

	if store.Get("other") == first {
		t.Fatalf("expected distinct session for distinct id")
	}
}

func TestSession_AppendDropsOldestBeyondCap(t *testing.T) {
	store := NewStore(3)
	sess := store.Get("s")

	for i := 0; i < 5; i++ {
		sess.Append(llm.ChatMessage{Role: llm.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	history := sess.Snapshot()
	if len(history) != 3 {
		t.Fatalf("expected history capped at 3, got %d", len(history))
	}
	for i, want := range []string{"m2", "m3", "m4"} {
		if history[i].Content != want {
			t.Fatalf("expected %q at %d, got %q", want, i, history[i].Content)
		}
	}
}

func TestSession_SnapshotIsIsolated(t *testing.T) {
	store := NewStore(10)
	sess := store.Get("s")
	sess.Append(llm.ChatMessage{Role: llm.RoleUser, Content: "original"})

	snapshot := sess.Snapshot()
	snapshot[0].Content = "mutated"
	sess.Append(llm.ChatMessage{Role: llm.RoleAssistant, Content: "later"})

	history := sess.Snapshot()
	if history[0].Content != "original" {
		t.Fatalf("snapshot mutation leaked into session history")
	}
	if len(snapshot) != 1 {
		t.Fatalf("expected snapshot unaffected by later appends")
	}
}

func TestNewStore_DefaultCap(t *testing.T) {
	store := NewStore(0)
	sess := store.Get("s")
	for i := 0; i < defaultMaxHistory+5; i++ {
		sess.Append(llm.ChatMessage{Role: llm.RoleUser, Content: "m"})
	}
	if got := sess.Len(); got != defaultMaxHistory {
		t.Fatalf("expected default cap %d, got %d", defaultMaxHistory, got)
	}
}
