package store

import (
	"context"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "opsward.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesParentDirs(t *testing.T) {
	testStore(t)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opsward.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen reruns migrations; CREATE TABLE IF NOT EXISTS must tolerate
	// the existing schema.
	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	s.Close()
}

func TestConversationRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.StartConversation(ctx, "conv-1", "slack"); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendMessage(ctx, "conv-1", "user", "how much disk is left?"); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendMessage(ctx, "conv-1", "assistant", "42% free on /"); err != nil {
		t.Fatal(err)
	}

	msgs, err := s.Messages(ctx, "conv-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("messages out of order: %+v", msgs)
	}
	if msgs[1].Content != "42% free on /" {
		t.Errorf("content mangled: %q", msgs[1].Content)
	}
}

func TestMessagesLimit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.StartConversation(ctx, "conv-2", "cli"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := s.AppendMessage(ctx, "conv-2", "user", "ping"); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := s.Messages(ctx, "conv-2", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
}

func TestMessagesUnknownConversation(t *testing.T) {
	s := testStore(t)

	msgs, err := s.Messages(context.Background(), "no-such", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatalf("unknown conversation returned %d messages", len(msgs))
	}
}
