package mstore

import (
	"context"
	"strings"
	"testing"

	"github.com/ValentinKolb/dDocs/lib/remote"
	remotetesting "github.com/ValentinKolb/dDocs/lib/remote/testing"
)

func Test(t *testing.T) {
	remotetesting.RunRemoteStoreTests(t, "MemoryStore", func(t *testing.T) remote.IRemoteStore {
		return NewMemoryStore()
	})
}

func TestHistoryRecordsEveryChange(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	token, err := s.Put(ctx, "data/a.json", remote.Document(`{"v":1}`), "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	token, err = s.Put(ctx, "data/a.json", remote.Document(`{"v":2}`), token)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := s.Remove(ctx, "data/a.json", token); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	history := s.History()
	if len(history) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(history))
	}
	for i, prefix := range []string{"Create ", "Update ", "Delete "} {
		if !strings.HasPrefix(history[i].Message, prefix) || !strings.HasSuffix(history[i].Message, "data/a.json") {
			t.Errorf("change %d has unexpected message %q", i, history[i].Message)
		}
	}
}

func TestTokensAreContentHashes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	t1, _ := s.Put(ctx, "a.json", remote.Document(`{}`), "")
	t2, _ := s.Put(ctx, "b.json", remote.Document(`{}`), "")
	if t1 != t2 {
		t.Errorf("equal content should produce equal tokens: %s != %s", t1, t2)
	}
	// git hash-object of "{}"
	if t1 != "9e26dfeeb6e641a33dae4961196235bdb965b21b" {
		t.Errorf("unexpected blob hash %s", t1)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore()
	if _, _, err := s.Fetch(ctx, "a.json"); !remote.IsTransport(err) {
		t.Errorf("expected transport error for cancelled context, got %v", err)
	}
}

func TestMessageFromContext(t *testing.T) {
	s := NewMemoryStore()
	ctx := remote.WithMessage(context.Background(), "Backup data/a.json")

	if _, err := s.Put(ctx, "backups/a.json.bak", remote.Document(`{}`), ""); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if msg := s.History()[0].Message; msg != "Backup data/a.json" {
		t.Errorf("expected message from context, got %q", msg)
	}
}
