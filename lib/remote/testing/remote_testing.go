package testing

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"github.com/ValentinKolb/dDocs/lib/remote"
)

// StoreFactory creates a new, empty instance of an IRemoteStore implementation
type StoreFactory func(t *testing.T) remote.IRemoteStore

// RunRemoteStoreTests runs the conformance test suite for an IRemoteStore implementation.
func RunRemoteStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("FetchMissing", func(t *testing.T) {
			testFetchMissing(t, factory(t))
		})

		t.Run("Put&Fetch", func(t *testing.T) {
			testPutFetch(t, factory(t))
		})

		t.Run("Unicode", func(t *testing.T) {
			testUnicode(t, factory(t))
		})

		t.Run("Preconditions", func(t *testing.T) {
			testPreconditions(t, factory(t))
		})

		t.Run("Remove", func(t *testing.T) {
			testRemove(t, factory(t))
		})

		t.Run("List", func(t *testing.T) {
			testList(t, factory(t))
		})

		t.Run("ListTree", func(t *testing.T) {
			testListTree(t, factory(t))
		})

		t.Run("Ping", func(t *testing.T) {
			if err := factory(t).Ping(context.Background()); err != nil {
				t.Errorf("Ping failed: %v", err)
			}
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func mustPut(t *testing.T, s remote.IRemoteStore, path, content string, token remote.VersionToken) remote.VersionToken {
	t.Helper()
	newToken, err := s.Put(context.Background(), path, remote.Document(content), token)
	if err != nil {
		t.Fatalf("Put(%s) failed: %v", path, err)
	}
	if newToken == "" {
		t.Fatalf("Put(%s) returned an empty token", path)
	}
	return newToken
}

func decode(t *testing.T, doc remote.Document) any {
	t.Helper()
	var v any
	if err := doc.Decode(&v); err != nil {
		t.Fatalf("failed to decode %q: %v", doc, err)
	}
	return v
}

func names(entries []remote.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	sort.Strings(out)
	return out
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testFetchMissing(t *testing.T, s remote.IRemoteStore) {
	_, _, err := s.Fetch(context.Background(), "data/missing.json")
	if !remote.IsNotFound(err) {
		t.Errorf("expected RetCNotFound, got %v", err)
	}
}

func testPutFetch(t *testing.T, s remote.IRemoteStore) {
	ctx := context.Background()
	content := `{"user-1":{"coins":10,"bank":0},"user-2":{"coins":3,"bank":7}}`

	token := mustPut(t, s, "data/economy/user_balances.json", content, "")

	doc, fetched, err := s.Fetch(ctx, "data/economy/user_balances.json")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if fetched != token {
		t.Errorf("expected token %s, got %s", token, fetched)
	}
	if !reflect.DeepEqual(decode(t, doc), decode(t, remote.Document(content))) {
		t.Errorf("expected %s, got %s", content, doc)
	}

	// update with the current token
	updated := mustPut(t, s, "data/economy/user_balances.json", `{"user-1":{"coins":11}}`, token)
	if updated == token {
		t.Errorf("token should change when the content changes")
	}
}

func testUnicode(t *testing.T, s remote.IRemoteStore) {
	content := `{"symbol":"🪙","name":"Grüße","cjk":"日本語"}`
	mustPut(t, s, "data/features/unicode.json", content, "")

	doc, _, err := s.Fetch(context.Background(), "data/features/unicode.json")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !reflect.DeepEqual(decode(t, doc), decode(t, remote.Document(content))) {
		t.Errorf("unicode content changed: %s", doc)
	}
}

func testPreconditions(t *testing.T, s remote.IRemoteStore) {
	ctx := context.Background()
	path := "data/leveling/user_levels.json"

	t1 := mustPut(t, s, path, `{"a":1}`, "")

	// create without token on an existing object
	if _, err := s.Put(ctx, path, remote.Document(`{"a":2}`), ""); !remote.IsConflict(err) {
		t.Errorf("expected conflict when creating an existing object, got %v", err)
	}

	// two writers observed t1, the first wins
	t2 := mustPut(t, s, path, `{"a":3}`, t1)
	if _, err := s.Put(ctx, path, remote.Document(`{"a":4}`), t1); !remote.IsConflict(err) {
		t.Errorf("expected conflict for stale token, got %v", err)
	}

	// the winner's content is intact
	doc, token, err := s.Fetch(ctx, path)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if token != t2 || string(doc.Compact()) != `{"a":3}` {
		t.Errorf("expected winner content {\"a\":3} (%s), got %s (%s)", t2, doc, token)
	}

	// token for an object that does not exist
	if _, err := s.Put(ctx, "data/leveling/other.json", remote.Document(`{}`), t2); !remote.IsConflict(err) {
		t.Errorf("expected conflict for token on missing object, got %v", err)
	}
}

func testRemove(t *testing.T, s remote.IRemoteStore) {
	ctx := context.Background()
	path := "data/moderation/user_warnings.json"

	if err := s.Remove(ctx, path, "deadbeef"); !remote.IsNotFound(err) {
		t.Errorf("expected not found for missing object, got %v", err)
	}

	token := mustPut(t, s, path, `{"w":[]}`, "")
	if err := s.Remove(ctx, path, "deadbeef"); !remote.IsConflict(err) {
		t.Errorf("expected conflict for wrong token, got %v", err)
	}
	if err := s.Remove(ctx, path, token); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, _, err := s.Fetch(ctx, path); !remote.IsNotFound(err) {
		t.Errorf("expected removed object to be gone, got %v", err)
	}
	if err := s.Remove(ctx, path, token); !remote.IsNotFound(err) {
		t.Errorf("expected not found on second remove, got %v", err)
	}
}

func testList(t *testing.T, s remote.IRemoteStore) {
	ctx := context.Background()

	if _, err := s.List(ctx, "backups"); !remote.IsNotFound(err) {
		t.Errorf("expected not found for missing dir, got %v", err)
	}

	for i := 0; i < 3; i++ {
		mustPut(t, s, fmt.Sprintf("backups/file-%d.bak", i), `{}`, "")
	}
	mustPut(t, s, "backups/nested/deep.bak", `{}`, "")

	entries, err := s.List(ctx, "backups")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"backups/file-0.bak", "backups/file-1.bak", "backups/file-2.bak", "backups/nested"}
	if got := names(entries); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	for _, e := range entries {
		if e.Name == "nested" && !e.IsDir {
			t.Errorf("expected nested to be a directory")
		}
		if !e.IsDir && e.Token == "" {
			t.Errorf("expected file %s to carry a token", e.Path)
		}
	}
}

func testListTree(t *testing.T, s remote.IRemoteStore) {
	ctx := context.Background()

	if _, err := s.ListTree(ctx, "data"); !remote.IsNotFound(err) {
		t.Errorf("expected not found for missing root, got %v", err)
	}

	mustPut(t, s, "data/economy/user_balances.json", `{}`, "")
	mustPut(t, s, "data/economy/daily_claims.json", `{}`, "")
	mustPut(t, s, "data/features/polls.json", `{}`, "")
	mustPut(t, s, "data/users.json", `{}`, "")
	mustPut(t, s, "other/ignored.json", `{}`, "")

	entries, err := s.ListTree(ctx, "data")
	if err != nil {
		t.Fatalf("ListTree failed: %v", err)
	}

	want := []string{
		"data/economy",
		"data/economy/daily_claims.json",
		"data/economy/user_balances.json",
		"data/features",
		"data/features/polls.json",
		"data/users.json",
	}
	if got := names(entries); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
