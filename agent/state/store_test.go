package state

import (
	"sync"
	"testing"
	"time"
)

func TestResolveUnknownTokenCreatesFreshSession(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()

	sess, token, created := store.Resolve("")
	if !created {
		t.Fatal("expected a new session for an absent token")
	}
	if token == "" {
		t.Fatal("expected a generated token")
	}
	if sess.Cart == nil || sess.Cart.Len() != 0 {
		t.Fatal("new session must start with an empty cart")
	}
	if len(sess.Transcript) != 0 || sess.History != nil {
		t.Fatal("new session must start with empty transcript and history")
	}

	again, resolved, created := store.Resolve(token)
	if created {
		t.Fatal("known token must not create a session")
	}
	if resolved != token || again != sess {
		t.Fatal("known token must resolve to the same session")
	}
}

func TestResolveStrangerTokenYieldsNewSessionNotError(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	_, token, created := store.Resolve("not-a-known-token")
	if !created {
		t.Fatal("unknown token must yield a brand-new session")
	}
	if token == "not-a-known-token" {
		t.Fatal("store must replace an unrecognized token")
	}
}

func TestTwoNewClientsGetIndependentSessions(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	a, tokenA, _ := store.Resolve("")
	b, tokenB, _ := store.Resolve("")

	if tokenA == tokenB {
		t.Fatal("tokens must be unique")
	}
	a.Cart.Increment("noop") // absent, no-op; carts stay independent
	a.Append(SpeakerUser, "hello")
	if len(b.Transcript) != 0 || b.Cart.Len() != 0 {
		t.Fatal("sessions must be isolated")
	}
}

func TestConcurrentFirstContact(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()

	const n = 32
	var wg sync.WaitGroup
	tokens := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, tok, _ := store.Resolve("")
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, tok := range tokens {
		if seen[tok] {
			t.Fatalf("duplicate token handed out: %s", tok)
		}
		seen[tok] = true
	}
	if store.Len() != n {
		t.Fatalf("expected %d sessions, got %d", n, store.Len())
	}
}

func TestSweepEvictsIdleSessionsOnly(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(
		WithTTL(time.Hour),
		WithNowFunc(func() time.Time { return current }),
	)

	_, stale, _ := store.Resolve("")
	current = current.Add(2 * time.Hour)
	_, fresh, _ := store.Resolve("")

	if evicted := store.sweep(); evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}
	if _, _, created := store.Resolve(fresh); created {
		t.Fatal("fresh session must survive the sweep")
	}
	if _, resolved, created := store.Resolve(stale); !created || resolved == stale {
		t.Fatal("stale token must now resolve to a brand-new session")
	}
}

// Exercises Resolve touching last-seen concurrently with the sweeper and
// with duplicate requests for the same token; run with -race.
func TestResolveConcurrentWithSweep(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(WithTTL(time.Hour))
	_, token, _ := store.Resolve("")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				store.Resolve(token)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 200; j++ {
			store.sweep()
		}
	}()
	wg.Wait()

	if store.Len() != 1 {
		t.Fatalf("active session must survive sweeping, len = %d", store.Len())
	}
	if store.sessions[token].LastSeen().IsZero() {
		t.Fatal("last-seen must be recorded")
	}
}

func TestSweepDisabledWithoutTTL(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	store.Resolve("")
	if evicted := store.sweep(); evicted != 0 {
		t.Fatalf("no TTL means no eviction, got %d", evicted)
	}
}
