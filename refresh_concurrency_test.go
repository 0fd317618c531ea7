package shopauth_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	shopauth "github.com/MrEthical07/shopauth"
)

// TestRefreshConcurrencySingleWinner races many refreshes of the same token.
// Exactly one caller may win the rotation; everyone else must fail cleanly
// without corrupting the session.
func TestRefreshConcurrencySingleWinner(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	resp := registerUser(t, engine, "alice@example.com", "correct-horse", "dev-1")

	const racers = 16

	type outcome struct {
		pair shopauth.TokenPair
		err  error
	}

	var (
		start   = make(chan struct{})
		results = make(chan outcome, racers)
		wg      sync.WaitGroup
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			pair, err := engine.Refresh(context.Background(), resp.Tokens.RefreshToken, device("dev-1"))
			results <- outcome{pair: pair, err: err}
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var winners []shopauth.TokenPair
	for r := range results {
		if r.err == nil {
			winners = append(winners, r.pair)
			continue
		}
		if !errors.Is(r.err, shopauth.ErrRotationConflict) && !errors.Is(r.err, shopauth.ErrRefreshInvalid) {
			t.Fatalf("loser returned unexpected error: %v", r.err)
		}
	}

	if len(winners) != 1 {
		t.Fatalf("winners = %d, want exactly 1", len(winners))
	}

	// The winner's token chain stays usable.
	if _, err := engine.Refresh(context.Background(), winners[0].RefreshToken, device("dev-1")); err != nil {
		t.Fatalf("winner's token must refresh: %v", err)
	}
}
