package match_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Sergioohs/Trucopro/internal/service/match"
)

type stubSeater struct {
	mu     sync.Mutex
	groups [][]match.Entry
}

func (s *stubSeater) SeatMatchedPlayers(players []match.Entry) (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = append(s.groups, players)
	return fmt.Sprintf("room-%d", len(s.groups)), "ABC234"
}

func newQueue() (*match.Service, *stubSeater) {
	seater := &stubSeater{}
	return match.NewService(nil, seater, match.DefaultConfig()), seater
}

func enqueue(svc *match.Service, userID int64, mmr int, waited time.Duration) {
	svc.Enqueue(match.Entry{
		UserID:     userID,
		Nickname:   fmt.Sprintf("player%d", userID),
		MMR:        mmr,
		EnqueuedAt: time.Now().Add(-waited),
	})
}

func TestBuildMatchesGroupsTightWindow(t *testing.T) {
	svc, seater := newQueue()
	for i, mmr := range []int{1000, 1020, 980, 1010} {
		enqueue(svc, int64(i+1), mmr, time.Duration(4-i)*time.Second)
	}

	made := svc.BuildMatches(context.Background())
	if len(made) != 1 {
		t.Fatalf("expected 1 match, got %d", len(made))
	}
	if svc.Len() != 0 {
		t.Fatalf("expected empty queue after grouping, got %d", svc.Len())
	}
	if len(seater.groups[0]) != 4 {
		t.Fatalf("expected 4 seated players, got %d", len(seater.groups[0]))
	}
	// Oldest waiter first.
	if seater.groups[0][0].UserID != 1 {
		t.Fatalf("expected user 1 seated first, got %d", seater.groups[0][0].UserID)
	}
}

func TestBuildMatchesHoldsUnfairWindow(t *testing.T) {
	svc, _ := newQueue()
	for i, mmr := range []int{1000, 1020, 980, 1500} {
		enqueue(svc, int64(i+1), mmr, time.Duration(4-i)*time.Second)
	}

	if made := svc.BuildMatches(context.Background()); len(made) != 0 {
		t.Fatalf("expected no match for a 1500 outlier, got %d", len(made))
	}
	if svc.Len() != 4 {
		t.Fatalf("expected all players still queued, got %d", svc.Len())
	}
}

func TestFairnessTimeoutOverridesTolerance(t *testing.T) {
	svc, seater := newQueue()
	for i, mmr := range []int{1000, 1020, 980, 1500} {
		enqueue(svc, int64(i+1), mmr, 11*time.Second+time.Duration(4-i)*time.Millisecond)
	}

	made := svc.BuildMatches(context.Background())
	if len(made) != 1 {
		t.Fatalf("expected the long wait to force a match, got %d", len(made))
	}
	if len(seater.groups) != 1 {
		t.Fatalf("expected one seated group, got %d", len(seater.groups))
	}
}

func TestEnqueueReplacesAndDequeueIsIdempotent(t *testing.T) {
	svc, _ := newQueue()
	enqueue(svc, 7, 1000, 0)
	enqueue(svc, 7, 1200, 0)
	if svc.Len() != 1 {
		t.Fatalf("re-enqueue must replace, got depth %d", svc.Len())
	}

	svc.Dequeue(7)
	svc.Dequeue(7)
	if svc.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", svc.Len())
	}
}

func TestStatusReflectsQueueMembership(t *testing.T) {
	svc, _ := newQueue()
	ctx := context.Background()

	st, err := svc.Status(ctx, 7)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Status != match.QueueStatusIdle {
		t.Fatalf("expected idle, got %s", st.Status)
	}

	enqueue(svc, 7, 1000, 0)
	st, err = svc.Status(ctx, 7)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Status != match.QueueStatusQueued {
		t.Fatalf("expected queued, got %s", st.Status)
	}
	if st.JoinedAt == nil {
		t.Fatalf("expected joinedAt for a queued player")
	}
}
