package claimstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestClaimAndGet(t *testing.T) {
	s := New(t.TempDir())
	claim, err := s.Claim(ctx(t), "spec.md", "t1", "nimble-otter", "sess", os.Getpid(), "working on it")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claim.Agent != "nimble-otter" {
		t.Fatalf("unexpected claim agent %q", claim.Agent)
	}

	got, ok, err := s.Get("spec.md", "t1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Agent != "nimble-otter" {
		t.Fatalf("unexpected stored claim: %+v", got)
	}
}

func TestClaimRejectsDoubleClaimByOthers(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Claim(ctx(t), "spec.md", "t1", "a", "s1", os.Getpid(), ""); err != nil {
		t.Fatalf("first Claim: %v", err)
	}
	if _, err := s.Claim(ctx(t), "spec.md", "t1", "b", "s2", os.Getpid(), ""); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestClaimRejectsSecondInFlightClaimBySameAgent(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Claim(ctx(t), "spec.md", "t1", "a", "s1", os.Getpid(), ""); err != nil {
		t.Fatalf("first Claim: %v", err)
	}
	if _, err := s.Claim(ctx(t), "spec.md", "t2", "a", "s1", os.Getpid(), ""); !errors.Is(err, ErrAlreadyHaveClaim) {
		t.Fatalf("expected ErrAlreadyHaveClaim, got %v", err)
	}
}

func TestClaimReclaimsFromDeadAgent(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Claim(ctx(t), "spec.md", "t1", "a", "s1", 999999, ""); err != nil {
		t.Fatalf("first Claim: %v", err)
	}
	if _, err := s.Claim(ctx(t), "spec.md", "t1", "b", "s2", os.Getpid(), ""); err != nil {
		t.Fatalf("expected reclaim from dead agent to succeed, got %v", err)
	}
}

func TestUnclaimRemovesOwnClaimOnly(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Claim(ctx(t), "spec.md", "t1", "a", "s1", os.Getpid(), ""); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := s.Unclaim(ctx(t), "spec.md", "t1", "b"); err != ErrNotYourClaim {
		t.Fatalf("expected ErrNotYourClaim for wrong agent, got %v", err)
	}
	if err := s.Unclaim(ctx(t), "spec.md", "t1", "a"); err != nil {
		t.Fatalf("Unclaim: %v", err)
	}
	if _, ok, _ := s.Get("spec.md", "t1"); ok {
		t.Fatalf("expected claim to be gone after Unclaim")
	}
}

func TestCompleteRecordsCompletionAndClearsClaim(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Claim(ctx(t), "spec.md", "t1", "a", "s1", os.Getpid(), ""); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := s.Complete(ctx(t), "spec.md", "t1", "a", "done"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, ok, _ := s.Get("spec.md", "t1"); ok {
		t.Fatalf("expected claim cleared after Complete")
	}
}

func TestCompleteFailsIfAlreadyCompleted(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Claim(ctx(t), "spec.md", "t1", "a", "s1", os.Getpid(), ""); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := s.Complete(ctx(t), "spec.md", "t1", "a", "first"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, err := s.Claim(ctx(t), "spec.md", "t1", "b", "s2", os.Getpid(), ""); err != nil {
		t.Fatalf("reclaim after completion: %v", err)
	}
	if err := s.Complete(ctx(t), "spec.md", "t1", "b", "second"); err != ErrAlreadyCompleted {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
}

func TestCompleteFailsForWrongAgent(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Claim(ctx(t), "spec.md", "t1", "a", "s1", os.Getpid(), ""); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := s.Complete(ctx(t), "spec.md", "t1", "b", ""); err != ErrNotYourClaim {
		t.Fatalf("expected ErrNotYourClaim, got %v", err)
	}
}

func TestPruneStaleRemovesDeadClaims(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Claim(ctx(t), "spec.md", "t1", "a", "s1", 999999, ""); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	n, err := s.PruneStale(ctx(t))
	if err != nil {
		t.Fatalf("PruneStale: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pruned claim, got %d", n)
	}
}
