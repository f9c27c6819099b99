package procutil

import (
	"os"
	"testing"
)

func TestAliveForCurrentProcess(t *testing.T) {
	if !Alive(os.Getpid()) {
		t.Fatalf("expected current process to be alive")
	}
}

func TestAliveForInvalidPID(t *testing.T) {
	if Alive(0) {
		t.Fatalf("pid 0 must never be reported alive")
	}
	if Alive(-1) {
		t.Fatalf("negative pid must never be reported alive")
	}
}

func TestAliveForLikelyDeadPID(t *testing.T) {
	// A very high PID is exceedingly unlikely to be in use; this is a
	// best-effort check rather than a guarantee.
	const improbablePID = 1 << 30
	if Alive(improbablePID) {
		t.Skip("improbable PID appears alive on this system; skipping")
	}
}
