package job

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/coreforge/jobrunner/output"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewJobLocal(t *testing.T) {
	j := New("test-id", "echo", []string{"hello"}, output.NewBuffer(), Options{Owner: "alice"})
	if j.ID() != "test-id" {
		t.Fatalf("expected id %q, got %q", "test-id", j.ID())
	}
	if j.Owner() != "alice" {
		t.Fatalf("expected owner %q, got %q", "alice", j.Owner())
	}
	st := j.Status()
	if st.Status != StatusSubmitted {
		t.Fatalf("expected StatusSubmitted, got %v", st.Status)
	}
	if st.ExitCode != nil {
		t.Fatalf("expected nil exit code, got %v", *st.ExitCode)
	}
}

func TestStartCalledTwice(t *testing.T) {
	j := New("test-id", "echo", []string{"hello"}, output.NewBuffer(), Options{})
	if err := j.Start(); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	// Second Start should fail.
	if err := j.Start(); err == nil {
		t.Fatal("expected error on second Start, got nil")
	}
	// Let the process finish so we don't leak a goroutine.
	j.Wait()
}

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusUnspecified, false},
		{StatusSubmitted, false},
		{StatusRunning, false},
		{StatusSuccess, true},
		{StatusFailed, true},
		{StatusKilled, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("Status(%v).Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
