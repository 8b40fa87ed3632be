package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCloseIdempotent(t *testing.T) {
	cancels := 0
	s := &Session{
		profileDir:  "browser_data",
		cancel:      func() { cancels++ },
		allocCancel: func() {},
	}

	for i := 0; i < 3; i++ {
		if err := s.Close(); err != nil {
			t.Fatalf("close #%d: %v", i+1, err)
		}
	}
	if cancels != 1 {
		t.Fatalf("teardown ran %d times, want exactly 1", cancels)
	}
}

func TestNavigateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Session{profileDir: "browser_data"}
	if err := s.Navigate(ctx, "https://example.test/orders"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOpenEmptyProfileDir(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	var start ErrSessionStart
	if !errors.As(err, &start) {
		t.Fatalf("expected ErrSessionStart, got %v", err)
	}
}

func TestOpenUnwritableProfileDir(t *testing.T) {
	// A regular file where a directory is needed makes MkdirAll fail
	// before any browser launch is attempted.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed blocker: %v", err)
	}

	_, err := Open(context.Background(), Options{ProfileDir: filepath.Join(blocker, "profile")})
	var start ErrSessionStart
	if !errors.As(err, &start) {
		t.Fatalf("expected ErrSessionStart, got %v", err)
	}
}
