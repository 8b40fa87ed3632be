package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"orderproof/models"
)

type fakeShooter struct {
	data     []byte
	err      error
	fullPage bool
}

func (f *fakeShooter) Capture(ctx context.Context, fullPage bool) ([]byte, error) {
	f.fullPage = fullPage
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestForOrder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "screenshots")
	shooter := &fakeShooter{data: []byte("png-bytes")}
	at := time.Date(2026, 3, 15, 10, 30, 45, 0, time.UTC)

	artifact, err := ForOrder(context.Background(), shooter, "SN001", dir, models.Viewport, fixedClock(at))
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if artifact.OrderID != "SN001" {
		t.Fatalf("order id = %q", artifact.OrderID)
	}
	if got, want := filepath.Base(artifact.Path), "SN001_20260315_103045.png"; got != want {
		t.Fatalf("file name = %q, want %q", got, want)
	}
	if shooter.fullPage {
		t.Fatalf("viewport mode must not request a full-page screenshot")
	}

	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("artifact content = %q", data)
	}
}

func TestForOrderFullPageMode(t *testing.T) {
	shooter := &fakeShooter{data: []byte("x")}
	_, err := ForOrder(context.Background(), shooter, "SN001", t.TempDir(), models.FullPage, nil)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !shooter.fullPage {
		t.Fatalf("full mode must request a full-page screenshot")
	}
}

func TestForOrderDistinctTimestamps(t *testing.T) {
	dir := t.TempDir()
	shooter := &fakeShooter{data: []byte("x")}
	base := time.Date(2026, 3, 15, 10, 30, 45, 0, time.UTC)

	first, err := ForOrder(context.Background(), shooter, "SN001", dir, models.Viewport, fixedClock(base))
	if err != nil {
		t.Fatalf("first capture: %v", err)
	}
	second, err := ForOrder(context.Background(), shooter, "SN001", dir, models.Viewport, fixedClock(base.Add(2*time.Second)))
	if err != nil {
		t.Fatalf("second capture: %v", err)
	}
	if first.Path == second.Path {
		t.Fatalf("same order captured twice must not collide: %q", first.Path)
	}
}

func TestForOrderRefusesCollision(t *testing.T) {
	dir := t.TempDir()
	shooter := &fakeShooter{data: []byte("x")}
	at := time.Date(2026, 3, 15, 10, 30, 45, 0, time.UTC)

	if _, err := ForOrder(context.Background(), shooter, "SN001", dir, models.Viewport, fixedClock(at)); err != nil {
		t.Fatalf("first capture: %v", err)
	}
	if _, err := ForOrder(context.Background(), shooter, "SN001", dir, models.Viewport, fixedClock(at)); err == nil {
		t.Fatalf("identical timestamp must refuse to overwrite")
	}
}

func TestForOrderNoFileOnCaptureError(t *testing.T) {
	dir := t.TempDir()
	shooter := &fakeShooter{err: errors.New("session died")}

	if _, err := ForOrder(context.Background(), shooter, "SN001", dir, models.Viewport, nil); err == nil {
		t.Fatalf("expected capture error")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("failed capture left %d file(s) behind", len(entries))
	}
}

func TestForOrderEmptyID(t *testing.T) {
	if _, err := ForOrder(context.Background(), &fakeShooter{}, "", t.TempDir(), models.Viewport, nil); err == nil {
		t.Fatalf("empty order id must be rejected")
	}
}
