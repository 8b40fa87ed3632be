// Package capture produces one uniquely named screenshot file per order.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"orderproof/models"
)

// timestampLayout gives second resolution; operator confirmation gates each
// capture, so two artifacts can only collide if captured within the same
// second, which the sequential flow rules out.
const timestampLayout = "20060102_150405"

// Screenshotter is the single session primitive capture depends on.
type Screenshotter interface {
	Capture(ctx context.Context, fullPage bool) ([]byte, error)
}

// ForOrder captures the current on-screen state as evidence for orderID.
// The caller is responsible for having confirmed, through a checkpoint,
// that the screen actually shows that order; nothing here verifies it.
// On any error no file is left behind.
func ForOrder(ctx context.Context, shooter Screenshotter, orderID, outputDir string, mode models.CaptureMode, now func() time.Time) (*models.Artifact, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order id cannot be empty")
	}
	if now == nil {
		now = time.Now
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %q: %w", outputDir, err)
	}

	capturedAt := now()
	name := fmt.Sprintf("%s_%s.png", orderID, capturedAt.Format(timestampLayout))
	path := filepath.Join(outputDir, name)

	buf, err := shooter.Capture(ctx, mode == models.FullPage)
	if err != nil {
		return nil, err
	}

	// O_EXCL: a name collision is a bug in the caller, never silently
	// overwrite prior evidence.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create artifact %q: %w", path, err)
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write artifact %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close artifact %q: %w", path, err)
	}

	return &models.Artifact{
		OrderID:    orderID,
		Path:       path,
		Mode:       mode,
		CapturedAt: capturedAt,
	}, nil
}
