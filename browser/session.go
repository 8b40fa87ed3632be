// Package browser owns the persistent Chrome session the pipeline drives.
// The profile directory is reused across runs so login state and anti-bot
// trust signals survive process restarts.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Options configures a session launch.
type Options struct {
	ProfileDir string
	UserAgent  string
	NavTimeout time.Duration
}

// Session is one long-lived browser context bound to a profile directory.
// At most one live session per profile directory; the caller opens it once
// at pipeline start and closes it exactly once at pipeline end.
type Session struct {
	profileDir  string
	navTimeout  time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	closeOnce   sync.Once
}

// Open creates the profile directory if absent and launches a headed Chrome
// bound to it. The browser window stays visible: the operator works in it.
func Open(parent context.Context, opts Options) (*Session, error) {
	if opts.ProfileDir == "" {
		return nil, ErrSessionStart{Err: errors.New("profile directory not set")}
	}
	profileDir, err := filepath.Abs(opts.ProfileDir)
	if err != nil {
		return nil, ErrSessionStart{Err: err}
	}
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return nil, ErrSessionStart{Err: fmt.Errorf("create profile directory: %w", err)}
	}

	navTimeout := opts.NavTimeout
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profileDir),
		chromedp.Flag("headless", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("start-maximized", true),
		chromedp.WindowSize(1920, 1080),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Starts the browser process; nothing is launched until the first Run.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, ErrSessionStart{Err: err}
	}

	slog.Info("browser session opened", slog.String("profile_dir", profileDir))

	return &Session{
		profileDir:  profileDir,
		navTimeout:  navTimeout,
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}, nil
}

// Location returns the URL the browser currently shows.
func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", ErrSessionLost{Err: err}
	}
	return loc, nil
}

// Navigate drives the browser to target and waits for the document to be
// ready, bounded by the configured navigation budget. A timeout leaves the
// session open; the orchestrator decides whether to retry.
func (s *Session) Navigate(ctx context.Context, target string) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	navCtx, cancel := context.WithTimeout(s.ctx, s.navTimeout)
	defer cancel()
	if ctx != nil {
		stop := context.AfterFunc(ctx, cancel)
		defer stop()
	}

	err := chromedp.Run(navCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err == nil {
		return nil
	}
	if ctx != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if s.ctx.Err() != nil {
		return ErrSessionLost{Err: s.ctx.Err()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrNavigationTimeout{Target: target, Err: err}
	}
	return fmt.Errorf("navigate %s: %w", target, err)
}

// Capture screenshots the current rendered state. Mode "full" captures the
// whole scrollable page, anything else the visible viewport.
func (s *Session) Capture(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	var action chromedp.Action
	if fullPage {
		action = chromedp.FullScreenshot(&buf, 90)
	} else {
		action = chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				Do(ctx)
			return err
		})
	}
	if err := s.run(ctx, action); err != nil {
		if s.ctx.Err() != nil {
			return nil, ErrSessionLost{Err: s.ctx.Err()}
		}
		return nil, ErrCapture{Err: err}
	}
	return buf, nil
}

// Close tears the session down. Idempotent and best-effort; safe to call
// from any exit path.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.allocCancel()
		slog.Info("browser session closed", slog.String("profile_dir", s.profileDir))
	})
	return nil
}

// run executes actions on the session context while honouring cancellation
// of the caller's context.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return chromedp.Run(s.ctx, actions...)
}
