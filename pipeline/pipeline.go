// Package pipeline sequences the per-order workflow: operator checkpoint,
// screenshot capture, upload, and finally the ledger append. Orders run
// strictly one at a time; there is one operator and one browser window, so
// concurrent checkpoints would be meaningless.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"orderproof/browser"
	"orderproof/capture"
	"orderproof/console"
	"orderproof/models"
)

// seenCacheSize bounds the duplicate-suppression cache. Runs are human
// paced; this is far more ids than one sitting will ever see.
const seenCacheSize = 1024

// Prompter is the operator channel the orchestrator suspends on.
type Prompter interface {
	Await(ctx context.Context, cp *console.Checkpoint, prompt ...string) (console.Response, error)
	AskFullPage(ctx context.Context) (bool, error)
}

// Navigator is the slice of the browser session used for the login flow.
type Navigator interface {
	Navigate(ctx context.Context, target string) error
	Location(ctx context.Context) (string, error)
}

// Capturer produces one artifact for an order.
type Capturer interface {
	Capture(ctx context.Context, orderID string, mode models.CaptureMode) (*models.Artifact, error)
}

// Publisher uploads an artifact and returns a shareable reference.
type Publisher interface {
	Upload(ctx context.Context, localPath, folderID string) (string, error)
}

// Appender is the ledger surface the orchestrator writes through.
type Appender interface {
	Append(orderID, link string) (models.LedgerEntry, error)
	Save() error
}

// ArtifactCapturer adapts a session screenshotter to the Capturer interface.
type ArtifactCapturer struct {
	Shooter capture.Screenshotter
	Dir     string
}

func (a ArtifactCapturer) Capture(ctx context.Context, orderID string, mode models.CaptureMode) (*models.Artifact, error) {
	return capture.ForOrder(ctx, a.Shooter, orderID, a.Dir, mode, nil)
}

// Options wires an orchestrator.
type Options struct {
	Prompter  Prompter
	Navigator Navigator
	Capturer  Capturer
	Publisher Publisher
	Ledger    Appender
	Metrics   *Metrics

	DriveFolderID string
	CaptureMode   models.CaptureMode
	AskMode       bool // let the operator pick full/viewport per order
	LoginURL      string
	PortalHost    string // host that indicates a logged-in portal location
}

// Orchestrator drives the order-processing state machine.
type Orchestrator struct {
	opts Options
	seen *lru.Cache[string, struct{}]
}

// NewOrchestrator validates the wiring and builds an orchestrator.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Prompter == nil || opts.Capturer == nil || opts.Publisher == nil || opts.Ledger == nil {
		return nil, fmt.Errorf("prompter, capturer, publisher and ledger are all required")
	}
	seen, err := lru.New[string, struct{}](seenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &Orchestrator{opts: opts, seen: seen}, nil
}

// Login walks the operator through the portal login: navigate to the login
// page, clear any traffic-verification challenge, then confirm login at a
// checkpoint. A navigation timeout is not fatal; the operator can finish
// navigating by hand before resuming.
func (o *Orchestrator) Login(ctx context.Context) error {
	if o.opts.Navigator == nil {
		return fmt.Errorf("no navigator wired for login")
	}

	if o.opts.LoginURL != "" {
		if err := o.opts.Navigator.Navigate(ctx, o.opts.LoginURL); err != nil {
			var navTimeout browser.ErrNavigationTimeout
			if !errors.As(err, &navTimeout) {
				return err
			}
			o.opts.Metrics.IncError(errorTypeLabel(err))
			slog.Warn("login navigation timed out, continuing with operator",
				slog.String("target", o.opts.LoginURL))
		}
	}

	if err := o.clearVerifyChallenge(ctx); err != nil {
		return err
	}

	loc, err := o.currentLocation(ctx)
	if err != nil {
		return err
	}
	if o.loggedIn(loc) {
		slog.Info("already logged in", slog.String("location", loc))
		return nil
	}

	cp := &console.Checkpoint{Name: console.CheckpointLogin, State: console.Running}
	o.opts.Metrics.IncCheckpoint(cp.Name)
	if _, err := o.opts.Prompter.Await(ctx, cp,
		"Log in manually in the browser window.",
		"Solve any CAPTCHA or verification first.",
		"Resume here once you can see the dashboard.",
	); err != nil {
		return err
	}

	// A fresh login can trigger the traffic challenge again.
	return o.clearVerifyChallenge(ctx)
}

// Run processes orderIDs strictly in order. Per-order failures are recorded
// and processing continues; operator aborts and session loss stop the loop.
// Whatever succeeded is appended to the ledger before Run returns, so an
// interrupted run still persists its completed orders.
func (o *Orchestrator) Run(ctx context.Context, orderIDs []string) (*models.RunSummary, error) {
	summary := &models.RunSummary{StartTime: time.Now()}

	type published struct {
		orderID string
		link    string
	}
	var done []published
	var fatal error

loop:
	for _, id := range orderIDs {
		if id == "" {
			continue
		}
		if ctx.Err() != nil {
			summary.Aborted = true
			break
		}
		if _, dup := o.seen.Get(id); dup {
			slog.Warn("duplicate order id skipped", slog.String("order_id", id))
			summary.Skipped = append(summary.Skipped, id)
			continue
		}
		o.seen.Add(id, struct{}{})

		link, state, err := o.processOrder(ctx, id)
		switch {
		case err == nil:
			done = append(done, published{orderID: id, link: link})
			o.opts.Metrics.IncOrder("published")
			slog.Info("order published",
				slog.String("order_id", id),
				slog.String("link", link),
			)
		case isAbort(err):
			summary.Aborted = true
			o.opts.Metrics.IncOrder("aborted")
			slog.Warn("run aborted by operator", slog.String("order_id", id))
			break loop
		case isSessionLost(err):
			summary.Failed = append(summary.Failed, models.OrderFailure{
				OrderID: id, State: state, Cause: err.Error(),
			})
			o.opts.Metrics.IncOrder("failed")
			o.opts.Metrics.IncError(errorTypeLabel(err))
			fatal = err
			slog.Error("browser session lost, stopping run",
				slog.String("order_id", id),
				slog.Any("error", err),
			)
			break loop
		default:
			summary.Failed = append(summary.Failed, models.OrderFailure{
				OrderID: id, State: state, Cause: err.Error(),
			})
			o.opts.Metrics.IncOrder("failed")
			o.opts.Metrics.IncError(errorTypeLabel(err))
			slog.Error("order failed",
				slog.String("order_id", id),
				slog.String("state", string(state)),
				slog.Any("error", err),
			)
		}
	}

	if len(done) > 0 {
		for _, p := range done {
			entry, err := o.opts.Ledger.Append(p.orderID, p.link)
			if err != nil {
				summary.EndTime = time.Now()
				return summary, fmt.Errorf("append ledger row for %s: %w", p.orderID, err)
			}
			summary.Succeeded = append(summary.Succeeded, entry)
		}
		if err := o.opts.Ledger.Save(); err != nil {
			summary.EndTime = time.Now()
			return summary, err
		}
	}

	summary.EndTime = time.Now()
	return summary, fatal
}

// processOrder runs one order through the state machine and returns the
// shareable link on success. The returned state names the stage a failure
// happened in.
func (o *Orchestrator) processOrder(ctx context.Context, id string) (string, models.OrderState, error) {
	ord := &models.Order{ID: id, State: models.StatePending}

	cp := &console.Checkpoint{
		Name:  console.CheckpointCaptureReady + ":" + id,
		State: console.Running,
	}
	o.opts.Metrics.IncCheckpoint(console.CheckpointCaptureReady)
	if _, err := o.opts.Prompter.Await(ctx, cp,
		fmt.Sprintf("Locate order %s in the browser window.", id),
		"Open its detail page and the buyer chat.",
		"Scroll so the confirmation message is on screen.",
		"Resume here when the evidence is framed.",
	); err != nil {
		return "", ord.State, err
	}

	mode := o.opts.CaptureMode
	if o.opts.AskMode {
		fullPage, err := o.opts.Prompter.AskFullPage(ctx)
		if err != nil {
			return "", ord.State, err
		}
		if fullPage {
			mode = models.FullPage
		} else {
			mode = models.Viewport
		}
	}

	o.advance(ord, models.StateCapturing)
	artifact, err := o.opts.Capturer.Capture(ctx, id, mode)
	if err != nil {
		o.advance(ord, models.StateCaptureFailed)
		return "", ord.State, err
	}
	o.advance(ord, models.StateCaptured)
	o.opts.Metrics.IncCapture()
	slog.Debug("artifact captured",
		slog.String("order_id", id),
		slog.String("path", artifact.Path),
		slog.String("mode", string(artifact.Mode)),
	)

	o.advance(ord, models.StatePublishing)
	start := time.Now()
	link, err := o.opts.Publisher.Upload(ctx, artifact.Path, o.opts.DriveFolderID)
	if err != nil {
		o.advance(ord, models.StatePublishFailed)
		return "", ord.State, err
	}
	o.opts.Metrics.IncUpload()
	o.opts.Metrics.ObserveUpload(time.Since(start))

	o.advance(ord, models.StatePublished)
	return link, ord.State, nil
}

func (o *Orchestrator) advance(ord *models.Order, next models.OrderState) {
	ord.State = next
	slog.Debug("order state",
		slog.String("order_id", ord.ID),
		slog.String("state", string(ord.State)),
	)
}

func (o *Orchestrator) clearVerifyChallenge(ctx context.Context) error {
	loc, err := o.currentLocation(ctx)
	if err != nil {
		return err
	}
	if !strings.Contains(loc, "verify/traffic") {
		return nil
	}

	cp := &console.Checkpoint{Name: console.CheckpointVerify, State: console.Running}
	o.opts.Metrics.IncCheckpoint(cp.Name)
	_, err = o.opts.Prompter.Await(ctx, cp,
		"The portal is asking for traffic verification.",
		"Solve the puzzle/CAPTCHA in the browser window.",
	)
	return err
}

func (o *Orchestrator) currentLocation(ctx context.Context) (string, error) {
	if o.opts.Navigator == nil {
		return "", nil
	}
	return o.opts.Navigator.Location(ctx)
}

func (o *Orchestrator) loggedIn(loc string) bool {
	if o.opts.PortalHost == "" || loc == "" {
		return false
	}
	return strings.Contains(loc, o.opts.PortalHost) && !strings.Contains(loc, "login")
}

func isAbort(err error) bool {
	var aborted console.ErrAborted
	return errors.As(err, &aborted) || errors.Is(err, context.Canceled)
}

func isSessionLost(err error) bool {
	var lost browser.ErrSessionLost
	return errors.As(err, &lost)
}
