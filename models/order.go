// Package models defines data structures for the evidence pipeline.
package models

import "time"

// CaptureMode selects how much of the rendered page a screenshot covers.
type CaptureMode string

const (
	// FullPage captures the entire scrollable page.
	FullPage CaptureMode = "full"
	// Viewport captures only the visible area.
	Viewport CaptureMode = "viewport"
)

// OrderState tracks one order through the pipeline.
type OrderState string

const (
	StatePending       OrderState = "PENDING"
	StateCapturing     OrderState = "CAPTURING"
	StateCaptured      OrderState = "CAPTURED"
	StatePublishing    OrderState = "PUBLISHING"
	StatePublished     OrderState = "PUBLISHED"
	StateCaptureFailed OrderState = "CAPTURE_FAILED"
	StatePublishFailed OrderState = "PUBLISH_FAILED"
)

// Order is one unit of work. The ID is an opaque token copied from the
// portal; any non-empty string is legal.
type Order struct {
	ID    string
	State OrderState
}

// Artifact is one captured screenshot tied to exactly one order.
type Artifact struct {
	OrderID    string
	Path       string
	Mode       CaptureMode
	CapturedAt time.Time
}

// LedgerEntry is one row of the evidence report.
type LedgerEntry struct {
	Seq     int
	OrderID string
	Link    string
}
