package models

import "time"

// OrderFailure records why a single order did not make it into the ledger.
type OrderFailure struct {
	OrderID string
	State   OrderState
	Cause   string
}

// RunSummary holds the overall result of one pipeline run.
type RunSummary struct {
	StartTime time.Time
	EndTime   time.Time
	Succeeded []LedgerEntry
	Failed    []OrderFailure
	Skipped   []string // duplicate ids suppressed within the run
	Aborted   bool
}

// SucceededIDs returns the order ids that were published, in processing order.
func (s *RunSummary) SucceededIDs() []string {
	ids := make([]string, 0, len(s.Succeeded))
	for _, e := range s.Succeeded {
		ids = append(ids, e.OrderID)
	}
	return ids
}

// FailedIDs returns the order ids that failed, in processing order.
func (s *RunSummary) FailedIDs() []string {
	ids := make([]string, 0, len(s.Failed))
	for _, f := range s.Failed {
		ids = append(ids, f.OrderID)
	}
	return ids
}
