package models

import (
	"reflect"
	"testing"
)

func TestRunSummaryIDs(t *testing.T) {
	summary := &RunSummary{
		Succeeded: []LedgerEntry{
			{Seq: 1, OrderID: "SN001", Link: "ref1"},
			{Seq: 2, OrderID: "SN003", Link: "ref3"},
		},
		Failed: []OrderFailure{
			{OrderID: "SN002", State: StatePublishFailed, Cause: "upload refused"},
		},
	}

	if got, want := summary.SucceededIDs(), []string{"SN001", "SN003"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("SucceededIDs() = %v, want %v", got, want)
	}
	if got, want := summary.FailedIDs(), []string{"SN002"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("FailedIDs() = %v, want %v", got, want)
	}
}
