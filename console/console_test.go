package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestAwaitResume(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("done\n"), &out)

	cp := &Checkpoint{Name: CheckpointLogin, State: Running}
	resp, err := c.Await(context.Background(), cp, "Log in manually in the browser window.")
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if resp.Input != "done" {
		t.Fatalf("input = %q, want done", resp.Input)
	}
	if cp.State != Running {
		t.Fatalf("state = %s, want RUNNING", cp.State)
	}
	if !strings.Contains(out.String(), "CHECKPOINT: login") {
		t.Fatalf("banner missing checkpoint name: %q", out.String())
	}
}

func TestAwaitAbort(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("ABORT\n"), &out)

	cp := &Checkpoint{Name: CheckpointCaptureReady, State: Running}
	_, err := c.Await(context.Background(), cp)

	var aborted ErrAborted
	if !errors.As(err, &aborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if aborted.Checkpoint != CheckpointCaptureReady {
		t.Fatalf("checkpoint = %q", aborted.Checkpoint)
	}
	if cp.State != Aborted {
		t.Fatalf("state = %s, want ABORTED", cp.State)
	}
}

func TestAwaitCancelled(t *testing.T) {
	var out bytes.Buffer
	// Reader that never produces a line.
	blocked, _ := newBlockedReader()
	c := New(blocked, &out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		cp := &Checkpoint{Name: CheckpointVerify, State: Running}
		_, err := c.Await(ctx, cp)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("await did not return after cancellation")
	}
}

func TestReadOrderIDs(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("SN001\n  SN002  \n\nignored\n"), &out)

	ids, err := c.ReadOrderIDs(context.Background())
	if err != nil {
		t.Fatalf("read order ids: %v", err)
	}
	want := []string{"SN001", "SN002"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestReadOrderIDsEOF(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("SN001"), &out)

	ids, err := c.ReadOrderIDs(context.Background())
	if err != nil {
		t.Fatalf("read order ids at EOF: %v", err)
	}
	if len(ids) != 1 || ids[0] != "SN001" {
		t.Fatalf("ids = %v, want [SN001]", ids)
	}
}

func TestAskFullPage(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "full page", input: "1\n", want: true},
		{name: "viewport", input: "2\n", want: false},
		{name: "default", input: "\n", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := New(strings.NewReader(tt.input), &out)
			got, err := c.AskFullPage(context.Background())
			if err != nil {
				t.Fatalf("ask: %v", err)
			}
			if got != tt.want {
				t.Fatalf("full page = %v, want %v", got, tt.want)
			}
		})
	}
}

// newBlockedReader returns a reader whose Read never completes.
func newBlockedReader() (blockedReader, chan struct{}) {
	ch := make(chan struct{})
	return blockedReader{ch: ch}, ch
}

type blockedReader struct {
	ch chan struct{}
}

func (b blockedReader) Read(p []byte) (int, error) {
	<-b.ch
	return 0, nil
}
