// Package console implements the operator side of the pipeline: named
// checkpoints where automation suspends until a human resumes it, plus
// manual order-number entry. Suspensions have no timeout; the only way out
// is an operator response, an explicit abort, or process-level cancellation.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const separator = "======================================================================"

// State of a checkpoint.
type State string

const (
	Running          State = "RUNNING"
	AwaitingOperator State = "AWAITING_OPERATOR"
	Aborted          State = "ABORTED"
)

// Checkpoint names used by the pipeline.
const (
	CheckpointVerify       = "verify-challenge"
	CheckpointLogin        = "login"
	CheckpointCaptureReady = "capture-ready"
)

// Checkpoint is a named suspension point.
type Checkpoint struct {
	Name  string
	State State
}

// ErrAborted reports that the operator requested an abort at a checkpoint.
type ErrAborted struct {
	Checkpoint string
}

func (e ErrAborted) Error() string {
	return fmt.Sprintf("aborted at checkpoint %s", e.Checkpoint)
}

// Response carries whatever the operator typed to resume a checkpoint.
type Response struct {
	Input string
}

// Console is a line-oriented prompt/response channel, normally stdin/stdout.
type Console struct {
	out   io.Writer
	lines chan string
}

// New builds a console. A single reader goroutine owns r for the process
// lifetime so cancelled waits do not corrupt later reads.
func New(r io.Reader, w io.Writer) *Console {
	c := &Console{out: w, lines: make(chan string)}
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			c.lines <- strings.TrimSpace(scanner.Text())
		}
		close(c.lines)
	}()
	return c
}

// Await suspends at cp until the operator resumes it. The prompt lines are
// shown inside a banner. Typing "abort" moves the checkpoint to Aborted and
// returns ErrAborted; anything else (including an empty line) resumes.
func (c *Console) Await(ctx context.Context, cp *Checkpoint, prompt ...string) (Response, error) {
	cp.State = AwaitingOperator

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, separator)
	fmt.Fprintf(c.out, "CHECKPOINT: %s\n", cp.Name)
	fmt.Fprintln(c.out, separator)
	for _, line := range prompt {
		fmt.Fprintln(c.out, line)
	}
	fmt.Fprintln(c.out, `Press Enter to continue, or type "abort" to stop the run.`)

	line, err := c.readLine(ctx)
	if err != nil {
		cp.State = Aborted
		return Response{}, err
	}
	if strings.EqualFold(line, "abort") {
		cp.State = Aborted
		return Response{}, ErrAborted{Checkpoint: cp.Name}
	}

	cp.State = Running
	return Response{Input: line}, nil
}

// Ask prints a single prompt and returns the operator's line.
func (c *Console) Ask(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	return c.readLine(ctx)
}

// ReadOrderIDs collects order numbers one per line until a blank line.
// Identifiers are opaque; any non-empty string is accepted.
func (c *Console) ReadOrderIDs(ctx context.Context) ([]string, error) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Enter order numbers, one per line. Blank line finishes.")

	var ids []string
	for {
		line, err := c.Ask(ctx, "Order number: ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ids, nil
			}
			return nil, err
		}
		if line == "" {
			return ids, nil
		}
		ids = append(ids, line)
		fmt.Fprintf(c.out, "  added: %s\n", line)
	}
}

// AskFullPage asks which screenshot mode to use for the current order.
// Viewport is the default: it is what the operator framed on screen.
func (c *Console) AskFullPage(ctx context.Context) (bool, error) {
	fmt.Fprintln(c.out, "Screenshot type:")
	fmt.Fprintln(c.out, "  1. Full page")
	fmt.Fprintln(c.out, "  2. Visible area only (default)")
	line, err := c.Ask(ctx, "Choose (1/2): ")
	if err != nil {
		return false, err
	}
	return line == "1", nil
}

func (c *Console) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}
