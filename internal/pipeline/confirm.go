package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
)

// Confirmer is the operator-in-the-loop gate between batches. Confirm
// blocks until the operator acknowledges; an error means the operator chose
// to stop, which is the one honored cancellation point of a run.
type Confirmer interface {
	Confirm(ctx context.Context, remaining int) error
}

// StdinConfirmer waits for the operator to press Enter on standard input.
// There is deliberately no timeout: the checkpoint is a human-paced gate.
type StdinConfirmer struct {
	In  io.Reader
	Out io.Writer

	// r buffers In across checkpoints; a per-call reader would drop any
	// input buffered past the first line.
	r *bufio.Reader
}

// NewStdinConfirmer creates a confirmer on the process's stdin/stdout.
func NewStdinConfirmer() *StdinConfirmer {
	return &StdinConfirmer{In: os.Stdin, Out: os.Stdout}
}

// Confirm prompts and blocks for an Enter keypress. EOF or a read error is
// treated as the operator stopping the run.
func (c *StdinConfirmer) Confirm(ctx context.Context, remaining int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, "Please verify in the browser that the claim was saved successfully.")
	fmt.Fprintf(c.Out, "Remaining: %d batch(es)\n", remaining)
	fmt.Fprintln(c.Out, "Press Enter to continue to the next batch, or Ctrl+C to stop...")

	if c.r == nil {
		c.r = bufio.NewReader(c.In)
	}
	if _, err := c.r.ReadString('\n'); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}
