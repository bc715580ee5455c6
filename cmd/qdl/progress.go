package main

import (
	"io"
	"time"

	"gopkg.in/cheggaaa/pb.v1"

	qdl "github.com/moffa90/go-qdl"
)

// consoleProgress draws one byte progress bar per step that carries a
// payload: the loader upload and each program action.
type consoleProgress struct {
	out  io.Writer
	bar  *pb.ProgressBar
	step string
}

func newConsoleProgress(out io.Writer) *consoleProgress {
	return &consoleProgress{out: out}
}

// Update is a qdl.ProgressCallback.
func (c *consoleProgress) Update(p qdl.Progress) {
	if p.BytesTotal <= 0 {
		return
	}

	if c.bar == nil || p.Step != c.step {
		c.Finish()
		c.step = p.Step
		c.bar = pb.New64(p.BytesTotal)
		c.bar.Output = c.out
		c.bar.SetUnits(pb.U_BYTES)
		c.bar.SetMaxWidth(120)
		c.bar.ShowTimeLeft = false
		c.bar.SetRefreshRate(200 * time.Millisecond)
		c.bar.Prefix(p.Step + " ")
		c.bar.Start()
	}

	written := p.BytesWritten
	if written > p.BytesTotal {
		written = p.BytesTotal
	}
	c.bar.Set64(written)
}

// Finish completes the current bar, if any.
func (c *consoleProgress) Finish() {
	if c.bar != nil {
		c.bar.Finish()
		c.bar = nil
	}
}
