package util

import (
	"fmt"
	"io"
	"time"
)

// ProgressPrinter animates a spinner after a message so that the user knows
// a slow step, such as contacting the license backend, isn't stalled.
type ProgressPrinter struct {
	out     io.Writer
	msg     string
	stop    chan struct{}
	stopped chan struct{}
}

// NewProgressPrinter creates a new ProgressPrinter.
func NewProgressPrinter(out io.Writer, msg string) ProgressPrinter {
	return ProgressPrinter{out, msg, make(chan struct{}), make(chan struct{})}
}

var spinnerChars = []string{"/", "-", "\\", "|"}

// Run prints the message and spins until Stop is called.
func (pp ProgressPrinter) Run() {
	defer close(pp.stopped)
	poll := time.NewTicker(250 * time.Millisecond)
	defer poll.Stop()

	// Leave a space for the spinner character.
	fmt.Fprint(pp.out, pp.msg+"  ")
	for tick := 0; ; tick++ {
		select {
		case <-pp.stop:
			return
		case <-poll.C:
			fmt.Fprint(pp.out, "\b"+spinnerChars[tick%len(spinnerChars)])
		}
	}
}

// Stop stops printing to the output. After it returns, ProgressPrinter won't
// print anything more.
func (pp ProgressPrinter) Stop() {
	close(pp.stop)
	<-pp.stopped
	fmt.Fprint(pp.out, "\b \n")
}
