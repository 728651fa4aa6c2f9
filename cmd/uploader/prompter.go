package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// stdinPrompter answers duplicate-confirmation requests from the terminal.
// While a question is pending, the command loop hands it the next stdin line
// via Offer. When nobody answers in time, Confirm reports ok=false and the
// worker's own timeout resolves the item as Skipped (Timeout).
type stdinPrompter struct {
	mu      sync.Mutex
	waiting chan string
	out     io.Writer
	timeout time.Duration
}

func newStdinPrompter(out io.Writer, timeout time.Duration) *stdinPrompter {
	return &stdinPrompter{out: out, timeout: timeout}
}

func (p *stdinPrompter) Confirm(question string) (answer, ok bool) {
	ch := make(chan string, 1)
	p.mu.Lock()
	p.waiting = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.waiting = nil
		p.mu.Unlock()
	}()

	fmt.Fprintf(p.out, "%s [y/N]: ", question)

	select {
	case line := <-ch:
		l := strings.ToLower(strings.TrimSpace(line))
		return l == "y" || l == "yes", true
	case <-time.After(p.timeout):
		fmt.Fprintln(p.out, "(no answer, skipping)")
		return false, false
	}
}

// Offer routes one stdin line to a pending question. Returns false when no
// question is waiting, so the command loop interprets the line itself.
func (p *stdinPrompter) Offer(line string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.waiting == nil {
		return false
	}
	select {
	case p.waiting <- line:
		return true
	default:
		return false
	}
}
