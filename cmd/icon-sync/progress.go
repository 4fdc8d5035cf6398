package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/term"

	"icon-sync/internal/logging"
	"icon-sync/internal/maintenance"
)

// progressPrinter draws a single rewritten status line on a terminal and
// falls back to one line per phase when output is redirected.
type progressPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	fd     int
	tty    bool
	phase  maintenance.Phase
	active bool
}

func newProgressPrinter(f *os.File) *progressPrinter {
	fd := int(f.Fd())
	return &progressPrinter{w: f, fd: fd, tty: term.IsTerminal(fd)}
}

// Update is a maintenance.ProgressFunc.
func (p *progressPrinter) Update(pr maintenance.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.tty {
		if pr.Phase != p.phase && pr.Phase != maintenance.PhaseDone {
			fmt.Fprintf(p.w, "%s...\n", pr.Phase)
		}
		p.phase = pr.Phase
		return
	}

	width := 0
	if w, _, err := term.GetSize(p.fd); err == nil {
		width = w
	}
	fmt.Fprintf(p.w, "\r\033[K%s", formatProgress(pr, width))
	p.phase = pr.Phase
	p.active = true
}

// Step adapts the printer to the (done, total, current) callbacks of the
// library and relocation helpers.
func (p *progressPrinter) Step(phase maintenance.Phase) func(done, total int, current string) {
	return func(done, total int, current string) {
		p.Update(maintenance.Progress{Phase: phase, Done: done, Total: total, Current: current})
	}
}

// Clear erases the status line so the next output starts on a clean line.
func (p *progressPrinter) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		fmt.Fprint(p.w, "\r\033[K")
		p.active = false
	}
}

// formatProgress renders "phase done/total name", cut to width when width > 0.
func formatProgress(pr maintenance.Progress, width int) string {
	line := string(pr.Phase)
	if pr.Total > 0 {
		line += fmt.Sprintf(" %d/%d", pr.Done, pr.Total)
	}
	if pr.Current != "" {
		line += " " + filepath.Base(pr.Current)
	}
	if width > 1 {
		if r := []rune(line); len(r) >= width {
			line = string(r[:width-1])
		}
	}
	return line
}

// problemLog collects warning and error lines while a command runs so they
// can be repeated after the summary.
type problemLog struct {
	mu     sync.Mutex
	lines  []string
	remove func()
}

const maxProblems = 10

func collectProblems() *problemLog {
	pl := &problemLog{}
	pl.remove = logging.AddSink(func(level logging.LogLevel, line string) {
		if level < logging.LevelWarn {
			return
		}
		pl.mu.Lock()
		pl.lines = append(pl.lines, line)
		pl.mu.Unlock()
	})
	return pl
}

// Print stops collecting and writes the collected lines to w.
func (pl *problemLog) Print(w io.Writer) {
	pl.remove()
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if len(pl.lines) == 0 {
		return
	}
	fmt.Fprintf(w, "%d problem(s):\n", len(pl.lines))
	for i, line := range pl.lines {
		if i == maxProblems {
			fmt.Fprintf(w, "  ... and %d more\n", len(pl.lines)-maxProblems)
			break
		}
		fmt.Fprintf(w, "  %s\n", line)
	}
}
