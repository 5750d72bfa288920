package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dusk-indust/oversetsim/internal/comm"
)

// TimingHeader is the first line of a freshly reset timing log.
const TimingHeader = "# phase, time step, min, avg, max (seconds)"

// RunIDPrefix starts the optional header line naming the run.
const RunIDPrefix = "# run "

// fileMu serializes appends to run artifacts. Ranks hosted in one process
// share the files, and every write must land as whole lines.
var fileMu sync.Mutex

// Printer writes console output and timing-log lines from a single
// designated rank of a communicator. Calls on other ranks are no-ops, so
// callers invoke it unconditionally on every rank.
type Printer struct {
	rank       int
	ioRank     int
	out        io.Writer
	timingPath string
}

// NewPrinter creates a printer for c that reports from ioRank. timingPath
// may be empty to disable the timing log.
func NewPrinter(c comm.Comm, ioRank int, out io.Writer, timingPath string) *Printer {
	if out == nil {
		out = os.Stdout
	}
	return &Printer{
		rank:       c.Rank(),
		ioRank:     ioRank,
		out:        out,
		timingPath: timingPath,
	}
}

// IORank is the reporting rank.
func (p *Printer) IORank() int { return p.ioRank }

// IsIORank reports whether the caller is the reporting rank.
func (p *Printer) IsIORank() bool { return p.rank == p.ioRank }

// Echo prints s followed by a newline on the reporting rank.
func (p *Printer) Echo(s string) {
	if !p.IsIORank() {
		return
	}
	fmt.Fprintln(p.out, s)
}

// EchoTimeHeader prints the banner that opens a time step.
func (p *Printer) EchoTimeHeader(step int) {
	p.Echo(fmt.Sprintf("\n%s\n  Time step %d\n%s", strings.Repeat("=", 60), step, strings.Repeat("=", 60)))
}

// Reset truncates the timing log to its header lines.
func (p *Printer) Reset(header ...string) error {
	if !p.IsIORank() || p.timingPath == "" {
		return nil
	}
	return writeFile(p.timingPath, header, false)
}

// TimingToFile appends lines to the timing log.
func (p *Printer) TimingToFile(lines []string) error {
	if !p.IsIORank() || p.timingPath == "" || len(lines) == 0 {
		return nil
	}
	return writeFile(p.timingPath, lines, true)
}

// writeFile writes lines to path, truncating unless appending.
func writeFile(path string, lines []string, appending bool) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	flags := os.O_CREATE | os.O_WRONLY
	if appending {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := io.WriteString(f, strings.Join(lines, "\n")+"\n"); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
