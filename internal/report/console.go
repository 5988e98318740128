package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/lukashuebner/tugboat/internal/models"
)

// Console writes one progress line per outcome and the final summary.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	styles Styles
}

// NewConsole creates a console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, styles: NewStyles(w)}
}

// Observe prints the progress line of one outcome.
func (c *Console) Observe(o models.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %s %s\n", c.badge(o.Severity()), c.styles.Basename.Render(o.Dataset), c.styles.Dim.Render(o.Reason))
}

// Warn prints a warning line.
func (c *Console) Warn(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %s\n", c.badge(models.SeverityWarning), msg)
}

func (c *Console) badge(s models.Severity) string {
	switch s {
	case models.SeverityOK:
		return c.styles.OK.Render("[ ok ]")
	case models.SeverityWarning:
		return c.styles.Warning.Render("[warn]")
	default:
		return c.styles.Error.Render("[fail]")
	}
}

// Render prints the batch summary. Failure diagnostics are printed in full.
func (c *Console) Render(s models.BatchSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.Warnings == 0 && s.Errors == 0 {
		fmt.Fprintln(c.w, c.styles.OK.Render("Everything okay"))
		return
	}

	for _, o := range s.Failures {
		fmt.Fprintf(c.w, "\n%s %s (%s)\n", c.styles.Error.Render("FAILED"), c.styles.Basename.Render(o.Dataset), o.Stage)
		if len(o.Failures) == 0 {
			fmt.Fprintf(c.w, "  %s\n", o.Reason)
		}
		for _, f := range o.Failures {
			writeFailure(c.w, c.styles, f)
		}
	}

	counts := fmt.Sprintf("%d warning(s), %d error(s)", s.Warnings, s.Errors)
	if s.Errors > 0 {
		counts = c.styles.Error.Render(counts)
	} else {
		counts = c.styles.Warning.Render(counts)
	}
	fmt.Fprintf(c.w, "\n%s: %d dataset(s), %d ok, %s\n", s.Stage, s.Total, s.OK, counts)
}

func writeFailure(w io.Writer, st Styles, f models.StepFailure) {
	fmt.Fprintf(w, "  step:      %s\n", f.Step)
	if f.CommandLine != "" {
		fmt.Fprintf(w, "  command:   %s\n", st.Basename.Render(f.CommandLine))
	}
	fmt.Fprintf(w, "  exit code: %d\n", f.ExitCode)
	if f.Message != "" {
		fmt.Fprintf(w, "  error:     %s\n", f.Message)
	}
	writeBlock(w, "stdout", f.Stdout)
	writeBlock(w, "stderr", f.Stderr)
}

func writeBlock(w io.Writer, name, text string) {
	if text == "" {
		return
	}
	fmt.Fprintf(w, "  %s:\n", name)
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
}

// Tee fans one outcome out to several observers.
func Tee(observers ...func(models.Outcome)) func(models.Outcome) {
	return func(o models.Outcome) {
		for _, obs := range observers {
			obs(o)
		}
	}
}
