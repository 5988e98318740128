// Package shell runs the external operations of the pipeline: the benchmark
// executable, the decompressor, the simulation generator and the helper
// scripts.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Command is one external operation.
type Command struct {
	Path string
	Args []string
	// Stdout, when set, is the file standard output is written to. It is
	// created (or truncated) before the process starts.
	Stdout string
	Dir    string
	Env    map[string]string
}

// String renders the command line the way a shell user would type it.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+3)
	parts = append(parts, quote(c.Path))
	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}
	if c.Stdout != "" {
		parts = append(parts, ">", quote(c.Stdout))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`|&;<>()*?[]{}!#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Result is the outcome of running a Command. A non-zero exit is reported
// through ExitCode, not Err; Err is set when the process could not be run
// or was interrupted.
type Result struct {
	CommandLine string
	ExitCode    int
	// Stdout is empty when standard output was redirected to a file.
	Stdout string
	Stderr string
	Err    error
}

// Failed reports whether the operation did not complete successfully.
func (r Result) Failed() bool {
	return r.Err != nil || r.ExitCode != 0
}

// Runner runs external operations. Implementations must be safe for
// concurrent use.
type Runner interface {
	Run(ctx context.Context, cmd Command) Result
}

// ExecRunner runs commands as local processes.
type ExecRunner struct{}

// NewExecRunner creates a runner for local processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes cmd and waits for it to finish. Cancelling ctx kills the
// process.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) Result {
	res := Result{CommandLine: cmd.String()}

	execCmd := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	execCmd.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		execCmd.Env = append(os.Environ(), envList(cmd.Env)...)
	}

	var stdout, stderr bytes.Buffer
	execCmd.Stderr = &stderr
	if cmd.Stdout != "" {
		if err := os.MkdirAll(filepath.Dir(cmd.Stdout), 0755); err != nil {
			res.ExitCode = -1
			res.Err = fmt.Errorf("creating output directory: %w", err)
			return res
		}
		f, err := os.Create(cmd.Stdout)
		if err != nil {
			res.ExitCode = -1
			res.Err = fmt.Errorf("creating output file: %w", err)
			return res
		}
		defer f.Close()
		execCmd.Stdout = f
	} else {
		execCmd.Stdout = &stdout
	}

	err := execCmd.Run()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	if err == nil {
		return res
	}

	if ctx.Err() != nil {
		res.ExitCode = -1
		res.Err = fmt.Errorf("interrupted: %w", ctx.Err())
		return res
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res
	}
	res.ExitCode = -1
	res.Err = fmt.Errorf("executing command: %w", err)
	return res
}

func envList(env map[string]string) []string {
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	sort.Strings(list)
	return list
}

// DryRunner prints every command instead of running it and reports success.
// It never creates output files.
type DryRunner struct {
	mu  sync.Mutex
	out io.Writer
}

// NewDryRunner creates a DryRunner printing to out.
func NewDryRunner(out io.Writer) *DryRunner {
	return &DryRunner{out: out}
}

func (r *DryRunner) Run(_ context.Context, cmd Command) Result {
	line := cmd.String()
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, line)
	return Result{CommandLine: line}
}
