// Package runinfo discovers the revision and machine identifiers attached to
// every measurement.
package runinfo

import (
	"context"
	"os"
	"strings"

	"github.com/lukashuebner/tugboat/internal/shell"
)

// Unknown is reported when an identifier cannot be determined.
const Unknown = "unknown"

// GitRevision returns the short commit hash of the repository containing dir,
// with a "-dirty" suffix when the worktree has uncommitted changes.
func GitRevision(ctx context.Context, r shell.Runner, dir string) string {
	res := r.Run(ctx, shell.Command{Path: "git", Args: []string{"rev-parse", "--short", "HEAD"}, Dir: dir})
	rev := strings.TrimSpace(res.Stdout)
	if res.Failed() || rev == "" {
		return Unknown
	}

	status := r.Run(ctx, shell.Command{Path: "git", Args: []string{"status", "--porcelain", "--untracked-files=no"}, Dir: dir})
	if !status.Failed() && strings.TrimSpace(status.Stdout) != "" {
		rev += "-dirty"
	}
	return rev
}

// MachineID returns the host name.
func MachineID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return Unknown
	}
	return host
}

// Resolve returns the configured identifiers, discovering the ones left empty.
func Resolve(ctx context.Context, r shell.Runner, dir, revision, machine string) (string, string) {
	if revision == "" {
		revision = GitRevision(ctx, r, dir)
	}
	if machine == "" {
		machine = MachineID()
	}
	return revision, machine
}
