package diagnostics

import (
	"context"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/notework/collab/internal/domain"
)

// Runner invokes the typst compiler to collect diagnostics for one file.
// The compiler is an external collaborator: if the binary is missing or the
// run fails, the result is an empty set, never an error to the client.
type Runner struct {
	bin     string
	root    string
	timeout time.Duration
}

// NewRunner creates a runner compiling with root as the project root. An
// empty bin means "find typst on this machine".
func NewRunner(root, bin string) *Runner {
	if bin == "" {
		bin = findCompiler()
	}
	return &Runner{
		bin:     bin,
		root:    root,
		timeout: 10 * time.Second,
	}
}

// Available reports whether a compiler binary was found.
func (r *Runner) Available() bool {
	return r.bin != ""
}

// Check compiles path and returns its diagnostics. The PDF output is
// discarded; only stderr matters.
func (r *Runner) Check(ctx context.Context, path string) []domain.Diagnostic {
	if r.bin == "" {
		return nil
	}

	tmp, err := os.CreateTemp("", "diag-*.pdf")
	if err != nil {
		log.Printf("diagnostics: temp file: %v", err)
		return nil
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.bin, "compile",
		filepath.Join(r.root, filepath.FromSlash(path)), tmp.Name(),
		"--root", r.root)
	stderr, err := cmd.CombinedOutput()
	if err != nil && len(stderr) == 0 {
		// Could not run at all (as opposed to a compile failure,
		// which is exactly what we are after).
		log.Printf("diagnostics: %s: %v", path, err)
		return nil
	}
	return ParseCompilerOutput(string(stderr))
}

// findCompiler locates the typst binary on PATH or in the usual install
// locations. Returns "" when none is found.
func findCompiler() string {
	if p, err := exec.LookPath("typst"); err == nil {
		return p
	}
	home, _ := os.UserHomeDir()
	for _, p := range []string{
		"/opt/homebrew/bin/typst",
		"/usr/local/bin/typst",
		filepath.Join(home, ".cargo", "bin", "typst"),
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// CheckFunc produces diagnostics for one file.
type CheckFunc func(path string) []domain.Diagnostic

// PublishFunc delivers a finished diagnostic set.
type PublishFunc func(path string, diags []domain.Diagnostic)

// Scheduler debounces diagnostic runs. Edits mark a file dirty; after a
// quiet period every dirty file is checked once and the results published.
type Scheduler struct {
	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	delay   time.Duration
	check   CheckFunc
	publish PublishFunc
}

// NewScheduler creates a scheduler with the given debounce delay.
func NewScheduler(delay time.Duration, check CheckFunc, publish PublishFunc) *Scheduler {
	return &Scheduler{
		pending: make(map[string]struct{}),
		delay:   delay,
		check:   check,
		publish: publish,
	}
}

// Mark flags path as dirty and arms the debounce timer if it is not already
// running.
func (s *Scheduler) Mark(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[path] = struct{}{}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.delay, s.flush)
	}
}

func (s *Scheduler) flush() {
	s.mu.Lock()
	paths := make([]string, 0, len(s.pending))
	for p := range s.pending {
		paths = append(paths, p)
	}
	s.pending = make(map[string]struct{})
	s.timer = nil
	s.mu.Unlock()

	for _, p := range paths {
		s.publish(p, s.check(p))
	}
}

// Stop cancels a pending flush.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
