// Package devenv runs the local development stack: the API server, the web
// client's dev server and optionally the Firestore emulator. Output of every
// process is interleaved line by line with a name prefix.
package devenv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StopTimeout is how long a process gets after the interrupt before it is
// killed
const StopTimeout = 5 * time.Second

// Process is one command of the stack
type Process struct {
	Name    string
	Command []string
	Dir     string
	Env     []string // added to the current environment
}

// ExitError reports a process that stopped while the stack was running
type ExitError struct {
	Name string
	Err  error // nil when the process exited with status 0
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s exited", e.Name)
	}
	return fmt.Sprintf("%s exited: %v", e.Name, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Launcher starts processes and stops them together
type Launcher struct {
	out    io.Writer
	mu     sync.Mutex
	logger *zap.Logger
}

// New returns a launcher printing process output to out
func New(out io.Writer, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{out: out, logger: logger}
}

// Setup runs a command to completion with prefixed output
func (l *Launcher) Setup(ctx context.Context, p Process) error {
	cmd, wait, err := l.start(ctx, p)
	if err != nil {
		return err
	}
	if err := wait(); err != nil {
		return fmt.Errorf("%s (%s): %w", p.Name, cmd.String(), err)
	}
	return nil
}

// Run starts every process and blocks until one of them exits or ctx is
// cancelled; the rest are then interrupted. The first process to stop on
// its own is reported as an *ExitError. Cancellation of ctx returns nil.
func (l *Launcher) Run(ctx context.Context, procs ...Process) error {
	if len(procs) == 0 {
		return errors.New("no processes to run")
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range procs {
		cmd, wait, err := l.start(gctx, p)
		if err != nil {
			// stop what already started
			g.Go(func() error { return err })
			break
		}
		l.logger.Info("started", zap.String("process", p.Name), zap.Int("pid", cmd.Process.Pid))

		g.Go(func() error {
			err := wait()
			if gctx.Err() != nil {
				l.logger.Info("stopped", zap.String("process", p.Name))
				return nil
			}
			return &ExitError{Name: p.Name, Err: err}
		})
	}

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// start launches p and returns a wait function that also drains its output
func (l *Launcher) start(ctx context.Context, p Process) (*exec.Cmd, func() error, error) {
	if len(p.Command) == 0 {
		return nil, nil, fmt.Errorf("%s: empty command", p.Name)
	}

	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...)
	cmd.Dir = p.Dir
	cmd.Env = append(os.Environ(), p.Env...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = StopTimeout

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return nil, nil, fmt.Errorf("start %s: %w", p.Name, err)
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		l.copyLines(p.Name, pr)
	}()

	wait := func() error {
		err := cmd.Wait()
		pw.Close()
		<-drained
		return err
	}
	return cmd, wait, nil
}

func (l *Launcher) copyLines(name string, r io.ReadCloser) {
	defer r.Close()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		l.mu.Lock()
		fmt.Fprintf(l.out, "[%s] %s\n", name, scanner.Text())
		l.mu.Unlock()
	}
	if err := scanner.Err(); err != nil {
		l.logger.Warn("output stream failed", zap.String("process", name), zap.Error(err))
		io.Copy(io.Discard, r)
	}
}

// NeedsNodeModules reports whether dir has a package.json but no installed
// dependencies
func NeedsNodeModules(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err != nil {
		return false
	}
	_, err := os.Stat(filepath.Join(dir, "node_modules"))
	return errors.Is(err, os.ErrNotExist)
}
