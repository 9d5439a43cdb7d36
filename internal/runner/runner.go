// Package runner wraps invocation of long-running external commands (git,
// gradle wrapper, xcodebuild), streaming their output incrementally and
// reporting exit status.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
)

// StreamKind identifies which pipe a chunk came from.
type StreamKind string

const (
	StreamStdout StreamKind = "stdout"
	StreamStderr StreamKind = "stderr"
)

// Chunk is one incrementally delivered piece of process output. Text does
// not include the trailing newline.
type Chunk struct {
	Stream StreamKind
	Text   string
}

// ChunkFunc receives output chunks as they arrive. It is called from the
// runner's reader goroutines; implementations must be safe for concurrent
// calls when both pipes are live.
type ChunkFunc func(Chunk)

// Command describes an external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env entries are appended to the current process environment.
	Env []string
}

func (c Command) String() string {
	return fmt.Sprintf("%s %v", c.Name, c.Args)
}

// Result is the terminal outcome of a completed process.
type Result struct {
	ExitCode int
	// Output is a bounded capture of the combined output, suitable for
	// attaching to stage results. The full stream is only available
	// through the ChunkFunc.
	Output string
}

// SpawnError reports that the process could not be started at all.
type SpawnError struct {
	Cmd string
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning %s: %v", e.Cmd, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ExitError reports a non-zero process exit.
type ExitError struct {
	Cmd  string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Cmd, e.Code)
}

// Runner executes external commands with streamed output.
type Runner struct {
	logger *slog.Logger
	// captureLimit bounds the in-memory combined-output capture.
	captureLimit int
}

// DefaultCaptureLimit is the bound on the captured combined output.
const DefaultCaptureLimit = 256 * 1024

// New creates a Runner.
func New(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger, captureLimit: DefaultCaptureLimit}
}

// Run starts the command and streams its output line by line to onChunk
// until the process exits. It returns the bounded captured output together
// with the exit code. A non-zero exit returns both a Result and an
// *ExitError; a process that cannot start returns a *SpawnError.
func (r *Runner) Run(ctx context.Context, command Command, onChunk ChunkFunc) (*Result, error) {
	cmd := exec.CommandContext(ctx, command.Name, command.Args...)
	cmd.Dir = command.Dir
	cmd.Env = append(os.Environ(), command.Env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Cmd: command.String(), Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &SpawnError{Cmd: command.String(), Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Cmd: command.String(), Err: err}
	}

	r.logger.Debug("process started", "command", command.Name, "args", command.Args, "dir", command.Dir)

	capture := newBoundedBuffer(r.captureLimit)
	var mu sync.Mutex
	emit := func(stream StreamKind, line string) {
		mu.Lock()
		capture.WriteLine(line)
		mu.Unlock()
		if onChunk != nil {
			onChunk(Chunk{Stream: stream, Text: line})
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			emit(StreamStdout, scanner.Text())
		}
	}()
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			emit(StreamStderr, scanner.Text())
		}
	}()

	wg.Wait()
	err = cmd.Wait()

	result := &Result{ExitCode: 0, Output: capture.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, &ExitError{Cmd: command.String(), Code: result.ExitCode}
		}
		return nil, &SpawnError{Cmd: command.String(), Err: err}
	}
	return result, nil
}
