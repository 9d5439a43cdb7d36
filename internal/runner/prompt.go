package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/creack/pty"
)

// PromptReply scripts an interactive credential exchange: whenever Prompt
// appears in the process output, Secret followed by a line terminator is
// written to the process, repeating until the process exits naturally.
// The secret is written straight to the pty and never touches disk.
type PromptReply struct {
	Prompt string
	Secret string
}

// RunWithPrompt runs the command attached to a pseudo-terminal so that
// tools which only prompt on a TTY (ssh passphrase prompts during git pull)
// can be answered unattended. Output arrives merged on a single stream and
// is delivered to onChunk as stdout chunks.
func (r *Runner) RunWithPrompt(ctx context.Context, command Command, reply PromptReply, onChunk ChunkFunc) (*Result, error) {
	cmd := exec.CommandContext(ctx, command.Name, command.Args...)
	cmd.Dir = command.Dir
	cmd.Env = append(os.Environ(), command.Env...)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, &SpawnError{Cmd: command.String(), Err: err}
	}
	defer ptmx.Close()

	r.logger.Debug("process started on pty", "command", command.Name, "dir", command.Dir)

	capture := newBoundedBuffer(r.captureLimit)
	var window strings.Builder
	var pending strings.Builder

	flushLine := func(line string) {
		capture.WriteLine(line)
		if onChunk != nil {
			onChunk(Chunk{Stream: StreamStdout, Text: line})
		}
	}

	buf := make([]byte, 4096)
	for {
		n, readErr := ptmx.Read(buf)
		if n > 0 {
			text := string(buf[:n])

			// Deliver complete lines; keep the partial remainder.
			pending.WriteString(text)
			for {
				s := pending.String()
				idx := strings.IndexAny(s, "\r\n")
				if idx < 0 {
					break
				}
				if line := strings.TrimRight(s[:idx], "\r"); line != "" {
					flushLine(line)
				}
				pending.Reset()
				pending.WriteString(strings.TrimLeft(s[idx+1:], "\n"))
			}

			// Watch for the prompt across chunk boundaries.
			window.WriteString(text)
			if reply.Prompt != "" && strings.Contains(window.String(), reply.Prompt) {
				if _, err := ptmx.WriteString(reply.Secret + "\n"); err != nil {
					r.logger.Warn("writing prompt reply failed", "error", err)
				}
				window.Reset()
			} else if window.Len() > 8192 {
				// Keep only enough to match a prompt spanning chunks.
				s := window.String()
				window.Reset()
				window.WriteString(s[len(s)-len(reply.Prompt):])
			}
		}
		if readErr != nil {
			// The pty returns EIO when the child side closes; both that
			// and EOF signal natural process exit.
			if !errors.Is(readErr, io.EOF) && !isPtyClosed(readErr) {
				r.logger.Debug("pty read ended", "error", readErr)
			}
			break
		}
	}

	if rest := strings.TrimRight(pending.String(), "\r"); rest != "" {
		flushLine(rest)
	}

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

// isPtyClosed reports whether the read error means the child closed the pty.
func isPtyClosed(err error) bool {
	var pathErr *os.PathError
	return errors.As(err, &pathErr)
}
