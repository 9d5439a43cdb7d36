// Package progress turns session state into a stream of incremental
// snapshots. It is transport agnostic; the SSE and WebSocket handlers
// plug in as sinks.
package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/Chailang/appPack/internal/models"
)

// Source exposes session state for streaming. Snapshot returns the session's
// current state with Logs filtered to entries after the given cursor, or
// ok=false when no session with that id exists.
type Source interface {
	Snapshot(sessionID string, afterLog int) (snap models.Snapshot, ok bool)
}

// Sink receives snapshot frames. A Send error means the client is gone and
// the poll loop should stop.
type Sink interface {
	Send(models.Snapshot) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(models.Snapshot) error

// Send implements Sink.
func (f SinkFunc) Send(snap models.Snapshot) error { return f(snap) }

// Poller repeatedly snapshots one session and forwards new frames to a sink.
type Poller struct {
	src      Source
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller creates a poller with the given polling interval.
func NewPoller(src Source, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &Poller{src: src, interval: interval, logger: logger}
}

// Run streams the session until it reaches a terminal status, the session
// disappears, the context is cancelled, or the sink fails. Every frame
// carries only log entries the sink has not yet received.
func (p *Poller) Run(ctx context.Context, sessionID string, sink Sink) error {
	cursor := 0

	// First frame immediately so clients see state without waiting a tick.
	done, err := p.step(sessionID, sink, &cursor)
	if done || err != nil {
		return err
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("progress stream closed by client", "session_id", sessionID)
			return nil
		case <-ticker.C:
			done, err := p.step(sessionID, sink, &cursor)
			if done || err != nil {
				return err
			}
		}
	}
}

// step sends one frame. It reports done=true when the stream should end.
func (p *Poller) step(sessionID string, sink Sink, cursor *int) (done bool, err error) {
	snap, ok := p.src.Snapshot(sessionID, *cursor)
	if !ok {
		// Reaped or never existed. Tell the client and stop.
		if err := sink.Send(models.Snapshot{Ended: true}); err != nil {
			return true, err
		}
		return true, nil
	}

	*cursor += len(snap.Logs)

	if err := sink.Send(snap); err != nil {
		return true, err
	}
	if snap.Status.Terminal() {
		return true, nil
	}
	return false, nil
}
