package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chailang/appPack/internal/models"
)

// scriptedSource serves a fixed timeline of session states.
type scriptedSource struct {
	mu     sync.Mutex
	logs   []models.LogEntry
	status models.SessionStatus
	gone   bool
}

func (s *scriptedSource) Snapshot(sessionID string, afterLog int) (models.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone {
		return models.Snapshot{}, false
	}
	var tail []models.LogEntry
	if afterLog < len(s.logs) {
		tail = append(tail, s.logs[afterLog:]...)
	}
	return models.Snapshot{Status: s.status, Logs: tail}, true
}

func (s *scriptedSource) append(msgs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.logs = append(s.logs, models.NewLogEntry(models.LogInfo, m))
	}
}

func (s *scriptedSource) finish(status models.SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func collectFrames(t *testing.T, p *Poller, id string) []models.Snapshot {
	t.Helper()
	var frames []models.Snapshot
	err := p.Run(context.Background(), id, SinkFunc(func(snap models.Snapshot) error {
		frames = append(frames, snap)
		return nil
	}))
	require.NoError(t, err)
	return frames
}

func TestPollerDeliversEachLogOnce(t *testing.T) {
	src := &scriptedSource{status: models.StatusBuilding}
	src.append("one", "two")

	go func() {
		time.Sleep(30 * time.Millisecond)
		src.append("three")
		time.Sleep(30 * time.Millisecond)
		src.finish(models.StatusCompleted)
	}()

	p := NewPoller(src, 10*time.Millisecond, nil)
	frames := collectFrames(t, p, "s1")

	var got []string
	for _, f := range frames {
		for _, l := range f.Logs {
			got = append(got, l.Message)
		}
	}
	assert.Equal(t, []string{"one", "two", "three"}, got)
	assert.Equal(t, models.StatusCompleted, frames[len(frames)-1].Status)
}

func TestPollerStopsOnTerminalStatus(t *testing.T) {
	src := &scriptedSource{status: models.StatusFailed}
	src.append("boom")

	p := NewPoller(src, 10*time.Millisecond, nil)
	frames := collectFrames(t, p, "s1")

	require.Len(t, frames, 1)
	assert.Equal(t, models.StatusFailed, frames[0].Status)
}

func TestPollerEndedFrameForMissingSession(t *testing.T) {
	src := &scriptedSource{gone: true}

	p := NewPoller(src, 10*time.Millisecond, nil)
	frames := collectFrames(t, p, "nope")

	require.Len(t, frames, 1)
	assert.True(t, frames[0].Ended)
}

func TestPollerStopsOnSinkError(t *testing.T) {
	src := &scriptedSource{status: models.StatusBuilding}
	src.append("one")

	p := NewPoller(src, 10*time.Millisecond, nil)
	sinkErr := errors.New("client gone")
	err := p.Run(context.Background(), "s1", SinkFunc(func(models.Snapshot) error {
		return sinkErr
	}))
	assert.ErrorIs(t, err, sinkErr)
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	src := &scriptedSource{status: models.StatusBuilding}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	p := NewPoller(src, 10*time.Millisecond, nil)
	err := p.Run(ctx, "s1", SinkFunc(func(models.Snapshot) error { return nil }))
	assert.NoError(t, err)
}

func TestPollerIndependentCursorsPerSubscriber(t *testing.T) {
	src := &scriptedSource{status: models.StatusBuilding}
	for i := 0; i < 5; i++ {
		src.append(fmt.Sprintf("line-%d", i))
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		src.finish(models.StatusCompleted)
	}()

	run := func(out *[]string, done chan<- struct{}) {
		p := NewPoller(src, 10*time.Millisecond, nil)
		_ = p.Run(context.Background(), "s1", SinkFunc(func(snap models.Snapshot) error {
			for _, l := range snap.Logs {
				*out = append(*out, l.Message)
			}
			return nil
		}))
		close(done)
	}

	var a, b []string
	doneA, doneB := make(chan struct{}), make(chan struct{})
	go run(&a, doneA)
	go run(&b, doneB)
	<-doneA
	<-doneB

	want := []string{"line-0", "line-1", "line-2", "line-3", "line-4"}
	assert.Equal(t, want, a)
	assert.Equal(t, want, b)
}
