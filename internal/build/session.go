package build

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Chailang/appPack/internal/models"
)

// session is the mutable state of one build, owned by the orchestrator and
// mutated only through its methods. It implements stage.Reporter.
type session struct {
	mu sync.Mutex

	id        string
	req       models.BuildRequest
	detection models.DetectionResult
	outputDir string
	startedAt time.Time

	status    models.SessionStatus
	logs      []models.LogEntry
	results   models.SessionResults
	progress  int
	completed int
	total     int
}

// newSessionID builds ids like 1756425600000-3f2a9c1d4: wall-clock millis
// plus a short random suffix, sortable by creation time.
func newSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix
}

// Log appends an entry to the session log. Safe for concurrent use by the
// platform goroutines.
func (s *session) Log(kind models.LogKind, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, models.NewLogEntry(kind, message))
}

// setProgress bumps the progress value, never decreasing it.
func (s *session) setProgress(p int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p > s.progress {
		s.progress = p
	}
}

// addError records an advisory or stage failure in the results.
func (s *session) addError(stageName, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results.Errors = append(s.results.Errors, models.StageError{
		Stage:   stageName,
		Message: message,
	})
}

// platformDone stores a platform result and returns the share of finished
// platform builds as a percentage.
func (s *session) platformDone(platform string, res *models.StageResult) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch platform {
	case "android":
		s.results.Android = res
	case "ios":
		s.results.Ios = res
	}
	s.completed++
	pct := int(float64(s.completed)/float64(s.total)*100 + 0.5)
	if pct > s.progress {
		s.progress = pct
	}
	return pct
}

// finalize flips the session into its terminal state exactly once.
func (s *session) finalize(failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return
	}
	if failed {
		s.status = models.StatusFailed
	} else {
		s.status = models.StatusCompleted
	}
	s.progress = 100
	s.results.OutputPath = s.outputDir
}

// snapshot copies the client-visible state, with logs filtered to entries
// after the given cursor.
func (s *session) snapshot(after int) models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tail []models.LogEntry
	if after < len(s.logs) {
		tail = append(tail, s.logs[after:]...)
	}

	results := s.results
	results.Errors = append([]models.StageError(nil), s.results.Errors...)

	return models.Snapshot{
		Status:   s.status,
		Logs:     tail,
		Results:  results,
		Progress: s.progress,
	}
}

func (s *session) hasFailedPlatform() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.results.Android != nil && !s.results.Android.Success {
		return true
	}
	if s.results.Ios != nil && !s.results.Ios.Success {
		return true
	}
	return false
}
