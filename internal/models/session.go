// Package models defines the shared data types for build sessions.
package models

import "time"

// BuildType selects which platform pipelines a session runs.
type BuildType string

const (
	BuildTypeAndroid BuildType = "android"
	BuildTypeIOS     BuildType = "ios"
	BuildTypeBoth    BuildType = "both"
)

// Valid reports whether the build type is one of the accepted values.
func (t BuildType) Valid() bool {
	switch t {
	case BuildTypeAndroid, BuildTypeIOS, BuildTypeBoth:
		return true
	}
	return false
}

// WantsAndroid reports whether the session should run the Android pipeline.
func (t BuildType) WantsAndroid() bool {
	return t == BuildTypeAndroid || t == BuildTypeBoth
}

// WantsIOS reports whether the session should run the iOS pipeline.
func (t BuildType) WantsIOS() bool {
	return t == BuildTypeIOS || t == BuildTypeBoth
}

// SessionStatus represents the current state of a build session.
type SessionStatus string

const (
	StatusBuilding  SessionStatus = "building"
	StatusCompleted SessionStatus = "completed"
	StatusFailed    SessionStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// BuildRequest carries the parameters of a start-build call.
type BuildRequest struct {
	ProjectPath string    `json:"projectPath"`
	OutputPath  string    `json:"outputPath"`
	BuildType   BuildType `json:"buildType"`
	EnvType     string    `json:"envType,omitempty"`
	VersionName string    `json:"versionName,omitempty"`
	VersionCode string    `json:"versionCode,omitempty"`
}

// StageResult is the immutable outcome of one platform-build stage.
type StageResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
}

// StageError records a stage-level failure surfaced to the client.
type StageError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// SessionResults aggregates per-platform outcomes for one session.
type SessionResults struct {
	Android    *StageResult `json:"android"`
	Ios        *StageResult `json:"ios"`
	Errors     []StageError `json:"errors"`
	OutputPath string       `json:"outputPath,omitempty"`
}

// Snapshot is the client-facing view of a session at one point in time.
// Logs contains only entries the subscriber has not yet received.
type Snapshot struct {
	Status   SessionStatus  `json:"status"`
	Logs     []LogEntry     `json:"logs"`
	Results  SessionResults `json:"results"`
	Progress int            `json:"progress"`
	Ended    bool           `json:"ended,omitempty"`
}

// DetectionLocations maps each platform to the subdirectory that satisfied
// its structural marker. Empty string means not found.
type DetectionLocations struct {
	Android string `json:"android,omitempty"`
	Ios     string `json:"ios,omitempty"`
	Flutter string `json:"flutter,omitempty"`
}

// DetectionResult is the outcome of a project-type scan. Flutter is recorded
// as a module location only; it never appears in Types.
type DetectionResult struct {
	Types     []string           `json:"types"`
	Locations DetectionLocations `json:"locations"`
}

// SessionTimestamp formats timestamps the way session logs expect them.
func SessionTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
