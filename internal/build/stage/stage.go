// Package stage implements the individual steps of a build session: code
// sync, version patching, the Android and iOS platform builds, and the
// completion notification.
package stage

import (
	"fmt"

	"github.com/Chailang/appPack/internal/models"
	"github.com/Chailang/appPack/internal/runner"
)

// Reporter appends entries to the owning session's log.
type Reporter interface {
	Log(kind models.LogKind, message string)
}

func logf(r Reporter, kind models.LogKind, format string, args ...any) {
	r.Log(kind, fmt.Sprintf(format, args...))
}

// relay forwards streamed process output into the session log. Stderr lines
// keep their own kind so clients can highlight them.
func relay(r Reporter) runner.ChunkFunc {
	return func(c runner.Chunk) {
		kind := models.LogOutput
		if c.Stream == runner.StreamStderr {
			kind = models.LogError
		}
		r.Log(kind, c.Text)
	}
}

// colorTermEnv keeps tool output close to what an interactive shell shows.
var colorTermEnv = []string{"TERM=xterm-color"}

// noSigningEnv disables code signing for xcodebuild archive runs.
var noSigningEnv = []string{
	"TERM=xterm-color",
	"CODE_SIGN_IDENTITY=",
	"CODE_SIGNING_REQUIRED=NO",
}
