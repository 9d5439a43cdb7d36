// Package build orchestrates multi-stage mobile build sessions: code sync,
// version patching, the platform builds, artifact collection and the
// completion notification. Sessions are memory-resident and reclaimed a
// fixed interval after they finish.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Chailang/appPack/internal/artifact"
	"github.com/Chailang/appPack/internal/build/stage"
	"github.com/Chailang/appPack/internal/detector"
	"github.com/Chailang/appPack/internal/gitinfo"
	"github.com/Chailang/appPack/internal/models"
	"github.com/Chailang/appPack/internal/notify"
	"github.com/Chailang/appPack/internal/runner"
)

// ConfigError rejects a build request before a session is created. The API
// layer maps it to a 400 response.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return e.Reason }

// PlatformBuilder runs one platform's build stage.
type PlatformBuilder interface {
	Build(ctx context.Context, moduleDir, outputRoot string, report stage.Reporter) (*models.StageResult, error)
}

// CodeSyncer updates a working tree before the build.
type CodeSyncer interface {
	Pull(ctx context.Context, dir string, report stage.Reporter) error
}

// VersionPatcher applies requested version and environment changes.
type VersionPatcher interface {
	Apply(root string, det *models.DetectionResult, req models.BuildRequest, report stage.Reporter) []models.StageError
}

// Notifier announces a finished session.
type Notifier interface {
	Send(ctx context.Context, webhookURL string, report notify.BuildReport, log stage.Reporter)
}

// Config wires the orchestrator's collaborators. Zero fields get working
// defaults; tests substitute stubs.
type Config struct {
	Detector detector.Detector
	Android  PlatformBuilder
	IOS      PlatformBuilder
	CodeSync CodeSyncer
	Version  VersionPatcher
	Notifier Notifier

	// Webhook and Passphrase are read per session so settings changes take
	// effect without restarting.
	Webhook    func() string
	Passphrase func() string

	// Retention is how long a finished session stays queryable.
	Retention time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// Orchestrator owns the session registry and drives one pipeline goroutine
// per session.
type Orchestrator struct {
	mu       sync.RWMutex
	sessions map[string]*session

	cfg Config
}

// DefaultRetention is how long finished sessions remain queryable.
const DefaultRetention = 5 * time.Minute

// New creates an orchestrator, filling in default collaborators.
func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.Detector == nil {
		cfg.Detector = detector.New()
	}
	r := runner.New(cfg.Logger)
	if cfg.Android == nil {
		cfg.Android = &stage.Android{Runner: r}
	}
	if cfg.IOS == nil {
		cfg.IOS = &stage.IOS{Runner: r}
	}
	if cfg.Version == nil {
		cfg.Version = &stage.Version{}
	}
	if cfg.Webhook == nil {
		cfg.Webhook = func() string { return "" }
	}
	if cfg.Passphrase == nil {
		cfg.Passphrase = func() string { return "" }
	}
	return &Orchestrator{
		sessions: make(map[string]*session),
		cfg:      cfg,
	}
}

// Start validates the request, registers a new session and launches its
// pipeline. Invalid requests return a *ConfigError and no session exists.
func (o *Orchestrator) Start(ctx context.Context, req models.BuildRequest) (string, error) {
	if !req.BuildType.Valid() {
		return "", &ConfigError{Reason: fmt.Sprintf("无效的打包类型: %s", req.BuildType)}
	}
	if req.ProjectPath == "" || req.OutputPath == "" {
		return "", &ConfigError{Reason: "项目路径和输出路径不能为空"}
	}
	if info, err := os.Stat(req.ProjectPath); err != nil || !info.IsDir() {
		return "", &ConfigError{Reason: fmt.Sprintf("项目路径不存在: %s", req.ProjectPath)}
	}

	det, err := o.cfg.Detector.Detect(ctx, req.ProjectPath)
	if err != nil {
		return "", &ConfigError{Reason: fmt.Sprintf("项目检测失败: %v", err)}
	}
	now := o.cfg.Now()
	outputDir := filepath.Join(req.OutputPath, now.Format("2006-01-02"))
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", &ConfigError{Reason: fmt.Sprintf("无法创建输出目录: %v", err)}
	}

	sess := &session{
		id:        newSessionID(now),
		req:       req,
		detection: *det,
		outputDir: outputDir,
		startedAt: now,
		status:    models.StatusBuilding,
	}
	if req.BuildType.WantsAndroid() {
		sess.total++
	}
	if req.BuildType.WantsIOS() {
		sess.total++
	}

	o.mu.Lock()
	o.sessions[sess.id] = sess
	o.mu.Unlock()

	o.cfg.Logger.Info("build session started",
		"session_id", sess.id,
		"project", req.ProjectPath,
		"build_type", req.BuildType,
	)

	go o.run(sess)
	return sess.id, nil
}

// Snapshot implements progress.Source.
func (o *Orchestrator) Snapshot(sessionID string, afterLog int) (models.Snapshot, bool) {
	o.mu.RLock()
	sess, ok := o.sessions[sessionID]
	o.mu.RUnlock()
	if !ok {
		return models.Snapshot{}, false
	}
	return sess.snapshot(afterLog), true
}

// SessionCount reports the number of registered sessions.
func (o *Orchestrator) SessionCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.sessions)
}

func (o *Orchestrator) remove(sessionID string) {
	o.mu.Lock()
	delete(o.sessions, sessionID)
	o.mu.Unlock()
	o.cfg.Logger.Debug("session reclaimed", "session_id", sessionID)
}

// run is the per-session pipeline goroutine. The build deliberately detaches
// from the starting request's context: clients disconnecting must not cancel
// a running build.
func (o *Orchestrator) run(sess *session) {
	ctx := context.Background()

	o.codeSync(ctx, sess)
	sess.setProgress(10)

	for _, verr := range o.cfg.Version.Apply(sess.req.ProjectPath, &sess.detection, sess.req, sess) {
		sess.addError(verr.Stage, verr.Message)
	}

	var wg sync.WaitGroup
	if sess.req.BuildType.WantsAndroid() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.setProgress(20)
			o.runPlatform(ctx, sess, "android", sess.detection.Locations.Android, "未检测到Android项目", o.cfg.Android)
		}()
	}
	if sess.req.BuildType.WantsIOS() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sess.total == 2 {
				sess.setProgress(50)
			} else {
				sess.setProgress(20)
			}
			o.runPlatform(ctx, sess, "ios", sess.detection.Locations.Ios, "未检测到iOS项目", o.cfg.IOS)
		}()
	}
	wg.Wait()

	failed := sess.hasFailedPlatform()
	sess.finalize(failed)
	if failed {
		sess.Log(models.LogError, "打包失败，请查看错误日志")
	} else {
		sess.Log(models.LogSuccess, "所有打包任务完成")
	}

	o.cfg.Logger.Info("build session finished",
		"session_id", sess.id,
		"failed", failed,
		"duration", o.cfg.Now().Sub(sess.startedAt),
	)

	o.notifyAsync(sess, failed)

	time.AfterFunc(o.cfg.Retention, func() { o.remove(sess.id) })
}

// runPlatform runs one platform's build stage. A requested platform whose
// module was never detected fails that stage only; the other platform still
// builds.
func (o *Orchestrator) runPlatform(ctx context.Context, sess *session, name, location, missingMsg string, builder PlatformBuilder) {
	if location == "" {
		sess.Log(models.LogError, missingMsg)
		sess.addError(name, missingMsg)
		sess.platformDone(name, &models.StageResult{Success: false, Output: missingMsg})
		return
	}

	moduleDir := filepath.Join(sess.req.ProjectPath, location)
	res, err := builder.Build(ctx, moduleDir, sess.outputDir, sess)
	if err != nil {
		sess.addError(name, err.Error())
	}
	if res == nil {
		res = &models.StageResult{Success: err == nil}
	}
	sess.platformDone(name, res)
}

// codeSync pulls the flutter module first when present, then the project
// root. The root pull also covers the android and ios modules nested under
// it. Pull failures never stop the pipeline.
func (o *Orchestrator) codeSync(ctx context.Context, sess *session) {
	syncer := o.cfg.CodeSync
	if syncer == nil {
		syncer = &stage.CodeSync{
			Runner:     runner.New(o.cfg.Logger),
			Passphrase: o.cfg.Passphrase(),
		}
	}

	sess.Log(models.LogInfo, "准备开始打包，先拉取最新代码...")

	if flutter := sess.detection.Locations.Flutter; flutter != "" {
		sess.Log(models.LogInfo, fmt.Sprintf("检测到Flutter项目: %s，先拉取Flutter代码...", flutter))
		if err := syncer.Pull(ctx, filepath.Join(sess.req.ProjectPath, flutter), sess); err != nil {
			sess.addError("code-sync", err.Error())
		}
	}
	if err := syncer.Pull(ctx, sess.req.ProjectPath, sess); err != nil {
		sess.addError("code-sync", err.Error())
	}
	sess.Log(models.LogInfo, "代码拉取完成，开始打包...")
}

// notifyAsync fires the completion webhook without blocking finalization.
// Only clean completions are announced.
func (o *Orchestrator) notifyAsync(sess *session, failed bool) {
	if o.cfg.Notifier == nil || failed {
		return
	}
	webhookURL := o.cfg.Webhook()
	if webhookURL == "" {
		return
	}

	report := notify.BuildReport{
		ProjectName: filepath.Base(sess.req.ProjectPath),
		ProjectPath: sess.req.ProjectPath,
		BuildType:   sess.req.BuildType,
		Status:      models.StatusCompleted,
		Duration:    o.cfg.Now().Sub(sess.startedAt),
		OutputPath:  sess.outputDir,
		Artifacts:   collectArtifacts(sess.outputDir),
	}
	if info, err := gitinfo.Info(sess.req.ProjectPath); err == nil {
		report.RepoSummary = info.Summary()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		o.cfg.Notifier.Send(ctx, webhookURL, report, sess)
	}()
}

func collectArtifacts(outputDir string) []string {
	var files []string
	for _, ext := range []string{".apk", ".aab", ".ipa"} {
		files = append(files, artifact.FindByExt(outputDir, ext)...)
	}
	return files
}
