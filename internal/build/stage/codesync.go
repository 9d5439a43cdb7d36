package stage

import (
	"context"
	"path/filepath"

	"github.com/Chailang/appPack/internal/gitinfo"
	"github.com/Chailang/appPack/internal/models"
	"github.com/Chailang/appPack/internal/runner"
)

// CodeSync pulls the latest code before a build. Failures are advisory: the
// orchestrator records them and the build continues on the checked-out state.
type CodeSync struct {
	Runner *runner.Runner
	// Passphrase, when set, is replied to the prompt containing Prompt on a
	// pseudo-terminal. Empty means a plain non-interactive pull.
	Passphrase string
	Prompt     string
}

// DefaultPrompt matches both ssh key passphrase and https password prompts.
const DefaultPrompt = "passphrase"

// Pull runs git pull in dir. Directories that are not git repositories are
// skipped without error.
func (s *CodeSync) Pull(ctx context.Context, dir string, report Reporter) error {
	if !gitinfo.IsRepo(dir) {
		report.Log(models.LogInfo, "项目不是Git仓库，跳过代码拉取")
		return nil
	}

	report.Log(models.LogInfo, "开始拉取最新代码...")
	logf(report, models.LogInfo, "工作目录: %s", dir)

	cmd := runner.Command{Name: "git", Args: []string{"pull"}, Dir: dir, Env: colorTermEnv}

	var err error
	if s.Passphrase != "" {
		prompt := s.Prompt
		if prompt == "" {
			prompt = DefaultPrompt
		}
		_, err = s.Runner.RunWithPrompt(ctx, cmd, runner.PromptReply{
			Prompt: prompt,
			Secret: s.Passphrase,
		}, relay(report))
	} else {
		_, err = s.Runner.Run(ctx, cmd, relay(report))
	}
	if err != nil {
		logf(report, models.LogError, "执行git pull时出错: %v", err)
		report.Log(models.LogWarning, "Git pull失败，但将继续执行打包")
		return err
	}

	report.Log(models.LogSuccess, "代码拉取成功")
	if info, err := gitinfo.Info(dir); err == nil {
		logf(report, models.LogInfo, "当前代码: %s (%s)", info.Summary(), filepath.Base(dir))
	}
	return nil
}
