package stage

import (
	"context"

	"github.com/Chailang/appPack/internal/models"
	"github.com/Chailang/appPack/internal/notify"
)

// Notify announces a finished session to the configured webhook. Delivery
// problems are logged and swallowed; a missing webhook skips the stage.
type Notify struct {
	Client *notify.Client
}

// Send formats and posts the completion message. The host's public address
// is looked up first so the recipient can reach the build machine.
func (s *Notify) Send(ctx context.Context, webhookURL string, report notify.BuildReport, log Reporter) {
	if webhookURL == "" {
		return
	}

	report.HostIP = s.Client.PublicIP(ctx)

	if err := s.Client.SendText(ctx, webhookURL, notify.FormatReport(report)); err != nil {
		logf(log, models.LogWarning, "发送通知失败: %v", err)
		return
	}
	log.Log(models.LogInfo, "已发送打包完成通知")
}
