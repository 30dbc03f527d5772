package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
	pkghttp "github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/http"
)

// Notifier 是外部告警渠道。
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

// webhookTimeout 是单次 Webhook 请求的超时时间。
const webhookTimeout = 10 * time.Second

// New 根据配置创建告警渠道。未启用时返回 (nil, nil)，调用方应跳过外部告警。
func New(cfg *config.AppConfig) (Notifier, error) {
	n := cfg.Notification
	if !n.Enabled {
		return nil, nil
	}
	switch n.Channel {
	case "email":
		return NewEmailNotifier(n.Email), nil
	case "webhook":
		client, err := pkghttp.NewClient(cfg.Middleware.CircuitBreaker, webhookTimeout)
		if err != nil {
			return nil, fmt.Errorf("创建 Webhook 客户端失败: %w", err)
		}
		return NewWebhookNotifier(client, n.Webhook), nil
	default:
		return nil, fmt.Errorf("未知的通知渠道: %q", n.Channel)
	}
}
