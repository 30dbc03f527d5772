package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	pkghttp "github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/http"
)

// WebhookPayload 是 POST 到 Webhook 的 JSON 内容。
type WebhookPayload struct {
	Recipient string    `json:"recipient,omitempty"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
}

// WebhookNotifier 把告警以 JSON 形式 POST 到配置的地址，请求经过熔断器。
type WebhookNotifier struct {
	client *pkghttp.Client
	cfg    config.WebhookConfig
}

// NewWebhookNotifier 创建一个 WebhookNotifier。
func NewWebhookNotifier(client *pkghttp.Client, cfg config.WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{client: client, cfg: cfg}
}

// Notify 发送一次 Webhook 请求。所有失败都包装为 models.ErrNotificationChannel。
func (n *WebhookNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	payload := WebhookPayload{
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		SentAt:    time.Now().UTC(),
	}
	if err := n.client.PostJSON(ctx, n.cfg.URL, n.cfg.Headers, payload); err != nil {
		return fmt.Errorf("%w: webhook %s: %w", models.ErrNotificationChannel, n.cfg.URL, err)
	}
	return nil
}
