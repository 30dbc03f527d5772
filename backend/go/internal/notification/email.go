package notification

import (
	"context"
	"fmt"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wneessen/go-mail"
)

// EmailNotifier 通过 SMTP 发送纯文本告警邮件。
type EmailNotifier struct {
	cfg config.EmailConfig
}

// NewEmailNotifier 创建一个 EmailNotifier。
func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg}
}

// Notify 发送一封邮件。所有失败都包装为 models.ErrNotificationChannel。
func (n *EmailNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	msg, err := n.buildMessage(recipient, subject, body)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrNotificationChannel, err)
	}

	client, err := mail.NewClient(n.cfg.Host, n.clientOptions()...)
	if err != nil {
		return fmt.Errorf("%w: 创建 SMTP 客户端失败: %w", models.ErrNotificationChannel, err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: 发送邮件失败: %w", models.ErrNotificationChannel, err)
	}
	return nil
}

func (n *EmailNotifier) buildMessage(recipient, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return nil, fmt.Errorf("发件人地址无效: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return nil, fmt.Errorf("收件人地址无效: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func (n *EmailNotifier) clientOptions() []mail.Option {
	opts := []mail.Option{mail.WithPort(n.cfg.Port)}
	if n.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	// 未配置用户名时不做 SMTP 认证 (例如本地中继)。
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}
	return opts
}
