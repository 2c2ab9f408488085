package notify

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kajrofficep/cafeteria/internal/config"

	"gopkg.in/gomail.v2"
)

// EmailNotifier 实现邮件通知。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

// NewEmailNotifier 创建一个新的邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// SendWelcome 发送注册欢迎邮件。SMTP 未配置时跳过，不算失败。
func (n *EmailNotifier) SendWelcome(toEmail string, fullName string) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		if n.logger != nil {
			n.logger.Warn("email config missing, skip welcome mail")
		}
		return nil
	}
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("empty recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "[Cafeteria] 欢迎加入")

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>欢迎使用 Cafeteria</h2>
    <p>%s，你好：</p>
    <p>你的账号已创建成功，现在可以登录并提交今天和未来三天的订餐。</p>
    <p>请注意各餐别的当日修改截止时间：早餐 07:00、午餐 11:00、晚餐 14:00。</p>
  </div>
</body>
</html>`, fullName)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	if n.logger != nil {
		n.logger.Info("welcome email sent", slog.String("to", toEmail))
	}
	return nil
}
