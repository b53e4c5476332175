package mail

import (
	"fmt"
	"net/smtp"

	"log/slog"
)

// Mailer sends account-recovery email over SMTP. With no host configured
// it runs in dev mode and just logs the reset link, so the flow is
// exercisable without real credentials.
type Mailer struct {
	host string
	port int
	user string
	pass string
	from string
	log  *slog.Logger
}

func New(host string, port int, user, pass, from string, log *slog.Logger) *Mailer {
	return &Mailer{host: host, port: port, user: user, pass: pass, from: from, log: log}
}

// SendPasswordReset emails the reset link to the address.
func (m *Mailer) SendPasswordReset(to, link string) error {
	if m.host == "" {
		m.log.Info("mail.dev_mode", "to", to, "link", link)
		return nil
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Reset your password\r\n\r\n"+
			"A password reset was requested for your account.\r\n\r\n"+
			"Reset link (valid for 1 hour): %s\r\n\r\n"+
			"If you did not request this, ignore this email.\r\n",
		m.from, to, link))

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var a smtp.Auth
	if m.user != "" {
		a = smtp.PlainAuth("", m.user, m.pass, m.host)
	}
	if err := smtp.SendMail(addr, a, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	m.log.Info("mail.sent", "to", to)
	return nil
}
