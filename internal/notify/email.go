package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	mail "gopkg.in/mail.v2"

	"github.com/mkazakova/remindbot/internal/config"
	"github.com/mkazakova/remindbot/internal/models"
	"github.com/mkazakova/remindbot/internal/render"
)

// EmailSender delivers reminders over SMTP. Messages carry both a plain
// body and an HTML alternative. Connection failures are told apart from
// per-message failures in the log only; both fail the send.
type EmailSender struct {
	dialer *mail.Dialer
	from   string
	log    zerolog.Logger
}

func NewEmailSender(cfg config.SMTP, log zerolog.Logger) *EmailSender {
	return &EmailSender{
		dialer: mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		log:    log,
	}
}

func (s *EmailSender) Channel() models.NotificationChannel {
	return models.ChannelEmail
}

func (s *EmailSender) Send(ctx context.Context, recipient string, msg render.Message) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Plain)
	m.AddAlternative("text/html", msg.HTML)

	conn, err := s.dialer.Dial()
	if err != nil {
		s.log.Error().Err(err).Str("host", s.dialer.Host).Msg("smtp connection failed")
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()

	if err := mail.Send(conn, m); err != nil {
		s.log.Error().Err(err).Str("to", recipient).Msg("email send failed")
		return fmt.Errorf("send to %s: %w", recipient, err)
	}
	return nil
}
