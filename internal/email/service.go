package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/teleclinic/consult-api/internal/config"
	"github.com/teleclinic/consult-api/pkg/logger"
)

type Service interface {
	SendRequestCompleted(ctx context.Context, to, name string) error
	SendRequestCancelled(ctx context.Context, to, name, reason string) error
}

type smtpService struct {
	cfg    config.SMTPConfig
	dialer *gomail.Dialer
	logger *logger.Logger
}

func NewSMTPService(cfg config.SMTPConfig, logger *logger.Logger) Service {
	return &smtpService{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		logger: logger,
	}
}

func (s *smtpService) SendRequestCompleted(ctx context.Context, to, name string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour request has been completed. Log in to your dashboard to view the outcome.\n",
		name,
	)
	return s.send(to, "Your request has been completed", body)
}

func (s *smtpService) SendRequestCancelled(ctx context.Context, to, name, reason string) error {
	body := fmt.Sprintf("Hi %s,\n\nYour request has been cancelled.", name)
	if reason != "" {
		body += fmt.Sprintf(" Reason: %s.", reason)
	}
	body += "\n\nYou can submit a new request at any time.\n"
	return s.send(to, "Your request has been cancelled", body)
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
