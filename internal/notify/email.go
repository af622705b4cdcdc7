package notify

import (
	"context"
	"fmt"

	"driveshare-settlement/internal/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"
)

type EmailSender interface {
	Send(ctx context.Context, to, toName, subject, body string) error
}

type sendGridSender struct {
	apiKey    string
	fromEmail string
	fromName  string
}

func NewSendGridSender(apiKey, fromEmail, fromName string) EmailSender {
	return &sendGridSender{apiKey: apiKey, fromEmail: fromEmail, fromName: fromName}
}

func (s *sendGridSender) Send(ctx context.Context, to, toName, subject, body string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(toName, to)
	message := mail.NewSingleEmail(from, subject, recipient, body, "")

	logger.ExternalServiceCall("SendGrid", "Send", "to", to, "subject", subject)
	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		err = fmt.Errorf("failed to send email: %w", err)
		logger.ExternalServiceResult("SendGrid", "Send", err, "to", to)
		return err
	}
	if response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
		logger.ExternalServiceResult("SendGrid", "Send", err, "to", to)
		return err
	}
	logger.ExternalServiceResult("SendGrid", "Send", nil, "to", to, "status", response.StatusCode)
	return nil
}

type smtpSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPSender(host string, port int, username, password, from string) EmailSender {
	return &smtpSender{host: host, port: port, username: username, password: password, from: from}
}

func (s *smtpSender) Send(ctx context.Context, to, toName, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetAddressHeader("To", to, toName)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)

	logger.ExternalServiceCall("SMTP", "DialAndSend", "to", to, "subject", subject)
	if err := d.DialAndSend(m); err != nil {
		err = fmt.Errorf("failed to send email via gomail: %w", err)
		logger.ExternalServiceResult("SMTP", "DialAndSend", err, "to", to)
		return err
	}
	logger.ExternalServiceResult("SMTP", "DialAndSend", nil, "to", to)
	return nil
}

type noopEmailSender struct{}

func NewNoopEmailSender() EmailSender {
	return noopEmailSender{}
}

func (noopEmailSender) Send(ctx context.Context, to, toName, subject, body string) error {
	logger.Debug("Email delivery disabled", "to", to, "subject", subject)
	return nil
}
