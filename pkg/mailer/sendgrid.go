package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/uniportal/ecms-api/pkg/config"
)

// Mailer delivers transactional email. Implementations are best-effort
// collaborators: callers log failures and move on.
type Mailer interface {
	SendPasswordReset(ctx context.Context, toEmail, resetURL string) error
	SendComplaintResponse(ctx context.Context, toEmail string, details ResponseDetails) error
}

// ResponseDetails carries the content of a complaint-response email.
type ResponseDetails struct {
	ExamName     string
	ResponseText string
	AdminName    string
	ViewURL      string
}

// SendGridMailer sends mail through the SendGrid v3 API.
type SendGridMailer struct {
	client *sendgrid.Client
	from   *sgmail.Email
	logger *zap.Logger
}

// NewSendGrid builds a SendGrid-backed mailer. A nil return means email is
// not configured and delivery should be skipped.
func NewSendGrid(cfg config.EmailConfig, logger *zap.Logger) *SendGridMailer {
	if cfg.SendGridKey == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendGridMailer{
		client: sendgrid.NewSendClient(cfg.SendGridKey),
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
		logger: logger,
	}
}

// SendPasswordReset emails a reset link.
func (m *SendGridMailer) SendPasswordReset(ctx context.Context, toEmail, resetURL string) error {
	html := fmt.Sprintf(`<h2>Reset Your Password</h2>
<p>Click the link below to reset your password:</p>
<a href="%s">Reset Password</a>
<p>If you did not request this, please ignore this email.</p>`, resetURL)

	msg := sgmail.NewSingleEmail(m.from, "Reset Your Password", sgmail.NewEmail("", toEmail),
		"Use the link in this email to reset your password.", html)
	return m.send(ctx, msg)
}

// SendComplaintResponse notifies a student of a new admin response.
func (m *SendGridMailer) SendComplaintResponse(ctx context.Context, toEmail string, details ResponseDetails) error {
	subject := fmt.Sprintf("New Response to Your %s Complaint", details.ExamName)
	html := fmt.Sprintf(`<h2>New Response to Your Complaint</h2>
<p>Your complaint regarding <strong>%s</strong> has received a new response.</p>
<blockquote>%s</blockquote>
<p>Response by: <strong>%s</strong></p>
<a href="%s">View Complaint Details</a>`,
		details.ExamName, details.ResponseText, details.AdminName, details.ViewURL)

	msg := sgmail.NewSingleEmail(m.from, subject, sgmail.NewEmail("", toEmail), details.ResponseText, html)
	return m.send(ctx, msg)
}

func (m *SendGridMailer) send(ctx context.Context, msg *sgmail.SGMailV3) error {
	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	m.logger.Debug("email sent", zap.Int("status", resp.StatusCode))
	return nil
}
