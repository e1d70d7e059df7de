package mailer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uniportal/ecms-api/pkg/jobs"
)

const (
	taskPasswordReset     = "password_reset"
	taskComplaintResponse = "complaint_response"
)

type resetPayload struct {
	To       string
	ResetURL string
}

type responsePayload struct {
	To      string
	Details ResponseDetails
}

// AsyncMailer queues deliveries on a worker pool so a slow SendGrid call
// never sits on the request path. Send methods only fail when the queue
// cannot accept the task; delivery errors are retried by the queue and
// logged when the attempt budget runs out.
type AsyncMailer struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAsync wraps inner with a delivery queue. Call Start before use and
// Stop on shutdown.
func NewAsync(inner Mailer, logger *zap.Logger) *AsyncMailer {
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := func(ctx context.Context, task jobs.Task) error {
		switch p := task.Payload.(type) {
		case resetPayload:
			return inner.SendPasswordReset(ctx, p.To, p.ResetURL)
		case responsePayload:
			return inner.SendComplaintResponse(ctx, p.To, p.Details)
		default:
			return fmt.Errorf("unknown mail task kind %q", task.Kind)
		}
	}

	return &AsyncMailer{
		queue:  jobs.NewQueue("mail", handler, jobs.Config{Logger: logger}),
		logger: logger,
	}
}

// Start launches the delivery workers.
func (m *AsyncMailer) Start(ctx context.Context) {
	m.queue.Start(ctx)
}

// Stop drains in-flight deliveries.
func (m *AsyncMailer) Stop() {
	m.queue.Stop()
}

// SendPasswordReset queues a reset email.
func (m *AsyncMailer) SendPasswordReset(_ context.Context, toEmail, resetURL string) error {
	return m.enqueue(taskPasswordReset, resetPayload{To: toEmail, ResetURL: resetURL})
}

// SendComplaintResponse queues a response notification email.
func (m *AsyncMailer) SendComplaintResponse(_ context.Context, toEmail string, details ResponseDetails) error {
	return m.enqueue(taskComplaintResponse, responsePayload{To: toEmail, Details: details})
}

func (m *AsyncMailer) enqueue(kind string, payload interface{}) error {
	task := jobs.Task{ID: uuid.NewString(), Kind: kind, Payload: payload}
	if !m.queue.TryEnqueue(task) {
		m.logger.Warn("mail queue rejected task", zap.String("kind", kind))
		return fmt.Errorf("mail queue full or stopped")
	}
	return nil
}
