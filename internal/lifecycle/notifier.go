package lifecycle

import (
	"context"
	"log/slog"

	"github.com/ashureev/frontdesk/internal/domain"
)

// Notifier delivers lifecycle milestones to people outside the process.
// Calls are fire-and-forget from the manager's point of view: errors are
// logged and never fail the lifecycle operation. Implementations that talk
// to slow transports should hand off to their own goroutine.
type Notifier interface {
	// NotifySupervisor tells a human that a new request needs an answer.
	NotifySupervisor(ctx context.Context, req *domain.HelpRequest) error

	// FollowUpCustomer sends the resolved answer back to the customer.
	FollowUpCustomer(ctx context.Context, req *domain.HelpRequest) error

	// NotifyCustomerTimeout tells the customer their question is still open.
	NotifyCustomerTimeout(ctx context.Context, req *domain.HelpRequest) error
}

// LogNotifier is a Notifier that only writes structured log lines.
type LogNotifier struct {
	Business string
	Logger   *slog.Logger
}

// NewLogNotifier creates a log-only notifier for the given business name.
func NewLogNotifier(business string, logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{Business: business, Logger: logger}
}

// NotifySupervisor logs the supervisor page.
func (n *LogNotifier) NotifySupervisor(_ context.Context, req *domain.HelpRequest) error {
	n.Logger.Info("[Supervisor Notification] New help request",
		"request_id", req.ID,
		"customer_contact", req.CustomerContact,
		"question", req.Question,
		"timeout_at", req.TimeoutAt)
	return nil
}

// FollowUpCustomer logs the text the customer would receive.
func (n *LogNotifier) FollowUpCustomer(_ context.Context, req *domain.HelpRequest) error {
	n.Logger.Info("[Customer Follow-up] Texting customer",
		"request_id", req.ID,
		"customer_contact", req.CustomerContact,
		"message", "Hi! I have an answer to your question: '"+req.Question+"' "+req.Answer+
			" Thank you for calling "+n.Business+"!")
	return nil
}

// NotifyCustomerTimeout logs the holding message the customer would receive.
func (n *LogNotifier) NotifyCustomerTimeout(_ context.Context, req *domain.HelpRequest) error {
	n.Logger.Info("[Customer Timeout] Texting customer",
		"request_id", req.ID,
		"customer_contact", req.CustomerContact,
		"message", "Hi! We're still working on your question: '"+req.Question+
			"'. Our team will get back to you as soon as possible. Thank you for your patience!")
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
