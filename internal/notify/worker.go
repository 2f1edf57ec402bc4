package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	amqp "github.com/rabbitmq/amqp091-go"
)

var notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "crm_assignment_notifications_total",
	Help: "Assignment notices consumed, by outcome.",
}, []string{"result"})

var errNoRecipient = errors.New("assignee has no profile")

type RecipientLookup interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
}

// Worker consumes assignment notices and emails the assignee.
type Worker struct {
	recipients RecipientLookup
	mailer     Mailer
	logger     *slog.Logger
}

func NewWorker(recipients RecipientLookup, mailer Mailer, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		recipients: recipients,
		mailer:     mailer,
		logger:     logger.With(slog.String("component", "notify_worker")),
	}
}

// Run blocks until ctx is done or deliveries is closed.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	w.logger.Info("notification worker started", "queue", QueueName)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("notification worker stopped")
			return
		case d, ok := <-deliveries:
			if !ok {
				w.logger.Warn("delivery channel closed")
				return
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	err := w.process(ctx, d.Body)
	switch {
	case err == nil:
		notificationsTotal.WithLabelValues("sent").Inc()
		if ackErr := d.Ack(false); ackErr != nil {
			w.logger.Error("failed to ack delivery", "error", ackErr)
		}
	case errors.Is(err, errNoRecipient):
		// Nothing to retry; the assignee is gone.
		notificationsTotal.WithLabelValues("skipped").Inc()
		w.logger.Warn("dropping assignment notice", "error", err)
		if ackErr := d.Ack(false); ackErr != nil {
			w.logger.Error("failed to ack delivery", "error", ackErr)
		}
	default:
		notificationsTotal.WithLabelValues("failed").Inc()
		w.logger.Error("assignment notice failed", "error", err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			w.logger.Error("failed to nack delivery", "error", nackErr)
		}
	}
}

func (w *Worker) process(ctx context.Context, body []byte) error {
	var notice AssignmentNotice
	if err := json.Unmarshal(body, &notice); err != nil {
		return fmt.Errorf("malformed assignment notice: %w", err)
	}
	if notice.AssigneeID == "" || notice.LeadID == "" {
		return errors.New("assignment notice missing ids")
	}

	profile, err := w.recipients.FindByID(ctx, notice.AssigneeID)
	if errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("%w: %s", errNoRecipient, notice.AssigneeID)
	}
	if err != nil {
		return fmt.Errorf("failed to load assignee: %w", err)
	}

	subject, text := assignmentEmail(notice, profile)
	if err := w.mailer.Send(profile.Email, subject, text); err != nil {
		return err
	}
	w.logger.Info("assignment notice sent", "lead_id", notice.LeadID, "profile_id", profile.ID)
	return nil
}

func assignmentEmail(notice AssignmentNotice, to *models.Profile) (string, string) {
	name := notice.LeadName
	if name == "" {
		name = notice.LeadID
	}
	greeting := "Hello"
	if to.FullName != "" {
		greeting = "Hello " + to.FullName
	}
	subject := fmt.Sprintf("New lead assigned: %s", name)
	body := fmt.Sprintf("%s,\n\nThe lead %s was assigned to you on %s.\n",
		greeting, name, notice.AssignedAt.UTC().Format("2006-01-02 15:04 MST"))
	return subject, body
}
