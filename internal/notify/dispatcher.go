// Package notify delivers lead assignment notices through RabbitMQ and SMTP.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AssignmentNotice is the message body published on lead assignment.
type AssignmentNotice struct {
	LeadID     string    `json:"lead_id"`
	LeadName   string    `json:"lead_name"`
	AssigneeID string    `json:"assignee_id"`
	AssignedBy string    `json:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at"`
}

type Dispatcher interface {
	NotifyAssignment(ctx context.Context, notice AssignmentNotice) error
}

// Publisher is the subset of *amqp.Channel used for publishing.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

const publishTimeout = 5 * time.Second

type AMQPDispatcher struct {
	publisher Publisher
}

func NewAMQPDispatcher(publisher Publisher) *AMQPDispatcher {
	return &AMQPDispatcher{publisher: publisher}
}

func (d *AMQPDispatcher) NotifyAssignment(ctx context.Context, notice AssignmentNotice) error {
	body, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to encode assignment notice: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = d.publisher.PublishWithContext(ctx,
		ExchangeName,
		AssignedRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    notice.AssignedAt,
			Type:         "lead.assigned",
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish assignment notice: %w", err)
	}
	return nil
}

// NopDispatcher drops notices. Used when no broker is configured.
type NopDispatcher struct{}

func (NopDispatcher) NotifyAssignment(context.Context, AssignmentNotice) error { return nil }
