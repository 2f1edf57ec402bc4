package notify

import (
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName       = "ex.crm"
	QueueName          = "q.lead_notifications"
	DLXName            = "ex.crm.dlx"
	DLQName            = "q.lead_notifications.dlq"
	AssignedRoutingKey = "k.lead.assigned"
)

// Broker holds one connection with a consume channel (Ch) and a separate
// publish channel, so a consumer-side channel failure leaves publishing intact.
type Broker struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
	pub  *amqp.Channel
}

// Connect dials url and declares the notification topology.
func Connect(url string) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare topology: %w", err)
	}

	pub, err := conn.Channel()
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to open publish channel: %w", err)
	}

	return &Broker{Conn: conn, Ch: ch, pub: pub}, nil
}

// Publisher returns the channel request goroutines publish on.
func (b *Broker) Publisher() Publisher {
	return b.pub
}

// Declarer is the subset of *amqp.Channel used to declare topology.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// Rejected notices are dead-lettered to DLQName.
func declareTopology(ch Declarer) error {
	if err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(DLQName, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(DLQName, AssignedRoutingKey, DLXName, false, nil); err != nil {
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": AssignedRoutingKey,
	}
	if err := ch.ExchangeDeclare(ExchangeName, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, args); err != nil {
		return err
	}
	return ch.QueueBind(QueueName, AssignedRoutingKey, ExchangeName, false, nil)
}

// Consume starts a manual-ack consumer on the notification queue.
func (b *Broker) Consume(consumer string) (<-chan amqp.Delivery, error) {
	if err := b.Ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}
	return b.Ch.Consume(QueueName, consumer, false, false, false, false, nil)
}

func (b *Broker) Close() error {
	var errs []error
	for _, ch := range []*amqp.Channel{b.pub, b.Ch} {
		if ch != nil {
			if err := ch.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := b.Conn.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
