package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"course-assessment-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange certificate events are published to.
const DefaultExchange = "assessment.events"

// Publisher announces earned certificates on a topic exchange. With an empty
// URI it is disabled and only logs.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	enabled  bool
	now      func() time.Time
}

func NewPublisher(uri, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if uri == "" {
		log.Println("rabbitmq uri is empty, certificate events are disabled")
		return &Publisher{exchange: exchange, now: time.Now}, nil
	}

	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	log.Printf("event publisher ready on exchange %s", exchange)
	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		enabled:  true,
		now:      time.Now,
	}, nil
}

// Enabled reports whether events actually leave the process.
func (p *Publisher) Enabled() bool { return p.enabled }

func (p *Publisher) CertificateEarned(ctx context.Context, certificate domain.CourseCertificate) error {
	msg, err := p.message(certificate)
	if err != nil {
		return err
	}
	if !p.enabled {
		log.Printf("event publishing disabled, skipping %s for %s", domain.EventCertificateEarned, certificate.VerificationCode)
		return nil
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,                    // exchange
		domain.EventCertificateEarned, // routing key
		false,                         // mandatory
		false,                         // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", domain.EventCertificateEarned, err)
	}
	return nil
}

func (p *Publisher) message(certificate domain.CourseCertificate) (amqp.Publishing, error) {
	at := p.now()
	body, err := json.Marshal(domain.CertificateEarned{
		EventType:   domain.EventCertificateEarned,
		Certificate: certificate,
		OccurredAt:  at,
	})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    at,
		MessageId:    certificate.ID,
		Body:         body,
		Headers: amqp.Table{
			"event_type": domain.EventCertificateEarned,
			"user_id":    certificate.UserID,
			"course_id":  certificate.CourseID,
		},
	}, nil
}

func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			log.Printf("close rabbitmq channel: %v", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}
