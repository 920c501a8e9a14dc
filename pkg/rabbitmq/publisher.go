package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"praxis-recording/config"
	"praxis-recording/dto"
	"sync"
)

const (
	queueName     = "transcription_queue"
	routingKey    = "audio.transcribe.request"
	dlxName       = "transcription_exchange_dlx"
	dlqName       = "transcription_queue_dlq"
	dlqRoutingKey = "dlq.audio.transcribe.request"
)

var ErrNotConfirmed = errors.New("rabbitmq did not confirm the message")

type Publisher interface {
	Publish(ctx context.Context, envelope dto.TranscribeEnvelope) error
	FIFO() bool
	Close() error
}

type publisher struct {
	mu  sync.Mutex
	ch  *amqp.Channel
	cfg *config.RabbitMQ
}

// NewPublisher declares the transcription topology and puts the channel in
// confirm mode. The queue is declared here so messages published before the
// worker first connects are retained.
func NewPublisher(ctx context.Context, conn *amqp.Connection, cfg *config.RabbitMQ) (Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	if err := declareTopology(ctx, ch, cfg); err != nil {
		_ = ch.Close()
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("exchange", cfg.ExchangeName).
		Str("queue", queueName).
		Str("routing_key", routingKey).
		Bool("fifo", cfg.FIFO).
		Msg("transcription publisher ready")

	return &publisher{ch: ch, cfg: cfg}, nil
}

func declareTopology(ctx context.Context, ch *amqp.Channel, cfg *config.RabbitMQ) error {
	if err := ch.ExchangeDeclare(cfg.ExchangeName, cfg.Kind, true, false, false, false, nil); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("exchange", cfg.ExchangeName).Msg("failed to declare exchange")
		return err
	}

	if err := ch.ExchangeDeclare(dlxName, cfg.Kind, true, false, false, false, nil); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("exchange", dlxName).Msg("failed to declare dlx")
		return err
	}

	dlq, err := ch.QueueDeclare(dlqName, true, false, false, false, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("queue", dlqName).Msg("failed to declare dlq")
		return err
	}

	if err := ch.QueueBind(dlq.Name, dlqRoutingKey, dlxName, false, nil); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("queue", dlqName).Msg("failed to bind dlq")
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    dlxName,
		"x-dead-letter-routing-key": dlqRoutingKey,
	}
	q, err := ch.QueueDeclare(queueName, true, false, false, false, args)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("queue", queueName).Msg("failed to declare queue")
		return err
	}

	if err := ch.QueueBind(q.Name, routingKey, cfg.ExchangeName, false, nil); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("queue", queueName).Msg("failed to bind queue")
		return err
	}

	return nil
}

func (p *publisher) FIFO() bool {
	return p.cfg.FIFO
}

func (p *publisher) Publish(ctx context.Context, envelope dto.TranscribeEnvelope) error {
	body, err := json.Marshal(envelope.Message)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.cfg.ExchangeName, routingKey, false, false, publishing(envelope, body))
	if err != nil {
		return fmt.Errorf("publish %s: %w", envelope.DeduplicationId, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait for confirm of %s: %w", envelope.DeduplicationId, err)
	}
	if !acked {
		return ErrNotConfirmed
	}

	return nil
}

func publishing(envelope dto.TranscribeEnvelope, body []byte) amqp.Publishing {
	headers := amqp.Table{
		"x-operation":            string(envelope.Message.Operation),
		"x-deduplication-header": envelope.DeduplicationId,
	}
	if envelope.GroupId != "" {
		headers["x-group-id"] = envelope.GroupId
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    envelope.DeduplicationId,
		Timestamp:    envelope.Message.Timestamp,
		Headers:      headers,
		Body:         body,
	}
}

func (p *publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Close()
}
