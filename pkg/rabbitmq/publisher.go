package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"genstudio/config"
	"genstudio/dto"
)

// Publisher dispatches generation messages onto the broker. It satisfies the
// orchestrator's Dispatcher interface.
type Publisher struct {
	ch  *amqp.Channel
	cfg *config.RabbitMQ
}

func NewPublisher(conn *amqp.Connection, cfg *config.RabbitMQ) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	err = ch.ExchangeDeclare(cfg.ExchangeName, cfg.Kind, true, false, false, false, nil)
	if err != nil {
		return nil, err
	}

	return &Publisher{ch: ch, cfg: cfg}, nil
}

func (p *Publisher) Dispatch(ctx context.Context, msg dto.GenerationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx, p.cfg.ExchangeName, p.cfg.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("job_id", msg.JobId.String()).Msg("failed to publish generation message")
		return err
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}
