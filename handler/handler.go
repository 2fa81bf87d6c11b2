package handler

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"genstudio/dto"
	"genstudio/service"
)

type ServiceDependencies struct {
	Generation service.Service
}

// JobHandler unmarshals a queued generation message and runs it to a terminal
// state.
func JobHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var m dto.GenerationMessage
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal generation message")
		return err
	}

	return deps.Generation.Process(ctx, m)
}
