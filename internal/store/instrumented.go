package store

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
	"github.com/gravy-ai/restaurant-assistant/pkg/metrics"
	"github.com/gravy-ai/restaurant-assistant/pkg/tracing"
)

type instrumented struct {
	next   Gateway
	logger *logger.Logger
}

// Instrument wraps g with metrics, spans and failure logging.
func Instrument(g Gateway, log *logger.Logger) Gateway {
	return &instrumented{next: g, logger: logger.OrNop(log).Named("store")}
}

func (s *instrumented) Fetch(ctx context.Context, sheet string) ([]Row, error) {
	var rows []Row
	err := s.observe(ctx, sheet, "fetch", func(ctx context.Context) error {
		var err error
		rows, err = s.next.Fetch(ctx, sheet)
		return err
	})
	return rows, err
}

func (s *instrumented) Append(ctx context.Context, sheet string, row Row) error {
	return s.observe(ctx, sheet, "append", func(ctx context.Context) error {
		return s.next.Append(ctx, sheet, row)
	})
}

func (s *instrumented) UpdateByKey(ctx context.Context, sheet, keyColumn, keyValue string, fields Row) error {
	return s.observe(ctx, sheet, "update", func(ctx context.Context) error {
		return s.next.UpdateByKey(ctx, sheet, keyColumn, keyValue, fields)
	})
}

func (s *instrumented) observe(ctx context.Context, sheet, op string, fn func(context.Context) error) error {
	ctx, span := tracing.Tracer("store").Start(ctx, "store."+op)
	span.SetAttributes(attribute.String("store.sheet", sheet))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("store call failed",
			zap.String("sheet", sheet),
			zap.String("op", op),
			zap.Error(err),
		)
	}
	metrics.RecordStore(sheet, op, outcome, time.Since(start).Seconds())
	return err
}
