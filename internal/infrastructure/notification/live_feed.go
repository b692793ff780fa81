package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/payin/backend/internal/domain/payin"
	"github.com/payin/backend/internal/domain/shared"
)

// FeedEntry is the snapshot published to the live transaction feed after
// every status transition.
type FeedEntry struct {
	CompanyID       string          `json:"company_id"`
	PayInID         string          `json:"payin_id"`
	MerchantOrderID string          `json:"merchant_order_id"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	Amount          decimal.Decimal `json:"amount"`
	UTR             string          `json:"utr,omitempty"`
	Message         string          `json:"message,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

// LiveFeed publishes status transitions to a redis pub/sub channel for
// dashboard consumers. Publishing is fire-and-forget.
type LiveFeed struct {
	client  redis.UniversalClient
	channel string
	logger  *zap.Logger
}

// NewLiveFeed creates a feed publisher on the given channel
func NewLiveFeed(client redis.UniversalClient, channel string, logger *zap.Logger) *LiveFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveFeed{
		client:  client,
		channel: channel,
		logger:  logger.Named("live_feed"),
	}
}

// EventTypes returns the event types this handler is interested in
func (f *LiveFeed) EventTypes() []string {
	return []string{payin.EventTypePayInStatusChanged}
}

// Handle publishes the transition snapshot. Errors are logged only so a
// redis outage never blocks settlement.
func (f *LiveFeed) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*payin.PayInStatusChangedEvent)
	if !ok {
		return nil
	}

	entry := FeedEntry{
		CompanyID:       changed.CompanyID().String(),
		PayInID:         changed.AggregateID().String(),
		MerchantOrderID: changed.MerchantOrderID,
		From:            changed.From.String(),
		To:              changed.To.String(),
		Amount:          changed.Amount,
		UTR:             changed.UTR,
		Message:         changed.Message,
		OccurredAt:      changed.OccurredAt(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		f.logger.Error("failed to marshal feed entry", zap.Error(err))
		return nil
	}

	if err := f.client.Publish(ctx, f.channel, data).Err(); err != nil {
		f.logger.Warn("failed to publish feed entry",
			zap.String("channel", f.channel),
			zap.String("payin_id", entry.PayInID),
			zap.Error(err))
	}
	return nil
}

// Ensure LiveFeed implements EventHandler
var _ shared.EventHandler = (*LiveFeed)(nil)
