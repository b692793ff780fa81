package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/payin/backend/internal/domain/partner"
	"github.com/payin/backend/internal/domain/payin"
	"github.com/payin/backend/internal/domain/shared"
	"github.com/payin/backend/internal/infrastructure/config"
)

// maxCallbackResponseSize limits the callback response body read size
const maxCallbackResponseSize = 64 * 1024

// MerchantCallback is the payload posted to the merchant notify URL on every
// status transition.
type MerchantCallback struct {
	Status          string          `json:"status"`
	MerchantOrderID string          `json:"merchantOrderId"`
	PayInID         string          `json:"payinId"`
	Amount          decimal.Decimal `json:"amount"`
	ReqAmount       decimal.Decimal `json:"req_amount"`
	UTRID           string          `json:"utr_id,omitempty"`
}

// MerchantNotifier delivers status-change callbacks to merchant systems.
// Delivery is best-effort: failures are logged and never surfaced to the
// operation that raised the event.
type MerchantNotifier struct {
	cfg          config.NotificationConfig
	httpClient   *http.Client
	payInRepo    payin.PayInRepository
	merchantRepo partner.MerchantRepository
	logger       *zap.Logger
}

// NewMerchantNotifier creates a notifier with the given configuration
func NewMerchantNotifier(
	cfg config.NotificationConfig,
	payInRepo payin.PayInRepository,
	merchantRepo partner.MerchantRepository,
	logger *zap.Logger,
) *MerchantNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MerchantNotifier{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		payInRepo:    payInRepo,
		merchantRepo: merchantRepo,
		logger:       logger.Named("merchant_notifier"),
	}
}

// EventTypes returns the event types this handler is interested in
func (n *MerchantNotifier) EventTypes() []string {
	return []string{payin.EventTypePayInStatusChanged}
}

// Handle processes a PayInStatusChangedEvent and posts the callback
func (n *MerchantNotifier) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*payin.PayInStatusChangedEvent)
	if !ok {
		n.logger.Error("unexpected event type",
			zap.String("expected", payin.EventTypePayInStatusChanged),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			payin.EventTypePayInStatusChanged, event.EventType())
	}

	if !n.cfg.Enabled {
		return nil
	}

	url, err := n.resolveNotifyURL(ctx, changed)
	if err != nil {
		n.logger.Warn("could not resolve merchant notify URL",
			zap.String("payin_id", changed.AggregateID().String()),
			zap.Error(err))
		return nil
	}
	if url == "" {
		return nil
	}

	callback := MerchantCallback{
		Status:          changed.To.String(),
		MerchantOrderID: changed.MerchantOrderID,
		PayInID:         changed.AggregateID().String(),
		Amount:          changed.Amount,
		ReqAmount:       changed.Amount,
		UTRID:           changed.UTR,
	}

	if err := n.deliver(ctx, url, callback); err != nil {
		n.logger.Warn("merchant callback delivery failed",
			zap.String("payin_id", callback.PayInID),
			zap.String("url", url),
			zap.String("status", callback.Status),
			zap.Error(err))
	}
	return nil
}

// resolveNotifyURL prefers the per-request URL and falls back to the
// merchant's configured default.
func (n *MerchantNotifier) resolveNotifyURL(ctx context.Context, event *payin.PayInStatusChangedEvent) (string, error) {
	p, err := n.payInRepo.FindByID(ctx, event.CompanyID(), event.AggregateID())
	if err != nil {
		return "", err
	}
	if p.URLs.NotifyURL != "" {
		return p.URLs.NotifyURL, nil
	}

	merchant, err := n.merchantRepo.FindByID(ctx, event.CompanyID(), event.MerchantID)
	if err != nil {
		return "", err
	}
	return merchant.NotifyURL, nil
}

// deliver posts the callback with bounded retries
func (n *MerchantNotifier) deliver(ctx context.Context, url string, callback MerchantCallback) error {
	body, err := json.Marshal(callback)
	if err != nil {
		return fmt.Errorf("marshaling callback: %w", err)
	}

	attempts := n.cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.cfg.RetryDelay):
			}
		}

		lastErr = n.post(ctx, url, body)
		if lastErr == nil {
			return nil
		}
		n.logger.Debug("merchant callback attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
	}
	return lastErr
}

func (n *MerchantNotifier) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxCallbackResponseSize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("merchant endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// Ensure MerchantNotifier implements EventHandler
var _ shared.EventHandler = (*MerchantNotifier)(nil)
