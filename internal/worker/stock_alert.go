package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/infra"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// StockAlertPayload is the job body pushed to QueueStockAlert when a
// material ends an OUT movement at or below its minimum stock.
type StockAlertPayload struct {
	MaterialID uint            `json:"material_id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Unit       string          `json:"unit"`
	QtyOnHand  decimal.Decimal `json:"qty_on_hand"`
	MinStock   decimal.Decimal `json:"min_stock"`
	Reason     string          `json:"reason"`
	UserID     uint            `json:"user_id"`
	At         time.Time       `json:"at"`
}

// Subject is the one-line summary used by every notifier.
func (p StockAlertPayload) Subject() string {
	return fmt.Sprintf("Critical stock: %s (%s)", p.Name, p.Code)
}

// Body renders the plain-text alert.
func (p StockAlertPayload) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Material %s (%s) is at or below its minimum stock.\n", p.Name, p.Code)
	fmt.Fprintf(&b, "On hand: %s %s\n", p.QtyOnHand.String(), p.Unit)
	fmt.Fprintf(&b, "Minimum: %s %s\n", p.MinStock.String(), p.Unit)
	if p.Reason != "" {
		fmt.Fprintf(&b, "Last movement: %s\n", p.Reason)
	}
	fmt.Fprintf(&b, "At: %s\n", p.At.UTC().Format(time.RFC3339))
	return b.String()
}

// Notifier delivers a stock alert over one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert StockAlertPayload) error
}

type guardedNotifier struct {
	Notifier
	cb *infra.CircuitBreaker
}

// StockAlertWorker fans an alert out to every configured notifier, each
// behind its own circuit breaker. A job fails (and is retried) only when
// no notifier delivered it.
type StockAlertWorker struct {
	notifiers []guardedNotifier
}

func NewStockAlertWorker(cbCfg infra.CircuitBreakerConfig, notifiers ...Notifier) *StockAlertWorker {
	w := &StockAlertWorker{}
	for _, n := range notifiers {
		if n == nil {
			continue
		}
		w.notifiers = append(w.notifiers, guardedNotifier{Notifier: n, cb: infra.NewCircuitBreaker(n.Name(), cbCfg)})
	}
	return w
}

// Process implements Handler.
func (w *StockAlertWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var alert StockAlertPayload
	if err := json.Unmarshal(raw, &alert); err != nil {
		// A malformed payload will never succeed; do not retry it.
		log.Error().Err(err).Msg("stock_alert_worker: invalid payload")
		return nil
	}
	if len(w.notifiers) == 0 {
		log.Warn().Str("code", alert.Code).Msg("stock_alert_worker: no notifiers configured, alert dropped")
		return nil
	}

	var errs []error
	delivered := 0
	for _, n := range w.notifiers {
		err := n.cb.Execute(func() error { return n.Notify(ctx, alert) })
		if err != nil {
			log.Warn().Err(err).Str("notifier", n.Name()).Str("state", n.cb.State().String()).
				Str("code", alert.Code).Msg("stock_alert_worker: notifier failed")
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		delivered++
	}
	if delivered == 0 {
		infra.AlertJobs.WithLabelValues("failed").Inc()
		return errors.Join(errs...)
	}
	infra.AlertJobs.WithLabelValues("sent").Inc()
	log.Info().Str("code", alert.Code).Int("delivered", delivered).Msg("stock_alert_worker: alert sent")
	return nil
}

// ── Notifier adapters ─────────────────────────────────────────────────────────

// EmailNotifier sends alerts through the SMTP mailer.
type EmailNotifier struct {
	Mailer *infra.Mailer
	To     []string
}

func (EmailNotifier) Name() string { return "email" }

func (n EmailNotifier) Notify(_ context.Context, a StockAlertPayload) error {
	return n.Mailer.Send(n.To, a.Subject(), a.Body())
}

// TelegramNotifier posts alerts to a chat.
type TelegramNotifier struct {
	Bot *infra.Telegram
}

func (TelegramNotifier) Name() string { return "telegram" }

func (n TelegramNotifier) Notify(_ context.Context, a StockAlertPayload) error {
	return n.Bot.Send(a.Subject() + "\n\n" + a.Body())
}
