// Package notify mengirim notifikasi perubahan status surat melalui surel
// dan WhatsApp dari outbox basis data.
package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kelurahan-digital/sisurat/internal/model"
)

// Sender mengirim satu notifikasi melalui satu kanal.
type Sender interface {
	Send(ctx context.Context, n model.Notification) error
}

// Store adalah outbox notifikasi.
type Store interface {
	LeaseNotifications(ctx context.Context, limit int, lease time.Duration) ([]model.Notification, error)
	MarkNotificationSent(ctx context.Context, id int64, at time.Time) error
	MarkNotificationRetry(ctx context.Context, id int64, lastErr string, next time.Time) error
	MarkNotificationFailed(ctx context.Context, id int64, lastErr string) error
}

// Backoff adalah jeda antar percobaan ulang. Setelah jeda terakhir habis
// notifikasi ditandai FAILED.
var Backoff = []time.Duration{time.Minute, 5 * time.Minute, 15 * time.Minute, time.Hour}

const (
	batchSize    = 50
	leaseTimeout = 2 * time.Minute
)

// Dispatcher mengambil notifikasi yang jatuh tempo dan mengirimkannya.
type Dispatcher struct {
	store    Store
	senders  map[model.NotificationChannel]Sender
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time
}

// NewDispatcher membuat dispatcher. Kanal tanpa pengirim menandai notifikasinya FAILED.
func NewDispatcher(store Store, senders map[model.NotificationChannel]Sender, interval time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if senders == nil {
		senders = make(map[model.NotificationChannel]Sender)
	}
	return &Dispatcher{
		store:    store,
		senders:  senders,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// Run memproses outbox secara berkala sampai ctx dibatalkan.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch mengirim satu batch notifikasi dan mengembalikan jumlah yang terkirim.
func (d *Dispatcher) ProcessBatch(ctx context.Context) int {
	items, err := d.store.LeaseNotifications(ctx, batchSize, leaseTimeout)
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Error("lease notifications", zap.Error(err))
		}
		return 0
	}

	sent := 0
	for _, n := range items {
		if ctx.Err() != nil {
			return sent
		}
		if d.deliver(ctx, n) {
			sent++
		}
	}
	return sent
}

func (d *Dispatcher) deliver(ctx context.Context, n model.Notification) bool {
	log := d.logger.With(
		zap.Int64("notification_id", n.ID),
		zap.String("channel", string(n.Channel)),
	)

	sender, ok := d.senders[n.Channel]
	if !ok {
		if err := d.store.MarkNotificationFailed(ctx, n.ID, "channel disabled"); err != nil {
			log.Error("mark notification failed", zap.Error(err))
		}
		log.Warn("no sender for channel")
		return false
	}

	sendErr := sender.Send(ctx, n)
	if sendErr == nil {
		if err := d.store.MarkNotificationSent(ctx, n.ID, d.now()); err != nil {
			log.Error("mark notification sent", zap.Error(err))
		}
		return true
	}

	attempts := n.Attempts + 1
	if attempts > len(Backoff) {
		log.Error("notification delivery failed permanently", zap.Int("attempts", attempts), zap.Error(sendErr))
		if err := d.store.MarkNotificationFailed(ctx, n.ID, sendErr.Error()); err != nil {
			log.Error("mark notification failed", zap.Error(err))
		}
		return false
	}

	delay := Backoff[attempts-1]
	var rl *RetryAfterError
	if errors.As(sendErr, &rl) && rl.After > delay {
		delay = rl.After
	}

	log.Warn("notification delivery failed, will retry",
		zap.Int("attempts", attempts), zap.Duration("delay", delay), zap.Error(sendErr))
	if err := d.store.MarkNotificationRetry(ctx, n.ID, sendErr.Error(), d.now().Add(delay)); err != nil {
		log.Error("mark notification retry", zap.Error(err))
	}
	return false
}
