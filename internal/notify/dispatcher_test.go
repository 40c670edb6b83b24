package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelurahan-digital/sisurat/internal/model"
)

type outcome struct {
	status model.NotificationStatus
	err    string
	next   time.Time
}

type fakeStore struct {
	due      []model.Notification
	leaseErr error
	results  map[int64]outcome
}

func (s *fakeStore) LeaseNotifications(ctx context.Context, limit int, lease time.Duration) ([]model.Notification, error) {
	if s.leaseErr != nil {
		return nil, s.leaseErr
	}
	items := s.due
	s.due = nil
	return items, nil
}

func (s *fakeStore) MarkNotificationSent(ctx context.Context, id int64, at time.Time) error {
	s.results[id] = outcome{status: model.NotificationSent}
	return nil
}

func (s *fakeStore) MarkNotificationRetry(ctx context.Context, id int64, lastErr string, next time.Time) error {
	s.results[id] = outcome{status: model.NotificationPending, err: lastErr, next: next}
	return nil
}

func (s *fakeStore) MarkNotificationFailed(ctx context.Context, id int64, lastErr string) error {
	s.results[id] = outcome{status: model.NotificationFailed, err: lastErr}
	return nil
}

type senderFunc func(ctx context.Context, n model.Notification) error

func (f senderFunc) Send(ctx context.Context, n model.Notification) error { return f(ctx, n) }

func newTestDispatcher(store Store, senders map[model.NotificationChannel]Sender, now time.Time) *Dispatcher {
	d := NewDispatcher(store, senders, time.Second, nil)
	d.now = func() time.Time { return now }
	return d
}

func TestProcessBatch(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{
		results: make(map[int64]outcome),
		due: []model.Notification{
			{ID: 1, Channel: model.ChannelEmail, Recipient: "ok@example.com"},
			{ID: 2, Channel: model.ChannelEmail, Recipient: "bad@example.com"},
			{ID: 3, Channel: model.ChannelEmail, Recipient: "bad@example.com", Attempts: len(Backoff)},
			{ID: 4, Channel: model.ChannelWhatsApp, Recipient: "0812"},
		},
	}
	email := senderFunc(func(ctx context.Context, n model.Notification) error {
		if n.Recipient == "bad@example.com" {
			return errors.New("mailbox unavailable")
		}
		return nil
	})

	d := newTestDispatcher(store, map[model.NotificationChannel]Sender{model.ChannelEmail: email}, now)

	sent := d.ProcessBatch(context.Background())
	assert.Equal(t, 1, sent)

	assert.Equal(t, model.NotificationSent, store.results[1].status)

	require.Contains(t, store.results, int64(2))
	assert.Equal(t, model.NotificationPending, store.results[2].status)
	assert.Equal(t, now.Add(Backoff[0]), store.results[2].next)
	assert.Equal(t, "mailbox unavailable", store.results[2].err)

	assert.Equal(t, model.NotificationFailed, store.results[3].status)

	assert.Equal(t, model.NotificationFailed, store.results[4].status)
	assert.Equal(t, "channel disabled", store.results[4].err)
}

func TestProcessBatch_RetryAfterExtendsBackoff(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{
		results: make(map[int64]outcome),
		due:     []model.Notification{{ID: 9, Channel: model.ChannelWhatsApp, Attempts: 1}},
	}
	wa := senderFunc(func(ctx context.Context, n model.Notification) error {
		return &RetryAfterError{After: 10 * time.Minute}
	})

	d := newTestDispatcher(store, map[model.NotificationChannel]Sender{model.ChannelWhatsApp: wa}, now)
	d.ProcessBatch(context.Background())

	assert.Equal(t, now.Add(10*time.Minute), store.results[9].next)
}

func TestProcessBatch_LeaseError(t *testing.T) {
	store := &fakeStore{results: make(map[int64]outcome), leaseErr: errors.New("db down")}
	d := newTestDispatcher(store, nil, time.Now())

	assert.Equal(t, 0, d.ProcessBatch(context.Background()))
	assert.Empty(t, store.results)
}

func TestRun_StopsOnCancel(t *testing.T) {
	store := &fakeStore{results: make(map[int64]outcome)}
	d := NewDispatcher(store, nil, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
