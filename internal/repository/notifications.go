package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kelurahan-digital/sisurat/internal/model"
)

func insertNotifications(ctx context.Context, tx pgx.Tx, items []model.Notification) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, n := range items {
		batch.Queue(
			`INSERT INTO notifications (surat_id, user_id, channel, recipient, subject, body, status, next_attempt_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			n.SuratID, n.UserID, string(n.Channel), n.Recipient, n.Subject, n.Body,
			string(model.NotificationPending), n.NextAttemptAt,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	return nil
}

// LeaseNotifications mengambil notifikasi PENDING yang sudah jatuh tempo dan
// menunda jadwalnya selama lease agar tidak diambil pekerja lain.
func (r *PostgresRepository) LeaseNotifications(ctx context.Context, limit int, lease time.Duration) ([]model.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE notifications
		 SET next_attempt_at = now() + $2::interval
		 WHERE id IN (
		     SELECT id FROM notifications
		     WHERE status = $3 AND next_attempt_at <= now()
		     ORDER BY next_attempt_at, id
		     LIMIT $1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, surat_id, user_id, channel, recipient, subject, body, status,
		           attempts, last_error, next_attempt_at, created_at, sent_at`,
		limit, lease, string(model.NotificationPending),
	)
	if err != nil {
		return nil, fmt.Errorf("lease notifications: %w", err)
	}
	defer rows.Close()

	var res []model.Notification
	for rows.Next() {
		var (
			n       model.Notification
			channel string
			status  string
		)
		err := rows.Scan(&n.ID, &n.SuratID, &n.UserID, &channel, &n.Recipient, &n.Subject, &n.Body, &status,
			&n.Attempts, &n.LastError, &n.NextAttemptAt, &n.CreatedAt, &n.SentAt)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Channel = model.NotificationChannel(channel)
		n.Status = model.NotificationStatus(status)
		res = append(res, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// MarkNotificationSent menandai notifikasi telah terkirim.
func (r *PostgresRepository) MarkNotificationSent(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET status = $2, attempts = attempts + 1, sent_at = $3, last_error = NULL
		 WHERE id = $1`,
		id, string(model.NotificationSent), at,
	)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

// MarkNotificationRetry mencatat kegagalan kirim dan menjadwalkan percobaan berikutnya.
func (r *PostgresRepository) MarkNotificationRetry(ctx context.Context, id int64, lastErr string, next time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET attempts = attempts + 1, last_error = $2, next_attempt_at = $3
		 WHERE id = $1`,
		id, lastErr, next,
	)
	if err != nil {
		return fmt.Errorf("mark notification retry: %w", err)
	}
	return nil
}

// MarkNotificationFailed menandai notifikasi gagal permanen.
func (r *PostgresRepository) MarkNotificationFailed(ctx context.Context, id int64, lastErr string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET status = $2, attempts = attempts + 1, last_error = $3
		 WHERE id = $1`,
		id, string(model.NotificationFailed), lastErr,
	)
	if err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	return nil
}
