package downloadRepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"partner-portal/internal/model/filerecord"
)

// DownloadRepository persists the append-only download audit trail.
type DownloadRepository struct {
	conn *pgx.Conn
}

func New(db *pgx.Conn) *DownloadRepository {
	return &DownloadRepository{conn: db}
}

func (r *DownloadRepository) RecordDownload(ctx context.Context, event *filerecord.DownloadEvent) error {
	_, err := r.conn.Exec(ctx,
		`INSERT INTO download_events (id, user_id, code, year, month, downloaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.UserID, event.Code, event.Year, event.Month, event.DownloadedAt)
	return err
}

// LatestByUser returns the most recent download instant per (code, year,
// month) for one user. Keys never downloaded are absent.
func (r *DownloadRepository) LatestByUser(ctx context.Context, userID uuid.UUID) (map[filerecord.DownloadKey]time.Time, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT code, year, month, MAX(downloaded_at)
		 FROM download_events
		 WHERE user_id = $1
		 GROUP BY code, year, month`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	latest := make(map[filerecord.DownloadKey]time.Time)
	for rows.Next() {
		var key filerecord.DownloadKey
		var at time.Time
		if err := rows.Scan(&key.Code, &key.Year, &key.Month, &at); err != nil {
			return nil, err
		}
		latest[key] = at
	}
	return latest, rows.Err()
}

// ListByUser returns the user's download events, newest first.
func (r *DownloadRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*filerecord.DownloadEvent, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT id, user_id, code, year, month, downloaded_at
		 FROM download_events
		 WHERE user_id = $1
		 ORDER BY downloaded_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*filerecord.DownloadEvent
	for rows.Next() {
		var e filerecord.DownloadEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Code, &e.Year, &e.Month, &e.DownloadedAt); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
