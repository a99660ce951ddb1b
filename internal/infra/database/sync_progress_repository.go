package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xavierca1/npi-leads/internal/entity"
)

type SyncProgressRepository struct {
	DB *sql.DB
}

func NewSyncProgressRepository(db *sql.DB) *SyncProgressRepository {
	return &SyncProgressRepository{DB: db}
}

// Load returns entity.ErrNotFound when the key was never saved.
func (r *SyncProgressRepository) Load(ctx context.Context, key string) (*entity.SyncProgress, error) {
	query := `
		SELECT id, search_key, last_fetched_skip, total_fetched, total_available, created_at, updated_at
		FROM sync_progress
		WHERE search_key = $1
	`
	var p entity.SyncProgress
	err := r.DB.QueryRowContext(ctx, query, key).Scan(
		&p.ID, &p.SearchKey, &p.LastFetchedSkip, &p.TotalFetched, &p.TotalAvailable, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load sync progress %q: %w", key, err)
	}
	return &p, nil
}

// Save upserts on search_key and refreshes p with the stored row.
func (r *SyncProgressRepository) Save(ctx context.Context, p *entity.SyncProgress) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO sync_progress (id, search_key, last_fetched_skip, total_fetched, total_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (search_key)
		DO UPDATE SET
			last_fetched_skip = EXCLUDED.last_fetched_skip,
			total_fetched = EXCLUDED.total_fetched,
			total_available = EXCLUDED.total_available,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`
	err := r.DB.QueryRowContext(ctx, query,
		p.ID, p.SearchKey, p.LastFetchedSkip, p.TotalFetched, p.TotalAvailable, now,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save sync progress %q: %w", p.SearchKey, err)
	}
	return nil
}
