// internal/repository/postgres/market_repo.go
package postgres

import (
	"context"
	"fmt"

	"marketlens-service/internal/domain/market"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MarketRepository struct {
	db *pgxpool.Pool
}

func NewMarketRepository(db *pgxpool.Pool) *MarketRepository {
	return &MarketRepository{db: db}
}

// ListSnapshots returns all sector snapshots, newest period first
func (r *MarketRepository) ListSnapshots(ctx context.Context) ([]market.SectorSnapshot, error) {
	query := `
		SELECT id, sector, period, score, updated_at
		FROM market_sector_snapshots
		ORDER BY period DESC, sector
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []market.SectorSnapshot
	for rows.Next() {
		var s market.SectorSnapshot
		if err := rows.Scan(&s.ID, &s.Sector, &s.Period, &s.Score, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshots: %w", err)
	}

	return snapshots, nil
}

// UpsertSnapshot inserts or replaces the snapshot for (sector, period)
func (r *MarketRepository) UpsertSnapshot(ctx context.Context, s *market.SectorSnapshot) error {
	query := `
		INSERT INTO market_sector_snapshots (sector, period, score, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (sector, period)
		DO UPDATE SET score = EXCLUDED.score, updated_at = now()
		RETURNING id, updated_at
	`

	err := r.db.QueryRow(ctx, query, s.Sector, s.Period, s.Score).Scan(&s.ID, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}
