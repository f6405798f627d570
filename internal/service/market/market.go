// internal/service/market/market.go
package market

import (
	"context"
	"fmt"

	"marketlens-service/internal/domain/market"
	"marketlens-service/internal/repository/postgres"

	"go.uber.org/zap"
)

// Service serves the dashboard's sector snapshots. Thin CRUD on top of the
// repository; authorization happens in the middleware on the roles claim.
type Service struct {
	repo   *postgres.MarketRepository
	logger *zap.Logger
}

func NewService(repo *postgres.MarketRepository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ListSnapshots returns all sector snapshots.
func (s *Service) ListSnapshots(ctx context.Context) ([]market.SectorSnapshot, error) {
	snapshots, err := s.repo.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snapshots, nil
}

// UpsertSnapshot creates or replaces the snapshot for a sector and period.
func (s *Service) UpsertSnapshot(ctx context.Context, req *market.UpsertSnapshotRequest) (*market.SectorSnapshot, error) {
	snapshot := &market.SectorSnapshot{
		Sector: req.Sector,
		Period: req.Period,
		Score:  req.Score,
	}
	if err := s.repo.UpsertSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	s.logger.Info("sector snapshot updated",
		zap.String("sector", snapshot.Sector),
		zap.String("period", snapshot.Period),
	)
	return snapshot, nil
}
