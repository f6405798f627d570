// internal/domain/market/entity.go
package market

import "time"

// SectorSnapshot is one scored market sector for a reporting period.
type SectorSnapshot struct {
	ID        int64     `json:"id" db:"id"`
	Sector    string    `json:"sector" db:"sector"`
	Period    string    `json:"period" db:"period"`
	Score     float64   `json:"score" db:"score"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
