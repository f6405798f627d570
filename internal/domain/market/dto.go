// internal/domain/market/dto.go
package market

type UpsertSnapshotRequest struct {
	Sector string  `json:"sector" binding:"required"`
	Period string  `json:"period" binding:"required"`
	Score  float64 `json:"score" binding:"required"`
}
