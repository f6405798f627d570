// internal/handlers/market/market_handler.go
package market

import (
	"net/http"

	"marketlens-service/internal/domain/market"
	"marketlens-service/internal/pkg/response"
	marketUsecase "marketlens-service/internal/service/market"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MarketHandler struct {
	marketService *marketUsecase.Service
	logger        *zap.Logger
}

func NewMarketHandler(marketService *marketUsecase.Service, logger *zap.Logger) *MarketHandler {
	return &MarketHandler{
		marketService: marketService,
		logger:        logger,
	}
}

// ListSectors returns all sector snapshots (requires auth)
func (h *MarketHandler) ListSectors(c *gin.Context) {
	snapshots, err := h.marketService.ListSnapshots(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list sector snapshots", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to list sectors", nil)
		return
	}

	response.Success(c, http.StatusOK, "sectors retrieved", snapshots)
}

// UpsertSector creates or replaces a sector snapshot (Admin only)
func (h *MarketHandler) UpsertSector(c *gin.Context) {
	var req market.UpsertSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	snapshot, err := h.marketService.UpsertSnapshot(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("failed to upsert sector snapshot", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to save sector", nil)
		return
	}

	response.Success(c, http.StatusOK, "sector saved", snapshot)
}
