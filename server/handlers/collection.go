package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "agrostat/server/errors"
	"agrostat/server/middleware"
)

// CollectRequest группы для сбора; пустой список означает все группы каталога
type CollectRequest struct {
	Groups []string `json:"grupos"`
}

// CollectResponse ответ на запуск сбора
type CollectResponse struct {
	Status string   `json:"status"`
	Groups []string `json:"grupos"`
}

// HandleCollect запускает сбор в фоне; одновременно выполняется только один запуск
// @Summary Start a collection run in the background
// @Tags collection
// @Accept json
// @Produce json
// @Param request body CollectRequest false "Product groups"
// @Success 202 {object} CollectResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/coleta [post]
func (h *Handler) HandleCollect(c *gin.Context) {
	if h.runner == nil {
		SendAppError(c, apperrors.NewServiceUnavailableError("collection is not configured", nil))
		return
	}

	var req CollectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			SendAppError(c, apperrors.NewValidationError("invalid request body", err))
			return
		}
	}

	known := make(map[string]bool)
	for _, name := range h.runner.GroupNames() {
		known[name] = true
	}
	for _, name := range req.Groups {
		if !known[name] {
			SendAppError(c, apperrors.NewValidationError(fmt.Sprintf("unknown group: %s", name), nil))
			return
		}
	}
	groups := req.Groups
	if len(groups) == 0 {
		groups = h.runner.GroupNames()
	}

	if !h.running.CompareAndSwap(false, true) {
		SendAppError(c, apperrors.NewConflictError("a collection run is already in progress", nil))
		return
	}

	reqID := middleware.GetRequestIDFromGin(c)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.running.Store(false)
		SendAppError(c, apperrors.NewServiceUnavailableError("server is shutting down", nil))
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		defer h.running.Store(false)

		ctx := middleware.SetRequestID(h.runCtx, reqID)
		report, err := h.runner.Run(ctx, groups)
		if err != nil {
			h.logger.Error("collection run failed", "run_id", report.RunID, "request_id", reqID, "error", err)
			return
		}
		h.logger.Info("collection run completed", "run_id", report.RunID, "request_id", reqID, "upserted", report.Upserted)
	}()

	SendJSONResponse(c, http.StatusAccepted, CollectResponse{Status: "started", Groups: groups})
}
