package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"agrostat/database"
	"agrostat/models"
	apperrors "agrostat/server/errors"
)

const recentRuns = 5

// StatusResponse состояние хранилища и последние запуски
type StatusResponse struct {
	database.Status
	Collecting bool                   `json:"coleta_em_andamento"`
	Runs       []models.CollectionRun `json:"coletas"`
}

// ProductsResponse продукты за год
type ProductsResponse struct {
	Year     int      `json:"ano,omitempty"`
	Products []string `json:"produtos"`
}

// HandleStatus сводка хранилища
// @Summary Store status and recent collection runs
// @Tags audit
// @Produce json
// @Success 200 {object} StatusResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/status [get]
func (h *Handler) HandleStatus(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.store.Ping(ctx); err != nil {
		SendAppError(c, apperrors.NewServiceUnavailableError("database unavailable", err))
		return
	}

	status, err := h.store.Status(ctx)
	if err != nil {
		SendAppError(c, apperrors.WrapError(err, "failed to load status"))
		return
	}
	runs, err := h.store.ListCollectionRuns(ctx, recentRuns)
	if err != nil {
		SendAppError(c, apperrors.WrapError(err, "failed to load collection runs"))
		return
	}

	SendJSONResponse(c, http.StatusOK, StatusResponse{
		Status:     status,
		Collecting: h.running.Load(),
		Runs:       runs,
	})
}

// HandleProducts названия продуктов за год; без параметра берется последний год
// @Summary Product names collected for a year
// @Tags reports
// @Produce json
// @Param ano query int false "Year"
// @Success 200 {object} ProductsResponse
// @Router /api/produtos [get]
func (h *Handler) HandleProducts(c *gin.Context) {
	ctx := c.Request.Context()

	year, err := optionalYear(c.Query("ano"))
	if err != nil {
		SendAppError(c, err)
		return
	}
	if year == 0 {
		last, ok, err := h.store.LastYear(ctx)
		if err != nil {
			SendAppError(c, apperrors.WrapError(err, "failed to read last year"))
			return
		}
		if !ok {
			SendJSONResponse(c, http.StatusOK, ProductsResponse{Products: []string{}})
			return
		}
		year = last
	}

	products, err := h.store.ListProducts(ctx, year)
	if err != nil {
		SendAppError(c, apperrors.WrapError(err, "failed to list products"))
		return
	}
	if products == nil {
		products = []string{}
	}
	SendJSONResponse(c, http.StatusOK, ProductsResponse{Year: year, Products: products})
}

// HandleDuplicates коды, сопоставленные нескольким филиалам
// @Summary Municipality codes shared by several branches
// @Tags audit
// @Produce json
// @Success 200 {array} database.DuplicateCode
// @Router /api/auditoria/duplicados [get]
func (h *Handler) HandleDuplicates(c *gin.Context) {
	dups, err := h.store.DuplicateCodes(c.Request.Context())
	if err != nil {
		SendAppError(c, apperrors.WrapError(err, "failed to list duplicate codes"))
		return
	}
	if dups == nil {
		dups = []database.DuplicateCode{}
	}
	SendJSONResponse(c, http.StatusOK, dups)
}

// HandleUnmatched записи филиалов без кода IBGE
// @Summary Branch municipalities without a resolved code
// @Tags audit
// @Produce json
// @Success 200 {array} models.BranchMunicipality
// @Router /api/auditoria/sem-codigo [get]
func (h *Handler) HandleUnmatched(c *gin.Context) {
	records, err := h.store.ListUnmatched(c.Request.Context())
	if err != nil {
		SendAppError(c, apperrors.WrapError(err, "failed to list unmatched municipalities"))
		return
	}
	if records == nil {
		records = []models.BranchMunicipality{}
	}
	SendJSONResponse(c, http.StatusOK, records)
}

const (
	minYear = 1900
	maxYear = 2100
)

func parseYear(raw string) (int, error) {
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError("ano must be an integer", err)
	}
	if year < minYear || year > maxYear {
		return 0, apperrors.NewValidationError("ano must be between 1900 and 2100", nil)
	}
	return year, nil
}

func optionalYear(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return parseYear(raw)
}
