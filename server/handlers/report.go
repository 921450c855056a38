package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"agrostat/reporting"
	apperrors "agrostat/server/errors"
)

// HandleBranchReport отчет филиала за год в xlsx или html
// @Summary Branch report for a year
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce html
// @Param filial path string true "Branch"
// @Param ano query int true "Year (1900-2100)"
// @Param formato query string false "xlsx or html" Enums(xlsx, html)
// @Param gerar_vazio query bool false "Generate a file even without data"
// @Success 200 {file} file
// @Success 204 "No data"
// @Failure 400 {object} ErrorResponse
// @Router /api/relatorio/{filial} [get]
func (h *Handler) HandleBranchReport(c *gin.Context) {
	branch := strings.TrimSpace(c.Param("filial"))
	if branch == "" {
		SendAppError(c, apperrors.NewValidationError("filial is required", nil))
		return
	}

	rawYear := c.Query("ano")
	if rawYear == "" {
		SendAppError(c, apperrors.NewValidationError("ano is required", nil))
		return
	}
	year, err := parseYear(rawYear)
	if err != nil {
		SendAppError(c, err)
		return
	}

	format, err := reporting.ParseFormat(c.Query("formato"))
	if err != nil {
		SendAppError(c, apperrors.NewValidationError("formato must be xlsx or html", err))
		return
	}

	generateEmpty := false
	if raw := c.Query("gerar_vazio"); raw != "" {
		generateEmpty, err = strconv.ParseBool(raw)
		if err != nil {
			SendAppError(c, apperrors.NewValidationError("gerar_vazio must be a boolean", err))
			return
		}
	}

	table, err := h.reports.BranchTable(c.Request.Context(), branch, year)
	if err != nil {
		SendAppError(c, apperrors.WrapError(err, "failed to build report"))
		return
	}
	if table.Empty() && !generateEmpty {
		c.Status(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	if err := reporting.Write(&buf, table, format); err != nil {
		SendAppError(c, apperrors.WrapError(err, "failed to render report"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, reporting.FileName(branch, year, format)))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
