package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"agrostat/collector"
	"agrostat/database"
	"agrostat/models"
	"agrostat/reporting"
)

// Store запросы аудита и состояния хранилища
type Store interface {
	Ping(ctx context.Context) error
	Status(ctx context.Context) (database.Status, error)
	LastYear(ctx context.Context) (int, bool, error)
	ListProducts(ctx context.Context, year int) ([]string, error)
	DuplicateCodes(ctx context.Context) ([]database.DuplicateCode, error)
	ListUnmatched(ctx context.Context) ([]models.BranchMunicipality, error)
	ListCollectionRuns(ctx context.Context, limit int) ([]models.CollectionRun, error)
}

// Reports сводные таблицы филиалов
type Reports interface {
	BranchTable(ctx context.Context, branch string, year int) (reporting.Table, error)
}

// Runner запуск сбора
type Runner interface {
	GroupNames() []string
	Run(ctx context.Context, groups []string) (collector.RunReport, error)
}

// Handler обработчики API
type Handler struct {
	store   Store
	reports Reports
	runner  Runner
	logger  *slog.Logger

	runCtx    context.Context
	cancelRun context.CancelFunc
	running   atomic.Bool
	wg        sync.WaitGroup

	// mu упорядочивает wg.Add при запуске сбора и Shutdown
	mu     sync.Mutex
	closed bool
}

// NewHandler создает обработчики; runner может быть nil, тогда сбор через API недоступен
func NewHandler(store Store, reports Reports, runner Runner, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		store:     store,
		reports:   reports,
		runner:    runner,
		logger:    logger,
		runCtx:    ctx,
		cancelRun: cancel,
	}
}

// Register регистрирует маршруты API
func (h *Handler) Register(router *gin.Engine) {
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		SendJSONError(c, http.StatusMethodNotAllowed, "Method not allowed")
	})
	router.NoRoute(func(c *gin.Context) {
		SendJSONError(c, http.StatusNotFound, "Not found")
	})

	router.GET("/healthz", h.HandleHealth)

	api := router.Group("/api")
	{
		api.GET("/status", h.HandleStatus)
		api.GET("/relatorio/:filial", h.HandleBranchReport)
		api.GET("/produtos", h.HandleProducts)

		audit := api.Group("/auditoria")
		{
			audit.GET("/duplicados", h.HandleDuplicates)
			audit.GET("/sem-codigo", h.HandleUnmatched)
		}

		api.POST("/coleta", h.HandleCollect)
	}
}

// Shutdown отменяет запущенный сбор и ждет его завершения
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.cancelRun()
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleHealth проверка живости
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
