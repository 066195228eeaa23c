package httpserver

import (
	"context"
	"errors"
	"time"

	"mushroom-dashboard/internal/domain"
	"mushroom-dashboard/internal/notify"
	custrepo "mushroom-dashboard/internal/repository/customer"
	salerepo "mushroom-dashboard/internal/repository/sale"
	"mushroom-dashboard/internal/scheduler"
	salesvc "mushroom-dashboard/internal/service/sale"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// LedgerService is the loyalty ledger as seen by the routes.
type LedgerService interface {
	Get(ctx context.Context, rawKey string) (*domain.Customer, error)
	ApplyPurchase(ctx context.Context, rawKey string, units int) (domain.LoyaltyResult, error)
	ClaimReward(ctx context.Context, rawKey string) (domain.ClaimResult, error)
	ResetCycle(ctx context.Context, rawKey string) (*domain.Customer, error)
	WipeLoyalty(ctx context.Context, rawKey string) (*domain.Customer, error)
	ReconcileFromHistory(ctx context.Context, rawKey string, qualifyingSales []int) (*domain.Customer, error)
}

// SaleService records and queries sales.
type SaleService interface {
	Record(ctx context.Context, in salesvc.RecordInput) (*salesvc.RecordResult, error)
	List(ctx context.Context, filter salerepo.ListFilter) ([]domain.Sale, error)
	Kadan(ctx context.Context) ([]domain.Sale, error)
	Summary(ctx context.Context, from, to *time.Time) (*domain.SalesSummary, error)
	Settle(ctx context.Context, id, settledBy string) (*domain.Sale, bool, error)
	Reconcile(ctx context.Context, rawKey string) (*domain.Customer, error)
}

// CustomerDirectory registers and lists customers.
type CustomerDirectory interface {
	Register(ctx context.Context, key, name string) (*domain.Customer, error)
	List(ctx context.Context, filter custrepo.ListFilter) ([]domain.Customer, error)
}

// NotificationLogs lists delivery attempts.
type NotificationLogs interface {
	List(ctx context.Context, limit int) ([]domain.NotificationLog, error)
}

// ReminderRunner triggers one reward-reminder sweep.
type ReminderRunner interface {
	RunOnce(ctx context.Context) (scheduler.RunStats, error)
}

// Notifier sends messages in the background.
type Notifier interface {
	Go(ctx context.Context, msg notify.Message, targets ...notify.Target)
}

// Deps bundles the services behind the routes. Logs, Reminders and Notifier are optional.
type Deps struct {
	Ledger    LedgerService
	Sales     SaleService
	Customers CustomerDirectory
	Logs      NotificationLogs
	Reminders ReminderRunner
	Notifier  Notifier
	Templates notify.Templates
	Audience  notify.Audience

	Gatherer       prometheus.Gatherer
	AdminToken     string
	AdminTokenHash string
	CORSOrigins    []string
}

func (d Deps) validate() error {
	if d.Ledger == nil {
		return errors.New("ledger service is required")
	}
	if d.Sales == nil {
		return errors.New("sale service is required")
	}
	if d.Customers == nil {
		return errors.New("customer directory is required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db Pinger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.AdminToken == "" && deps.AdminTokenHash == "" {
		logger.Warn("no admin token configured, admin routes will reject every request")
	}

	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery(), errorMiddleware(logger))
	if len(deps.CORSOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = deps.CORSOrigins
		corsCfg.AddAllowHeaders("Authorization", "X-Request-Id")
		router.Use(cors.New(corsCfg))
	}

	h := &handlers{deps: deps, logger: logger.Named("http")}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	public := router.Group("/api/customer")
	public.POST("/register", h.registerCustomer)
	public.GET("/loyalty/:contactNumber", h.loyaltyStatus)

	admin := router.Group("/api", adminAuth(deps.AdminToken, deps.AdminTokenHash))
	admin.POST("/sales", h.recordSale)
	admin.GET("/sales", h.listSales)
	admin.GET("/sales/kadan", h.listKadan)
	admin.GET("/sales/summary", h.salesSummary)
	admin.PATCH("/sales/:id/settle", h.settleSale)

	admin.GET("/customers", h.listCustomers)
	admin.GET("/customers/:key", h.getCustomer)
	admin.POST("/customers/:key/purchases", h.applyPurchase)
	admin.POST("/customers/:key/claim", h.claimReward)
	admin.POST("/customers/:key/reset-cycle", h.resetCycle)
	admin.POST("/customers/:key/wipe", h.wipeLoyalty)
	admin.POST("/customers/:key/reconcile", h.reconcile)

	admin.GET("/admin/notification-logs", h.notificationLogs)
	admin.POST("/admin/reminders/run", h.runReminders)

	return router, nil
}

type handlers struct {
	deps   Deps
	logger *zap.Logger
}

func (h *handlers) notify(c *gin.Context, msg notify.Message, targets ...notify.Target) {
	if h.deps.Notifier == nil || len(targets) == 0 {
		return
	}
	h.deps.Notifier.Go(c.Request.Context(), msg, targets...)
}
