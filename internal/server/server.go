package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/hireledger/internal/audit"
	auditdomain "github.com/smallbiznis/hireledger/internal/audit/domain"
	"github.com/smallbiznis/hireledger/internal/config"
	"github.com/smallbiznis/hireledger/internal/credential"
	"github.com/smallbiznis/hireledger/internal/creditledger"
	ledgerdomain "github.com/smallbiznis/hireledger/internal/creditledger/domain"
	"github.com/smallbiznis/hireledger/internal/entitlement"
	entitlementdomain "github.com/smallbiznis/hireledger/internal/entitlement/domain"
	"github.com/smallbiznis/hireledger/internal/observability"
	obsmiddleware "github.com/smallbiznis/hireledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/hireledger/internal/observability/metrics"
	obstracing "github.com/smallbiznis/hireledger/internal/observability/tracing"
	"github.com/smallbiznis/hireledger/internal/pack"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
	"github.com/smallbiznis/hireledger/internal/payment"
	paymentdomain "github.com/smallbiznis/hireledger/internal/payment/domain"
	"github.com/smallbiznis/hireledger/internal/ratelimit"
	"github.com/smallbiznis/hireledger/internal/subscription"
	subscriptiondomain "github.com/smallbiznis/hireledger/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	pack.Module,
	creditledger.Module,
	subscription.Module,
	audit.Module,
	entitlement.Module,
	payment.Module,
	credential.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	packSvc         packdomain.Service
	ledgerSvc       ledgerdomain.Service
	subscriptionSvc subscriptiondomain.Service
	entitlementSvc  entitlementdomain.Service
	reconciler      paymentdomain.Reconciler
	webhookSvc      paymentdomain.WebhookService
	auditSvc        auditdomain.Service
	verifier        *credential.Verifier
	unlockLimiter   *ratelimit.UnlockLimiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	PackSvc         packdomain.Service
	LedgerSvc       ledgerdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	EntitlementSvc  entitlementdomain.Service
	Reconciler      paymentdomain.Reconciler
	WebhookSvc      paymentdomain.WebhookService
	AuditSvc        auditdomain.Service
	Verifier        *credential.Verifier
	UnlockLimiter   *ratelimit.UnlockLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics      `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             log.Named("http.server"),
		packSvc:         p.PackSvc,
		ledgerSvc:       p.LedgerSvc,
		subscriptionSvc: p.SubscriptionSvc,
		entitlementSvc:  p.EntitlementSvc,
		reconciler:      p.Reconciler,
		webhookSvc:      p.WebhookSvc,
		auditSvc:        p.AuditSvc,
		verifier:        p.Verifier,
		unlockLimiter:   p.UnlockLimiter,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerInternalRoutes()
	svc.registerWebhookRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Packs --------
	api.GET("/packs", s.ListPacks)
	api.GET("/packs/:id", s.GetPack)

	// -------- Unlocks --------
	api.POST("/unlocks", s.UnlockRateLimit(), s.RequestUnlock)

	// -------- Recruiters --------
	api.GET("/recruiters/:id/unlocks", s.ListRecruiterUnlocks)
	api.GET("/recruiters/:id/subscription", s.GetActiveSubscription)
	api.GET("/recruiters/:id/subscriptions", s.ListRecruiterSubscriptions)
}

func (s *Server) registerInternalRoutes() {
	internal := s.engine.Group("/internal", s.InternalTokenRequired())

	internal.POST("/payments/reconcile", s.ReconcilePayment)
	internal.GET("/recruiters/:id/payments", s.ListRecruiterPayments)
	internal.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/:provider", s.HandlePaymentWebhook)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
