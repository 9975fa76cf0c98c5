// Package server is the HTTP gateway: authentication, rate limiting and the
// JSON surface over the entitlement, usage, award and billing services.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/beaujross/beaurocks-karaoke-sub002/internal/award"
	awarddomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/award/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/config"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/entitlement"
	entitlementdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/entitlement/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/metrics"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/migration"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/observability"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/organization"
	organizationdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/organization/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/payment"
	paymentdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/payment/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/ratelimit"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/room"
	roomdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/room/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/subscription"
	subscriptiondomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/subscription/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/usageledger"
	usagedomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/usageledger/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/pkg/db"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	db.Module,
	migration.Module,
	metrics.Module,
	observability.Module,
	ratelimit.Module,
	organization.Module,
	entitlement.Module,
	usageledger.Module,
	room.Module,
	award.Module,
	subscription.Module,
	payment.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config) *gin.Engine {
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(observability.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())
	return r
}

func registerGin(cfg config.Config) *gin.Engine {
	return NewEngine(cfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server exited", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	organizationSvc organizationdomain.Service
	entitlementSvc  entitlementdomain.Service
	usageSvc        usagedomain.Service
	awardSvc        awarddomain.Service
	subscriptionSvc subscriptiondomain.Service
	paymentSvc      paymentdomain.Service
	roomRepo        roomdomain.Repository
	bucket          *ratelimit.TokenBucket
	gatherer        prometheus.Gatherer
	now             func() time.Time
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	OrganizationSvc organizationdomain.Service
	EntitlementSvc  entitlementdomain.Service
	UsageSvc        usagedomain.Service
	AwardSvc        awarddomain.Service
	SubscriptionSvc subscriptiondomain.Service
	PaymentSvc      paymentdomain.Service
	RoomRepo        roomdomain.Repository
	Bucket          *ratelimit.TokenBucket `optional:"true"`
	Gatherer        prometheus.Gatherer    `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		organizationSvc: p.OrganizationSvc,
		entitlementSvc:  p.EntitlementSvc,
		usageSvc:        p.UsageSvc,
		awardSvc:        p.AwardSvc,
		subscriptionSvc: p.SubscriptionSvc,
		paymentSvc:      p.PaymentSvc,
		roomRepo:        p.RoomRepo,
		bucket:          p.Bucket,
		gatherer:        p.Gatherer,
		now:             time.Now,
	}

	svc.registerSystemRoutes()
	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) registerSystemRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.cfg.AppVersion})
	})
	if s.gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")
	api.Use(IdentityMiddleware())
	api.Use(RequireAuth())
	api.Use(s.RateLimitMiddleware())

	api.GET("/me/entitlements", s.ResolveEntitlements)
	api.GET("/organizations/:org_id/entitlements", RequireRole("admin"), s.ResolveEntitlementsByOrg)

	api.POST("/usage/reservations", s.ReserveUsage)
	api.GET("/usage/summary", s.UsageSummary)

	api.POST("/rooms/:room_id/participants", s.JoinRoom)
	api.GET("/rooms/:room_id/participants", s.ListParticipants)
	api.POST("/rooms/:room_id/awards", RequireRole("host", "admin"), s.ApplyAwards)

	api.POST("/billing/checkout-sessions", RequireRole("host", "admin"), s.CreateCheckoutSession)
	api.POST("/billing/portal-sessions", RequireRole("host", "admin"), s.CreatePortalSession)
	api.GET("/billing/invoice-draft", s.InvoiceDraft)

	api.POST("/admin/subscriptions/sync", RequireRole("admin"), s.SyncSubscription)
}

func (s *Server) registerWebhookRoutes() {
	// Signature-verified, so no session auth and no identity requirement.
	s.engine.POST("/webhooks/payment", s.IngestPaymentWebhook)
}
