package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/condoflow/condoflow/internal/access"
	"github.com/condoflow/condoflow/internal/apiserver/database"
	"github.com/condoflow/condoflow/internal/apiserver/handler"
	"github.com/condoflow/condoflow/internal/apiserver/middleware"
	"github.com/condoflow/condoflow/internal/auth/jwt"
	"github.com/condoflow/condoflow/internal/common/config"
	"github.com/condoflow/condoflow/internal/guard"
	"github.com/condoflow/condoflow/internal/invite"
	"github.com/condoflow/condoflow/internal/notify"
	"github.com/condoflow/condoflow/internal/resident"
	"github.com/condoflow/condoflow/pkg/logger"
	"github.com/condoflow/condoflow/pkg/metrics"
	"github.com/condoflow/condoflow/pkg/version"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of apiserver",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("apiserver version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "apiserver",
		Short: "Condoflow API Server",
		Long:  `Condoflow API Server provides the property-management backend: hierarchical authorization, residents and invites`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "configs/apiserver.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting apiserver", zap.String("version", version.Get()))

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		zapLogger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	if err := database.InitSuperAdmin(db, &cfg.SuperAdmin); err != nil {
		zapLogger.Fatal("failed to seed super admin", zap.Error(err))
	}

	jwtService, err := jwt.NewService(jwt.Config(cfg.JWT))
	if err != nil {
		zapLogger.Fatal("failed to create JWT service", zap.Error(err))
	}

	var abuseGuard guard.Guard
	switch cfg.RateLimit.Store {
	case "redis":
		redisGuard, err := guard.NewRedisGuard(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zapLogger.Fatal("failed to connect rate-limit store", zap.Error(err))
		}
		defer func() {
			_ = redisGuard.Close()
		}()
		abuseGuard = redisGuard
	default:
		zapLogger.Warn("using in-memory rate limiting; budgets are per instance")
		abuseGuard = guard.NewMemoryGuard()
	}

	notifier := notify.NewLogNotifier(zapLogger)
	evaluator := access.NewEvaluator(db, zapLogger)
	residents := resident.NewManager(db, evaluator, notifier, zapLogger)
	invites := invite.NewManager(db, evaluator, residents, notifier, zapLogger,
		cfg.Invite.DefaultTTL, cfg.Invite.MaxTTL)

	m := metrics.New(cfg.Metrics)
	h := handler.New(db, jwtService, evaluator, residents, invites, abuseGuard, m, cfg, zapLogger)

	r := gin.New()
	r.Use(gin.Recovery(), m.GinMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Get()})
	})
	r.GET("/metrics", m.Handler())

	registerRoutes(r, h, abuseGuard, cfg, zapLogger, jwtService)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		zapLogger.Info("listening", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("forced shutdown", zap.Error(err))
	}
}

func registerRoutes(
	r *gin.Engine,
	h *handler.Handler,
	abuseGuard guard.Guard,
	cfg *config.APIServerConfig,
	zapLogger *zap.Logger,
	jwtService *jwt.Service,
) {
	api := r.Group("/api/v1")

	// Public endpoints, rate limited per caller identity
	public := api.Group("")
	public.Use(middleware.RateLimit(abuseGuard, zapLogger, "public",
		cfg.RateLimit.Points, cfg.RateLimit.Window))
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)
	public.GET("/invites/validate", h.ValidateInvite)

	// Authenticated endpoints
	auth := api.Group("")
	auth.Use(middleware.JWTAuthMiddleware(jwtService))
	auth.POST("/auth/change-password", h.ChangePassword)

	auth.POST("/companies", h.CreateCompany)
	auth.GET("/companies", h.ListCompanies)
	auth.GET("/companies/:id", h.GetCompany)
	auth.PUT("/companies/:id", h.UpdateCompany)
	auth.DELETE("/companies/:id", h.DeleteCompany)
	auth.GET("/companies/:id/condos", h.ListCondos)

	auth.POST("/condos", h.CreateCondo)
	auth.GET("/condos/:id", h.GetCondo)
	auth.PUT("/condos/:id", h.UpdateCondo)
	auth.DELETE("/condos/:id", h.DeleteCondo)
	auth.GET("/condos/:id/units", h.ListUnits)

	auth.POST("/units", h.CreateUnit)
	auth.GET("/units/:id", h.GetUnit)
	auth.PUT("/units/:id", h.UpdateUnit)
	auth.DELETE("/units/:id", h.DeleteUnit)
	auth.GET("/units/:id/residents", h.ListResidentsByUnit)
	auth.GET("/units/:id/invites", h.ListInvitesByUnit)
	auth.GET("/units/:id/invites/stats", h.GetInviteStats)

	auth.POST("/roles/grant", h.GrantRole)
	auth.POST("/roles/revoke", h.RevokeRole)

	auth.POST("/residents", h.CreateResident)
	auth.PUT("/residents/:id", h.UpdateResident)
	auth.POST("/residents/:id/move-out", h.MoveOutResident)
	auth.DELETE("/residents/:id", h.DeleteResident)
	auth.GET("/my/units", h.ListMyUnits)

	auth.POST("/invites", h.CreateInvite)
	acceptGroup := auth.Group("")
	acceptGroup.Use(middleware.RateLimit(abuseGuard, zapLogger, "accept",
		cfg.RateLimit.AcceptPoints, cfg.RateLimit.AcceptWindow))
	acceptGroup.POST("/invites/accept", h.AcceptInvite)
	auth.POST("/invites/:id/deactivate", h.DeactivateInvite)
	auth.DELETE("/invites/:id", h.DeleteInvite)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
