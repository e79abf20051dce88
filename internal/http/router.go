package http

import (
	"log/slog"
	"time"

	"github.com/campusdesk/consulthub/internal/auth"
	"github.com/campusdesk/consulthub/internal/cache"
	"github.com/campusdesk/consulthub/internal/config"
	"github.com/campusdesk/consulthub/internal/domain/user"
	"github.com/campusdesk/consulthub/internal/http/handlers"
	"github.com/campusdesk/consulthub/internal/http/middlewares"
	"github.com/campusdesk/consulthub/internal/observability"
	"github.com/campusdesk/consulthub/internal/recipients"
	"github.com/campusdesk/consulthub/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config, store cache.Store, prom *observability.Prom) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(otelgin.Middleware("consulthub"))

	if prom != nil {
		r.Use(prom.GinHandleMiddleware())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := config.WithTimeout(1 * time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	consultationsRepo := postgres.NewConsultationsRepo(pool, prom)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL())
	authMW := middlewares.NewAuthMiddleware(jwtManager, usersRepo)

	resolver := recipients.NewFirstMatch(usersRepo)

	authHandler := handlers.NewAuthHandler(usersRepo, jwtManager)
	consultationsHandler := handlers.NewConsultationsHandler(consultationsRepo, resolver, store)

	r.POST("/auth/register", authHandler.Register)
	r.POST("/auth/login", authHandler.Login)

	authed := r.Group("/consultations", authMW.RequireAuth())

	authed.POST("", authMW.RequireRole(user.RoleStudent), consultationsHandler.Create)
	authed.POST("/teacher-broadcast", authMW.RequireRole(user.RoleStudent), consultationsHandler.BroadcastToTeachers)
	authed.GET("/mine", authMW.RequireRole(user.RoleStudent), consultationsHandler.ListMine)
	authed.GET("", authMW.RequireRole(user.RoleConsultant), consultationsHandler.ListAll)
	authed.GET("/teacher-mine", authMW.RequireRole(user.RoleTeacher), consultationsHandler.ListTeacherMine)
	authed.GET("/stats/mine", authMW.RequireRole(user.RoleStudent), consultationsHandler.StatsMine)
	authed.GET("/:id", consultationsHandler.GetByID)
	authed.PUT("/:id", authMW.RequireRole(user.RoleStudent), consultationsHandler.UpdateDetails)
	authed.DELETE("/:id", authMW.RequireRole(user.RoleStudent), consultationsHandler.Delete)
	authed.PUT("/:id/status", authMW.RequireRole(user.RoleConsultant, user.RoleTeacher), consultationsHandler.UpdateStatus)
	authed.PUT("/:id/status-reply", authMW.RequireRole(user.RoleConsultant, user.RoleTeacher), consultationsHandler.UpdateStatusReply)

	log.Info("router assembled", "routes", len(r.Routes()))

	return r
}
