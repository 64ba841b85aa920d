package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stijnblommerde/restaurant-menu/internal/config"
	"github.com/stijnblommerde/restaurant-menu/internal/middleware"
	"github.com/stijnblommerde/restaurant-menu/internal/models"
	"github.com/stijnblommerde/restaurant-menu/internal/service"
	"github.com/stijnblommerde/restaurant-menu/internal/storage"
)

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	accounts *service.AccountService
	avatars  *storage.AvatarStore
	db       *pgxpool.Pool
	cache    *redis.Client
}

// NewHandlerSet wires the HTTP surface. db and cache are only probed by
// the health endpoint and may be nil in tests.
func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, accounts *service.AccountService, avatars *storage.AvatarStore, db *pgxpool.Pool, cache *redis.Client) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		accounts: accounts,
		avatars:  avatars,
		db:       db,
		cache:    cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", h.RegisterAccount)
		auth.POST("/login", h.Login)
		auth.POST("/password/forgot", h.ForgotPassword)
		auth.POST("/password/reset", h.ResetPassword)

		session := v1.Group("/auth")
		session.Use(middleware.Auth(h.cfg, h.accounts))
		session.POST("/confirm", h.Confirm)
		session.POST("/confirm/resend", h.ResendConfirmation)
		session.POST("/password", h.UpdatePassword)
		session.POST("/email/change", h.RequestEmailChange)
		session.POST("/email/confirm", h.ConfirmEmailChange)

		account := v1.Group("/account")
		account.Use(middleware.Auth(h.cfg, h.accounts))
		account.GET("/me", h.Me)
		account.PUT("/profile", h.UpdateProfile)
		account.POST("/avatar", h.UploadAvatar)

		admin := v1.Group("/admin")
		admin.Use(
			middleware.Auth(h.cfg, h.accounts),
			middleware.RequirePermission(models.PermissionAdminister),
		)
		admin.GET("/users", h.AdminListUsers)
	}
}
