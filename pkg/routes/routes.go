package routes

import (
	"context"
	"errors"
	"net/http"

	"NoticeBoard/internal/auth"
	"NoticeBoard/internal/bootstrap"
	"NoticeBoard/internal/config"
	"NoticeBoard/internal/notice"
	"NoticeBoard/internal/storage"
	"NoticeBoard/pkg/middleware"
	"NoticeBoard/pkg/validate"

	"github.com/casbin/casbin/v2"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// bodyLimit covers ten 10MB attachments plus form fields.
const bodyLimit = "110M"

var Module = fx.Module("noticeboard",
	fx.Provide(config.Load),
	fx.Provide(bootstrap.NewLogger),
	fx.Provide(config.NewMongoHandleWithLifecycle),
	fx.Provide(storage.NewCloudinary),
	fx.Provide(auth.NewAccountRepository),
	fx.Provide(auth.NewTokenIssuer),
	fx.Provide(auth.NewService),
	fx.Provide(auth.NewHandler),
	fx.Provide(notice.NewNoticeRepository),
	fx.Provide(notice.NewService),
	fx.Provide(notice.NewHandler),
	fx.Provide(middleware.NewEnforcer),
	fx.Provide(NewEchoServer),
	fx.Invoke(RegisterRoutes))

func NewEchoServer(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return ulid.Make().String() },
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				log.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "token"},
	}))
	e.Use(echomw.BodyLimit(bodyLimit))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Server running", zap.String("addr", cfg.Addr()))
			go func() {
				if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("Failed to start the server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down the server ...")
			return e.Shutdown(ctx)
		},
	})
	return e
}

func RegisterRoutes(e *echo.Echo, tokens *auth.TokenIssuer, enforcer *casbin.Enforcer, log *zap.Logger, authHandler *auth.Handler, noticeHandler *notice.Handler) {
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Notice board API is running"})
	})

	guard := []echo.MiddlewareFunc{middleware.JWT(tokens, log), middleware.RBAC(enforcer, log)}

	admin := e.Group("/admin")
	admin.POST("/signup", authHandler.Signup(auth.RoleAdmin))
	admin.POST("/signin", authHandler.Signin(auth.RoleAdmin))
	admin.POST("/notices", noticeHandler.Create, guard...)
	admin.PUT("/update-notices/:id", noticeHandler.Update, guard...)
	admin.DELETE("/delete-notices/:id", noticeHandler.Delete, guard...)
	admin.GET("/get-notices", noticeHandler.ListOwn, guard...)

	user := e.Group("/user")
	user.POST("/signup", authHandler.Signup(auth.RoleUser))
	user.POST("/signin", authHandler.Signin(auth.RoleUser))
	user.GET("/notices", noticeHandler.ListForDepartment, guard...)
}
