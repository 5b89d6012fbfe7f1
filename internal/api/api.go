package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	apiauth "github.com/quietdash/quietdash/internal/api/auth"
	"github.com/quietdash/quietdash/internal/api/handler"
	"github.com/quietdash/quietdash/internal/api/middleware"
	"github.com/quietdash/quietdash/internal/apikeys"
	"github.com/quietdash/quietdash/internal/auth"
	"github.com/quietdash/quietdash/internal/config"
	"github.com/quietdash/quietdash/internal/display"
	"github.com/quietdash/quietdash/internal/metrics"
	"github.com/quietdash/quietdash/internal/waitlist"
	"github.com/quietdash/quietdash/internal/widgets"
)

const shutdownTimeout = 10 * time.Second

// Services are the domain services exposed over HTTP.
type Services struct {
	Auth            *auth.Service
	APIKeys         *apikeys.Service
	Widgets         *widgets.Service
	Renderer        *display.Renderer
	DisplaySettings *display.SettingsService
	Waitlist        *waitlist.Service
}

type Server struct {
	cfg       *config.Config
	ginEngine *gin.Engine
	services  Services
}

func New(cfg *config.Config, services Services, debug bool) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	useJSONFieldNames()

	s := &Server{
		cfg:       cfg,
		ginEngine: gin.New(),
		services:  services,
	}
	// without this gin trusts X-Forwarded-For from every peer
	if err := s.ginEngine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// useJSONFieldNames makes binding errors report the json name of a field.
func useJSONFieldNames() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

func (s *Server) setupRoutes() error {
	corsHandler, err := middleware.CORS(s.cfg.CORSOrigins)
	if err != nil {
		return err
	}

	s.ginEngine.Use(
		gin.Recovery(),
		requestLogger(),
		metrics.Middleware(),
		corsHandler,
		// PNG is already compressed
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{"^/display/(image|preview)$"})),
	)

	s.ginEngine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.ginEngine.GET("/metrics", gin.WrapH(metrics.Handler()))

	requireAuth := apiauth.RequireAuth(s.services.Auth)

	authHandler := handler.NewAuth(s.services.Auth)
	authGroup := s.ginEngine.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", requireAuth, authHandler.Me)

	keyHandler := handler.NewAPIKeys(s.services.APIKeys)
	keys := s.ginEngine.Group("/api-keys", requireAuth)
	keys.POST("", keyHandler.Create)
	keys.GET("", keyHandler.List)
	keys.GET("/:id", keyHandler.Get)
	keys.PUT("/:id", keyHandler.Update)
	keys.DELETE("/:id", keyHandler.Delete)

	widgetHandler := handler.NewWidgets(s.services.Widgets)
	widgetGroup := s.ginEngine.Group("/widgets", requireAuth)
	widgetGroup.POST("", widgetHandler.Create)
	widgetGroup.GET("", widgetHandler.List)
	widgetGroup.GET("/:id", widgetHandler.Get)
	widgetGroup.PUT("/:id", widgetHandler.Update)
	widgetGroup.DELETE("/:id", widgetHandler.Delete)

	displayHandler := handler.NewDisplay(s.services.Renderer, s.services.DisplaySettings)
	displayGroup := s.ginEngine.Group("/display", requireAuth)
	displayGroup.GET("/image", displayHandler.Image)
	displayGroup.GET("/preview", displayHandler.Preview)
	displayGroup.GET("/settings", displayHandler.GetSettings)
	displayGroup.PUT("/settings", displayHandler.UpdateSettings)

	waitlistHandler := handler.NewWaitlist(s.services.Waitlist)
	waitlistGroup := s.ginEngine.Group("/waitlist")
	join := []gin.HandlerFunc{waitlistHandler.Join}
	if rpm := s.cfg.GetRequestsPerMinute(); rpm > 0 {
		burst := 1
		if s.cfg.RateLimit != nil {
			burst = s.cfg.RateLimit.Burst
		}
		join = append([]gin.HandlerFunc{middleware.NewRateLimiter(rpm, burst).Handler()}, join...)
	}
	waitlistGroup.POST("", join...)
	waitlistGroup.GET("/verify/:token", waitlistHandler.Verify)
	waitlistGroup.GET("/stats", waitlistHandler.Stats)
	waitlistGroup.GET("/referrals/:token", waitlistHandler.Referrals)
	return nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting API server", "listen", s.cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"ip", c.ClientIP(),
		)
	}
}
