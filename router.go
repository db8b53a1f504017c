package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/ahtungko/aicbot/pkg/config"
	"github.com/ahtungko/aicbot/pkg/handler"
	"github.com/ahtungko/aicbot/pkg/manus"
	"github.com/ahtungko/aicbot/pkg/repository"
	"github.com/ahtungko/aicbot/pkg/service"
	"github.com/ahtungko/aicbot/pkg/utils"
)

type Server struct {
	ginEngine *gin.Engine
	cfg       *config.AppConfig
	logger    *slog.Logger
	port      int
}

func NewServer(cfg *config.AppConfig, gdb *gorm.DB) *Server {
	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery())
	ginEngine.Use(requestLogger())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "Cache-Control"}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	ginEngine.Use(cors.New(corsCfg))

	ginEngine.Use(rateLimitMiddleware(rate.Limit(10), 30))
	ginEngine.Use(handler.IdentityMiddleware())

	server := &Server{
		ginEngine: ginEngine,
		cfg:       cfg,
		logger:    utils.GetLogger(),
	}

	server.SetupRoutes(gdb)

	return server
}

// requestLogger logs each request with method, path, status and latency.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).Round(time.Millisecond),
			"client_ip", c.ClientIP())
	}
}

// rateLimitMiddleware enforces a per-client-IP token bucket. Idle buckets are
// swept periodically so the map doesn't grow without bound.
func rateLimitMiddleware(limit rate.Limit, burst int) gin.HandlerFunc {
	type bucket struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		buckets = make(map[string]*bucket)
	)

	go func() {
		for range time.Tick(5 * time.Minute) {
			mu.Lock()
			for ip, b := range buckets {
				if time.Since(b.lastSeen) > 10*time.Minute {
					delete(buckets, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		b, ok := buckets[ip]
		if !ok {
			b = &bucket{limiter: rate.NewLimiter(limit, burst)}
			buckets[ip] = b
		}
		b.lastSeen = time.Now()
		mu.Unlock()

		if !b.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) SetupRoutes(gdb *gorm.DB) {
	repo := repository.NewGormConversationRepository(gdb)
	conversationService := service.NewConversationService(repo)
	modelService := service.NewModelService()
	provider := manus.NewClient(s.cfg.ManusAPIKey(), s.cfg.ManusBaseURL())
	chatService := service.NewChatService(provider, conversationService)

	chatHandler := handler.NewChatHandler(chatService, conversationService)
	conversationHandler := handler.NewConversationHandler(conversationService)
	modelHandler := handler.NewModelHandler(modelService)
	healthHandler := handler.NewHealthHandler(chatService)

	s.ginEngine.GET("/health", healthHandler.HandleHealth)

	apiGroup := s.ginEngine.Group("/api")
	apiGroup.GET("", handler.HandleIndex)
	apiGroup.GET("/health/manus", healthHandler.HandleManusHealth)

	apiGroup.POST("/chat", chatHandler.HandleChat)
	apiGroup.POST("/chat/completion", chatHandler.HandleChatCompletion)

	apiGroup.GET("/conversations", conversationHandler.HandleList)
	apiGroup.POST("/conversations", conversationHandler.HandleCreate)
	apiGroup.GET("/conversations/stats", conversationHandler.HandleStats)
	apiGroup.POST("/conversations/prune", conversationHandler.HandlePrune)
	apiGroup.POST("/conversations/reset", conversationHandler.HandleReset)
	apiGroup.GET("/conversations/:id", conversationHandler.HandleGet)
	apiGroup.PUT("/conversations/:id", conversationHandler.HandleUpdate)
	apiGroup.DELETE("/conversations/:id", conversationHandler.HandleDelete)
	apiGroup.GET("/conversations/:id/messages", conversationHandler.HandleMessages)

	apiGroup.GET("/models", modelHandler.HandleList)
	apiGroup.GET("/models/:id", modelHandler.HandleGet)
	apiGroup.GET("/models/:id/settings", modelHandler.HandleDefaultSettings)
}

func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host(), s.cfg.Port())
	srv := &http.Server{Addr: addr, Handler: s.ginEngine}

	// Listen first so a busy port fails immediately.
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}

	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ln)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("server listening", "addr", addr)

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	default:
	}
	return nil
}
