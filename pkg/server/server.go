// Package server exposes the query surface over HTTP. Every operation
// goes through a single POST /graphql endpoint; the caller's identity
// is derived from the Authorization header before dispatch.
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/JacobArthurs/ecommerce-api/pkg/auth"
	"github.com/JacobArthurs/ecommerce-api/pkg/config"
	"github.com/JacobArthurs/ecommerce-api/pkg/graph"
)

type Server struct {
	config     *config.Config
	dispatcher *graph.Dispatcher
	tokens     *auth.TokenManager
	logger     *zap.Logger
	router     *gin.Engine
}

func NewServer(cfg *config.Config, dispatcher *graph.Dispatcher, tokens *auth.TokenManager, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	s := &Server{
		config:     cfg,
		dispatcher: dispatcher,
		tokens:     tokens,
		logger:     logger,
		router:     router,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.router.POST("/graphql", s.identityMiddleware(), s.handleGraph)
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.Info("Server starting", zap.String("address", addr))
	return s.router.Run(addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

const identityKey = "identity"

// identityMiddleware resolves the Authorization header to an identity.
// A missing, malformed or invalid token leaves the caller anonymous;
// the operations themselves decide whether anonymity is acceptable.
func (s *Server) identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 {
			c.Next()
			return
		}
		scheme := strings.ToUpper(parts[0])
		if scheme != "JWT" && scheme != "BEARER" {
			c.Next()
			return
		}

		claims, err := s.tokens.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			c.Next()
			return
		}

		c.Set(identityKey, &auth.Identity{
			UserID:   claims.UserID,
			Username: claims.Username,
			Groups:   claims.Groups,
		})
		c.Next()
	}
}

func callerFrom(c *gin.Context) *auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, ok := v.(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}

func (s *Server) handleGraph(c *gin.Context) {
	var req graph.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, graph.Response{
			Errors: []graph.Error{{Message: "Invalid request body."}},
		})
		return
	}

	resp := s.dispatcher.Dispatch(c.Request.Context(), callerFrom(c), &req)
	c.JSON(http.StatusOK, resp)
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
