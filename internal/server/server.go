package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/neo/wordextremist_backend/internal/auth"
	"github.com/neo/wordextremist_backend/internal/bot"
	"github.com/neo/wordextremist_backend/internal/config"
	"github.com/neo/wordextremist_backend/internal/database"
	"github.com/neo/wordextremist_backend/internal/game"
	"github.com/neo/wordextremist_backend/internal/matchmaking"
	"github.com/neo/wordextremist_backend/internal/validator"
)

// Server wires the HTTP API, the game websocket, and all game services
type Server struct {
	router    *gin.Engine
	config    *config.Config
	db        database.DatabaseInterface
	auth      *auth.Auth
	registry  *game.Registry
	scheduler *game.Scheduler
	engine    *game.Engine
	pool      *matchmaking.Pool
	validator *validator.Validator
	bot       *bot.Policy
	conns     *connManager
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
	EnableCompression: true,
}

// NewServer assembles the server from its already-constructed services
func NewServer(cfg *config.Config, db database.DatabaseInterface, a *auth.Auth,
	registry *game.Registry, scheduler *game.Scheduler, engine *game.Engine,
	pool *matchmaking.Pool, v *validator.Validator, botPolicy *bot.Policy) *Server {

	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, HEAD")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	server := &Server{
		router:    router,
		config:    cfg,
		db:        db,
		auth:      a,
		registry:  registry,
		scheduler: scheduler,
		engine:    engine,
		pool:      pool,
		validator: v,
		bot:       botPolicy,
		conns:     newConnManager(),
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	authGroup := s.router.Group("/api/auth")
	{
		authGroup.POST("/register", s.registerHandler)
		authGroup.POST("/login", s.loginHandler)

		authGroup.Use(s.auth.AuthMiddleware())
		authGroup.GET("/me", s.meHandler)
	}

	mm := s.router.Group("/api/matchmaking")
	mm.Use(s.auth.AuthMiddleware())
	{
		mm.GET("/find", s.findMatchHandler)
		mm.POST("/cancel", s.cancelMatchHandler)
	}

	// Token rides the query string: browser websocket clients cannot set an
	// Authorization header on the upgrade request.
	s.router.GET("/ws/game/:game_id", s.handleGameWebSocket)

	s.router.GET("/api/status", s.statusHandler)
}

// Run starts the HTTP server on the configured port
func (s *Server) Run() error {
	return s.router.Run(":" + s.config.Port)
}

// statusHandler reports live counters for monitoring
func (s *Server) statusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"active_games": s.registry.Count(),
		"armed_timers": s.scheduler.ArmedCount(),
		"open_sockets": s.conns.count(),
		"queue_depths": s.pool.QueueDepths(),
		"validator": gin.H{
			"total_calls": s.validator.TotalCalls(),
			"cache_hits":  s.validator.CacheHits(),
		},
	})
}
