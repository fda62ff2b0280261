// Package api assembles the HTTP surface: collection routes, login, health
// probes and the websocket change feed.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bookreviews/internal/auth"
	"bookreviews/internal/books"
	synchub "bookreviews/internal/sync"
	"bookreviews/internal/users"
	"bookreviews/pkg/database"
)

type Deps struct {
	Store database.Store
	Books *books.Repo
	Users *users.Repo
	Hub   *synchub.Hub
	Log   logrus.FieldLogger

	RequestTimeout time.Duration

	AuthEnabled bool
	Tokens      auth.TokenService
	LoginURL    string
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(d.Log))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", ready(d.Store, d.Hub))
	if d.Hub != nil {
		router.GET("/ws", synchub.WSHandler(d.Hub))
	}

	bookHandler := books.NewHandler(d.Books, d.Log)
	userHandler := users.NewHandler(d.Users, d.Log)
	bookHandler.Timeout = d.RequestTimeout
	userHandler.Timeout = d.RequestTimeout
	if d.Hub != nil {
		bookHandler.Events = d.Hub
		userHandler.Events = d.Hub
	}

	var gate gin.HandlerFunc
	if d.AuthEnabled {
		gate = auth.NewGate(d.Tokens, d.LoginURL, d.Log).Require()
		auth.NewHandler(d.Users, d.Tokens, d.Log).RegisterRoutes(router.Group("/auth"))
	}
	Register(router, Routes(bookHandler, userHandler), gate)

	return router
}

func ready(store database.Store, hub *synchub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var stats synchub.Stats
		if hub != nil {
			stats = hub.Stats()
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"store_error": err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"store":       "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	}
}
