package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bookreviews/internal/api"
	"bookreviews/internal/audit"
	"bookreviews/internal/auth"
	"bookreviews/internal/books"
	"bookreviews/internal/health"
	synchub "bookreviews/internal/sync"
	"bookreviews/internal/users"
	"bookreviews/pkg/database"
	"bookreviews/pkg/logger"
	"bookreviews/pkg/utils"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	showEnv := flag.Bool("env", false, "print the supported environment variables and exit")
	flag.Parse()

	if *showEnv {
		fmt.Println(utils.Usage())
		return
	}

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		logger.New("info", "text").WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := database.MustOpen(ctx, cfg.Store.Database(), log)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.WithError(err).Warn("close store")
		}
	}()

	bookRepo := books.NewRepo(store)
	if err := bookRepo.EnsureIndexes(ctx, cfg.Store.BooksUniqueUserID); err != nil {
		log.WithError(err).Fatal("books indexes")
	}
	userRepo := users.NewRepo(store, auth.BcryptHasher{})
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Fatal("users indexes")
	}

	hub := synchub.NewHub(log.WithField("component", "sync"))
	router := api.NewRouter(api.Deps{
		Store:          store,
		Books:          bookRepo,
		Users:          userRepo,
		Hub:            hub,
		Log:            log,
		RequestTimeout: cfg.RequestTimeout,
		AuthEnabled:    cfg.Auth.Enabled,
		Tokens: auth.TokenService{
			Secret:   []byte(cfg.Auth.JWTSecret),
			Issuer:   cfg.Auth.JWTIssuer,
			Duration: cfg.Auth.JWTDuration,
		},
		LoginURL: cfg.Auth.LoginURL,
	})

	if cfg.AuditSchedule != "" {
		auditor := audit.New(bookRepo, userRepo, log.WithField("component", "audit"))
		c, err := auditor.Schedule(cfg.AuditSchedule)
		if err != nil {
			log.WithError(err).Fatal("audit schedule")
		}
		defer c.Stop()
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	var tcpSrv *synchub.Server
	if cfg.Sync.TCPAddr != "" {
		tcpSrv = synchub.NewServer(cfg.Sync.TCPAddr, hub)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tcpSrv.Run(); err != nil {
				errCh <- fmt.Errorf("tcp sync: %w", err)
			}
		}()
	}

	grpcCtx, stopGRPC := context.WithCancel(ctx)
	defer stopGRPC()
	if cfg.GRPCAddr != "" {
		checker := health.NewChecker(store, log.WithField("component", "health"))
		wg.Add(2)
		go func() {
			defer wg.Done()
			checker.Run(grpcCtx)
		}()
		go func() {
			defer wg.Done()
			if err := health.Serve(grpcCtx, cfg.GRPCAddr, checker); err != nil {
				errCh <- fmt.Errorf("grpc health: %w", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.WithField("addr", httpSrv.Addr).Info("http api listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.WithError(err).Error("server error")
	}

	log.Info("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if tcpSrv != nil {
		if err := tcpSrv.Close(); err != nil {
			log.WithError(err).Warn("tcp shutdown")
		}
	}
	stopGRPC()
	hub.CloseAll()

	wg.Wait()
	log.Info("servers stopped")
}
