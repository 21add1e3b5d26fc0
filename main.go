package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quickref/internal/api"
	"quickref/internal/config"
	"quickref/internal/service/ai"
	"quickref/internal/session"
	"quickref/internal/upload"
	"quickref/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("QUICKREF_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	log.Printf("session backend: %s\n", cfg.Session.Backend)
	store, err := session.Open(cfg)
	if err != nil {
		log.Fatalf("open session store: %v", err)
	}
	defer store.Close()

	spool, err := upload.NewSpool(cfg.Upload.SpoolDir, cfg.Upload.MaxFileBytes)
	if err != nil {
		log.Fatalf("init upload spool: %v", err)
	}

	aiService, err := ai.NewAiService(context.Background(), cfg)
	if err != nil {
		log.Fatalf("init ai service: %v", err)
	}
	provider, model := aiService.Model()
	log.Printf("provider: %s, model: %s\n", provider, model)

	dispatcher := worker.NewDispatcher(cfg.Worker.Workers, cfg.Worker.QueueSize, aiService)
	defer dispatcher.Stop()

	cleanCtx, cleanCancel := context.WithCancel(context.Background())
	defer cleanCancel()
	session.StartCleaner(cleanCtx, store, cfg.CleanInterval())
	spool.StartSweeper(cleanCtx, cfg.CleanInterval(), upload.DefaultStaleAfter)

	handlers := api.NewHandler(store, spool, dispatcher, cfg.Server.BaseURL, cfg.Upload.MaxFileBytes, cfg.Upload.MaxContextBytes)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}
	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("shutting down")

	// in-flight upstream calls may take up to the upstream timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.UpstreamTimeout()+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
