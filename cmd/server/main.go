package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/osamahabib5/chatapp-espressolab-osama/internal/app"
	"github.com/osamahabib5/chatapp-espressolab-osama/internal/chat"
	httpx "github.com/osamahabib5/chatapp-espressolab-osama/internal/http"
	"github.com/osamahabib5/chatapp-espressolab-osama/internal/store"
	"github.com/osamahabib5/chatapp-espressolab-osama/internal/ws"
	"github.com/osamahabib5/chatapp-espressolab-osama/pkg/auth"
	"github.com/osamahabib5/chatapp-espressolab-osama/pkg/mail"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.Env)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Postgres connection + migrations
	pg, err := store.NewPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("postgres connect", "err", err)
		log.Fatal(err)
	}
	defer pg.Close()
	if err := store.RunMigrations(ctx, pg, logger); err != nil {
		logger.Error("migrations", "err", err)
		log.Fatal(err)
	}

	// Redis-backed password-reset tokens
	tokens, err := store.NewResetTokens(ctx, cfg, logger)
	if err != nil {
		logger.Error("redis connect", "err", err)
		log.Fatal(err)
	}
	defer tokens.Close()

	mailer := mail.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, logger)

	// Broadcast core + websocket gateway. The gateway is the core's
	// dispatcher and the core is the gateway's event sink, so they are
	// linked in two steps.
	gateway := ws.NewGateway(logger, auth.New(cfg.JWTSecret))
	core := chat.NewRouter(logger, gateway, pg)
	gateway.Attach(core)

	// Prime the room-existence cache from the durable store.
	if rooms, err := pg.ListRooms(ctx); err != nil {
		logger.Warn("rooms.seed", "err", err)
	} else {
		seed := make([]chat.Room, 0, len(rooms))
		for _, r := range rooms {
			seed = append(seed, chat.Room{ID: r.ID, Name: r.Name, CreatedBy: r.CreatedBy, CreatedAt: r.CreatedAt})
		}
		core.SeedRooms(seed)
	}

	router := httpx.NewRouter(httpx.Deps{
		Config:  cfg,
		Log:     logger,
		DB:      pg,
		Tokens:  tokens,
		Mailer:  mailer,
		Core:    core,
		Gateway: gateway,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("server.shutdown.complete")
}
