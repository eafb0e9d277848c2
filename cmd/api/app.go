package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/yash9140/GigFlow/api"
	"github.com/yash9140/GigFlow/auth"
	"github.com/yash9140/GigFlow/bid"
	"github.com/yash9140/GigFlow/config"
	"github.com/yash9140/GigFlow/db"
	"github.com/yash9140/GigFlow/gig"
	"github.com/yash9140/GigFlow/hire"
	"github.com/yash9140/GigFlow/metrics"
	"github.com/yash9140/GigFlow/notify"
)

type app struct {
	router  *gin.Engine
	hire    *hire.Service
	gateway *notify.Gateway
	metrics *metrics.Manager
}

func dbSettings(cfg *config.Config) db.Settings {
	return db.Settings{
		DSN:             cfg.DB.DSN,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: cfg.DB.MaxConnLifetime,
		MaxConnIdleTime: cfg.DB.MaxConnIdleTime,
	}
}

// buildApp wires repositories, services and the HTTP surface onto pool.
func buildApp(cfg *config.Config, pool *pgxpool.Pool, log zerolog.Logger) *app {
	m := metrics.NewManager()

	authService := auth.NewService(auth.NewRepository(pool), cfg.Auth.JWTSecret).
		WithTokenTTL(cfg.Auth.TokenTTL)

	gigRepo := gig.NewRepository(pool)
	gigService := gig.NewService(gigRepo)
	bidService := bid.NewService(bid.NewRepository(pool), gigRepo)

	directory := notify.NewDirectory()
	gateway := notify.NewGateway(directory, notify.GatewayOptions{
		WriteTimeout:   cfg.WS.WriteTimeout,
		PingInterval:   cfg.WS.PingInterval,
		AllowedOrigins: cfg.CORSOrigins,
	}, log).WithRecorder(m)

	hireService := hire.NewService(hire.NewPGStore(pool), directory, gateway, log).
		WithMaxAttempts(cfg.Hire.MaxAttempts).
		WithPushTimeout(cfg.Hire.PushTimeout).
		WithMetrics(m)

	var pinger api.Pinger
	if pool != nil {
		pinger = pool
	}

	server := api.NewServer(api.Deps{
		Auth:    authService,
		Gigs:    gigService,
		Bids:    bidService,
		Hire:    hireService,
		Live:    gateway,
		DB:      pinger,
		Metrics: m,
		Log:     log,
	}, api.Options{
		CookieName:   cfg.Auth.CookieName,
		SecureCookie: cfg.IsProduction(),
		TokenTTL:     cfg.Auth.TokenTTL,
		CORSOrigins:  cfg.CORSOrigins,
		ReleaseMode:  cfg.IsProduction(),
	})

	return &app{
		router:  server.Router(),
		hire:    hireService,
		gateway: gateway,
		metrics: m,
	}
}
