package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/wire"
	"github.com/pandodao/sac-wallet/handler/hc"
	"github.com/tsenart/nap"
)

var serverSet = wire.NewSet(
	provideServer,
)

func provideServer(db *nap.DB) *http.Server {
	m := chi.NewMux()
	m.Use(middleware.RealIP)
	m.Use(middleware.Recoverer)

	m.Mount("/hc", hc.Handler(version, map[string]hc.Checker{
		"db": func(ctx context.Context) error {
			return db.Master().PingContext(ctx)
		},
	}))

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", opt.port),
		Handler: m,
	}
}
