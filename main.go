package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pattaradanai/shopmate/agent/catalog"
	llmx "github.com/pattaradanai/shopmate/agent/llm"
	"github.com/pattaradanai/shopmate/agent/shopper"
	statex "github.com/pattaradanai/shopmate/agent/state"
	"github.com/pattaradanai/shopmate/agent/turn"
	configx "github.com/pattaradanai/shopmate/pkg/config"
	_ "github.com/pattaradanai/shopmate/pkg/logger/autoload"
	openrouterx "github.com/pattaradanai/shopmate/pkg/openrouter"
	"github.com/pattaradanai/shopmate/web"
)

type appConfig struct {
	// SessionTTL evicts idle sessions when > 0. The default keeps
	// sessions for the life of the process.
	SessionTTL time.Duration `split_words:"true" default:"0"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[appConfig]("APP")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	srvCfg := configx.MustNew[web.Config]("SERVER")

	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid llm config")
	}
	orCfg := llmCfg.OpenRouter()

	// Fail fast on bad credentials or an unknown model.
	if client := openrouterx.NewClient(orCfg); client != nil {
		if err := openrouterx.Verify(ctx, client, orCfg.Model); err != nil {
			log.Fatal().Err(err).Str("model", orCfg.Model).Msg("openrouter verification failed")
		}
		log.Info().Str("model", orCfg.Model).Msg("openrouter verified")
	}

	cat := catalog.Default()
	shop, err := shopper.New(ctx, &orCfg, cat)
	if err != nil {
		log.Fatal().Err(err).Msg("build shopper agent")
	}

	var storeOpts []statex.StoreOption
	if appCfg.SessionTTL > 0 {
		storeOpts = append(storeOpts, statex.WithTTL(appCfg.SessionTTL))
	}
	store := statex.NewMemoryStore(storeOpts...)
	store.StartSweeper(ctx, 0)

	coord, err := turn.New(store, shop)
	if err != nil {
		log.Fatal().Err(err).Msg("build turn coordinator")
	}

	handler, err := web.NewHandler(coord)
	if err != nil {
		log.Fatal().Err(err).Msg("build web handler")
	}

	srv := &http.Server{
		Addr:         srvCfg.Addr(),
		Handler:      handler.Routes(),
		ReadTimeout:  srvCfg.ReadTimeout,
		WriteTimeout: srvCfg.WriteTimeout,
		IdleTimeout:  srvCfg.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	stop()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}
