// Command nemseer-api serves read only nemseer endpoints over HTTP
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nemseer/internal/platform/config"
	"nemseer/internal/platform/logger"
	phttp "nemseer/internal/platform/net/http"
	"nemseer/internal/platform/net/middleware"
	"nemseer/internal/services/api"
	"nemseer/pkg/nemseer"
)

func main() {
	// a missing .env is fine
	_ = godotenv.Load()
	logger.Init(logger.FromEnv())
	l := logger.Named("nemseer-api")

	root := config.New()
	apiCfg := root.Prefix("NEMSEER_")

	client := nemseer.New(nemseer.FromConfig(root), nemseer.WithLogger(logger.Named("nemseer")))

	srv := phttp.NewServer(apiCfg)
	api.Mount(srv.Router(), api.Options{
		Client: client,
		Logger: l,
		CORS: middleware.CORSOptions{
			AllowedOrigins: apiCfg.MayCSV("CORS_ORIGINS", nil),
		},
		SlowRequest:    apiCfg.MayDuration("SLOW_REQUEST", 5*time.Second),
		EnableProfiler: apiCfg.MayBool("PROFILER", false),
		StartedAt:      time.Now(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, 10*time.Second); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
