// Package api mounts the read only nemseer HTTP API
package api

import (
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"nemseer/internal/core/forecast"
	"nemseer/internal/core/query"
	"nemseer/internal/platform/logger"
	phttp "nemseer/internal/platform/net/http"
	"nemseer/internal/platform/net/http/bind"
	"nemseer/internal/platform/net/middleware"
	apihttp "nemseer/internal/services/api/http"
	"nemseer/pkg/nemseer"
)

// Options are the API options
type Options struct {
	Client         *nemseer.Client
	Logger         *logger.Logger
	CORS           middleware.CORSOptions
	SlowRequest    time.Duration
	EnableProfiler bool
	StartedAt      time.Time
}

var registerOnce sync.Once

// RegisterValidations adds the nemdatetime and forecast_type tags to the shared validator
func RegisterValidations() {
	registerOnce.Do(func() {
		_ = bind.RegisterValidation("nemdatetime", "{0} should be provided as yyyy/mm/dd HH:MM",
			func(fl validator.FieldLevel) bool {
				_, err := query.ParseDatetime(fl.Field().String())
				return err == nil
			})
		_ = bind.RegisterValidation("forecast_type", "{0} must be one of "+forecast.Names(),
			func(fl validator.FieldLevel) bool {
				_, ok := forecast.Parse(fl.Field().String())
				return ok
			})
	})
}

// Mount mounts the API onto r
func Mount(r phttp.Router, opt Options) {
	RegisterValidations()
	if opt.StartedAt.IsZero() {
		opt.StartedAt = time.Now()
	}
	r.Use(middleware.Defaults(opt.SlowRequest, opt.CORS)...)

	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
	apihttp.Register(r, apihttp.Deps{
		Client:    opt.Client,
		Log:       logger.Or(opt.Logger, "api"),
		StartedAt: opt.StartedAt,
	})
}
