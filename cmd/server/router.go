package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	bulkhandler "idmcore/internal/bulk/handler"
	credentialhandler "idmcore/internal/credential/handler"
	resethandler "idmcore/internal/credreset/handler"
	enquiryhandler "idmcore/internal/enquiry/handler"
	"idmcore/internal/platform/config"
	"idmcore/internal/platform/health"
	audithandler "idmcore/pkg/platform/audit/handler"
	"idmcore/pkg/platform/middleware/admin"
	"idmcore/pkg/platform/middleware/metadata"
	"idmcore/pkg/platform/middleware/request"
	"idmcore/pkg/platform/middleware/requesttime"
)

const healthCheckTimeout = 2 * time.Second

func newRouter(cfg config.Server, in *infra, a *app, log *slog.Logger) http.Handler {
	trusted, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Warn("ignoring invalid trusted proxies", "error", err)
		trusted = nil
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(metadata.New(trusted...).Handler)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(log))
	r.Use(request.Instrument(request.NewMetrics()))
	r.Use(request.BodyLimit(request.DefaultBodyLimit))
	r.Use(request.ContentTypeJSON)

	registerHealth(r, cfg, in)
	r.Handle("/metrics", promhttp.Handler())

	resethandler.New(a.reset, log).Register(r)
	credentialhandler.New("/otp/verify", a.otp, log).Register(r)
	credentialhandler.New("/password/verify", a.password, log).Register(r)

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(cfg.AdminToken, log))
		enquiryhandler.New(a.enquiries, log).Register(r)
		bulkhandler.New(a.scheduler, log).Register(r)
		audithandler.New(a.auditPublisher, log).Register(r)
		credentialhandler.NewDefinition(a.otp, log).Register(r)
	})
	return r
}

func registerHealth(r chi.Router, cfg config.Server, in *infra) {
	h := health.New(cfg.Environment).WithTimeout(healthCheckTimeout)
	if in.db != nil {
		h.RegisterCheck("postgres", in.db.Health)
	}
	if in.redis != nil {
		h.RegisterCheck("redis", in.redis.Health)
	}
	if in.producer != nil {
		h.RegisterCheck("kafka", func(ctx context.Context) error {
			if !in.producer.Healthy(ctx) {
				return errors.New("no reachable broker")
			}
			return nil
		})
	}
	h.Register(r)
}
