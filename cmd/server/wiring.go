package main

import (
	"fmt"
	"log/slog"
	"time"

	"idmcore/internal/bulk/actions"
	bulkmetrics "idmcore/internal/bulk/metrics"
	"idmcore/internal/bulk/scheduler"
	"idmcore/internal/credential"
	"idmcore/internal/credential/otp"
	"idmcore/internal/credential/password"
	"idmcore/internal/credreset/captcha"
	resetmetrics "idmcore/internal/credreset/metrics"
	resetmodels "idmcore/internal/credreset/models"
	resetservice "idmcore/internal/credreset/service"
	resetstore "idmcore/internal/credreset/store"
	"idmcore/internal/credreset/token"
	enquirymetrics "idmcore/internal/enquiry/metrics"
	enquiryservice "idmcore/internal/enquiry/service"
	enquirystore "idmcore/internal/enquiry/store"
	formstore "idmcore/internal/forms/store"
	identitystore "idmcore/internal/identity/store"
	"idmcore/internal/notification"
	"idmcore/internal/oauth/authzctx"
	"idmcore/internal/oauth/workers/cleanup"
	"idmcore/internal/platform/config"
	"idmcore/internal/platform/tracer"
	"idmcore/internal/translation"
	"idmcore/internal/webhook"
	"idmcore/pkg/platform/audit"
	auditmetrics "idmcore/pkg/platform/audit/metrics"
	auditpublisher "idmcore/pkg/platform/audit/publisher"
	auditmemory "idmcore/pkg/platform/audit/store/memory"
	auditpostgres "idmcore/pkg/platform/audit/store/postgres"
)

const resetTokenIssuer = "idmcore"

// entityStore is everything the engine asks of the identity store. Both the
// Postgres and in-memory stores satisfy it.
type entityStore interface {
	enquiryservice.EntityStore
	credential.EntityStore
	actions.EntityStore
	scheduler.EntityLister
}

type app struct {
	enquiries      *enquiryservice.Service
	reset          *resetservice.Service
	otp            *otp.Verificator
	password       *password.Verificator
	scheduler      *scheduler.Scheduler
	authzCleanup   *cleanup.CleanupService
	auditPublisher *auditpublisher.Publisher
}

func buildApp(cfg config.Server, in *infra, log *slog.Logger) (*app, error) {
	a := &app{}

	var auditStore audit.Store = auditmemory.NewInMemoryStore()
	if in.db != nil {
		auditStore = auditpostgres.New(in.db.DB())
	}
	a.auditPublisher = auditpublisher.NewPublisher(auditStore,
		auditpublisher.WithAsyncBuffer(cfg.AuditBuffer),
		auditpublisher.WithMetrics(auditmetrics.New()),
		auditpublisher.WithPublisherLogger(log),
	)
	auditor := audit.NewLogger(log, a.auditPublisher)

	var sender notification.Sender = notification.NewLogSender(log)
	if in.producer != nil {
		sender = notification.NewKafkaSender(in.producer, cfg.NotificationTopic)
	}

	var entities entityStore = identitystore.NewInMemory()
	if in.db != nil {
		entities = identitystore.NewPostgres(in.db.DB())
	}

	credMetrics := credential.NewMetrics()
	a.password = password.New(password.TypeID, password.DefaultDefinition(), entities,
		password.WithLogger(log),
		password.WithMetrics(credMetrics),
	)
	otpVerificator, err := otp.New(otp.TypeID, otp.Definition{
		Issuer: cfg.OTP.Issuer,
		Params: otp.Params{
			CodeLength: cfg.OTP.CodeLength,
			Period:     int(cfg.OTP.Period / time.Second),
			Algorithm:  otp.HashAlgorithm(cfg.OTP.Algorithm),
		},
		AllowedDriftSteps: cfg.OTP.AllowedDriftSteps,
	}, entities,
		otp.WithLogger(log),
		otp.WithAuditor(auditor),
		otp.WithMetrics(credMetrics),
		otp.WithEntityLister(entities),
	)
	if err != nil {
		return nil, fmt.Errorf("otp credential: %w", err)
	}
	a.otp = otpVerificator
	credentials, err := credential.NewRegistry(a.password, a.otp)
	if err != nil {
		return nil, err
	}

	if a.enquiries, err = buildEnquiries(cfg, in, entities, credentials, sender, auditor, log); err != nil {
		return nil, err
	}
	if a.reset, err = buildReset(cfg, in, entities, a.password, sender, auditor, log); err != nil {
		return nil, err
	}
	if a.scheduler, err = buildScheduler(cfg, entities, auditor, log); err != nil {
		return nil, err
	}

	var authzStore authzctx.Store = authzctx.NewInMemoryStore()
	if in.redis != nil {
		authzStore = authzctx.NewRedisStore(in.redis.Client)
	}
	a.authzCleanup, err = cleanup.New(authzStore,
		cleanup.WithCleanupInterval(cfg.AuthzSweep),
		cleanup.WithCleanupLogger(log),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func buildEnquiries(cfg config.Server, in *infra, entities entityStore, credentials *credential.Registry,
	sender notification.Sender, auditor *audit.Logger, log *slog.Logger) (*enquiryservice.Service, error) {
	conditions, err := translation.NewConditions(translation.RequestVariables()...)
	if err != nil {
		return nil, fmt.Errorf("translation conditions: %w", err)
	}
	evaluator := translation.NewEvaluator(translation.NewRegistry(), conditions,
		translation.WithLogger(log),
		translation.WithMetrics(translation.NewMetrics()),
	)
	profiles, err := translation.LoadSystemProfiles(cfg.ProfileDir, translation.ProfileTypeEnquiry)
	if err != nil {
		return nil, err
	}

	var (
		tx        enquiryservice.Tx
		responses enquiryservice.ResponseStore
		forms     *formstore.SystemProfileResolver
	)
	if in.db != nil {
		responses = enquirystore.NewPostgres(in.db.DB())
		tx = newEnquiryPostgresTx(in.db.DB())
		forms = formstore.NewSystemProfileResolver(formstore.NewPostgres(in.db.DB()), profiles)
	} else {
		memResponses := enquirystore.NewInMemory()
		responses = memResponses
		tx = enquiryservice.NewShardedTx(enquiryservice.Stores{Responses: memResponses, Entities: entities})
		forms = formstore.NewSystemProfileResolver(formstore.NewInMemory(), profiles)
	}

	return enquiryservice.New(tx, responses, entities, forms, evaluator, credentials,
		enquiryservice.WithLogger(log),
		enquiryservice.WithMetrics(enquirymetrics.New()),
		enquiryservice.WithAuditor(auditor),
		enquiryservice.WithSender(sender),
		enquiryservice.WithTracer(tracer.NewOTel("enquiry")),
	), nil
}

func buildReset(cfg config.Server, in *infra, entities entityStore, pw *password.Verificator,
	sender notification.Sender, auditor *audit.Logger, log *slog.Logger) (*resetservice.Service, error) {
	settings, err := resetmodels.ParseSettings(cfg.Reset.SettingsJSON)
	if err != nil {
		return nil, fmt.Errorf("credential reset settings: %w", err)
	}

	var (
		sessions resetstore.SessionStore
		attempts resetstore.AttemptStore
	)
	if in.redis != nil {
		sessions = resetstore.NewRedisSessionStore(in.redis.Client)
		attempts = resetstore.NewRedisAttemptStore(in.redis.Client)
	} else {
		sessions = resetstore.NewInMemorySessionStore()
		attempts = resetstore.NewInMemoryAttemptStore()
	}

	verifier, err := buildCaptcha(cfg.Reset.Captcha, log)
	if err != nil {
		return nil, err
	}

	return resetservice.New(resetservice.Config{
		Settings:      settings,
		SessionTTL:    cfg.Reset.SessionTTL,
		MaxAttempts:   cfg.Reset.MaxAttempts,
		AttemptWindow: cfg.Reset.AttemptWindow,
	},
		sessions, attempts,
		token.NewSigner(cfg.Reset.TokenSigningKey, resetTokenIssuer, cfg.Reset.SessionTTL),
		entities, pw, verifier,
		resetservice.WithLogger(log),
		resetservice.WithMetrics(resetmetrics.New()),
		resetservice.WithAuditor(auditor),
		resetservice.WithSender(sender),
	), nil
}

// buildCaptcha falls back to refusing every captcha when no provider is set.
func buildCaptcha(cfg config.Captcha, log *slog.Logger) (resetservice.CaptchaVerifier, error) {
	if cfg.VerifyURL == "" {
		log.Warn("no captcha provider configured, credential reset cannot pass the identity step")
		return captcha.Unconfigured{}, nil
	}
	v, err := captcha.NewSiteVerify(cfg.VerifyURL, cfg.Secret,
		captcha.WithLogger(log),
		captcha.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("credential reset captcha: %w", err)
	}
	return v, nil
}

func buildScheduler(cfg config.Server, entities entityStore, auditor *audit.Logger, log *slog.Logger) (*scheduler.Scheduler, error) {
	conditions, err := translation.NewConditions(scheduler.EntityVariables()...)
	if err != nil {
		return nil, fmt.Errorf("bulk conditions: %w", err)
	}

	hookOpts, err := webhook.LoadTruststores(cfg.Webhook.Truststores, cfg.Webhook.Timeout)
	if err != nil {
		return nil, err
	}
	hooks := webhook.New(append(hookOpts,
		webhook.WithLogger(log),
		webhook.WithTimeout(cfg.Webhook.Timeout),
		webhook.WithRateLimit(cfg.Webhook.RatePerSec, cfg.Webhook.Burst),
	)...)

	registry := actions.NewRegistry(entities)
	registry.EnableWebhooks(hooks)

	m := bulkmetrics.New()
	runner := scheduler.NewRunner(entities, registry, conditions,
		scheduler.WithRunnerLogger(log),
		scheduler.WithRunnerMetrics(m),
		scheduler.WithRunnerAuditor(auditor),
		scheduler.WithRunnerTracer(tracer.NewOTel("bulk")),
	)
	return scheduler.New(runner, scheduler.WithLogger(log), scheduler.WithMetrics(m)), nil
}
