package actions

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"idmcore/internal/identity/models"
	"idmcore/internal/webhook"
)

const ActionTriggerWebhook = "triggerWebhook"

// WebhookTrigger is satisfied by webhook.Processor.
type WebhookTrigger interface {
	Trigger(ctx context.Context, hook webhook.Webhook, params map[string]string) (*http.Response, error)
}

// EnableWebhooks registers triggerWebhook(url, method[, truststore]). Each
// matched entity is reported with its id, status and identities.
func (r *Registry) EnableWebhooks(trigger WebhookTrigger) {
	r.Register(ActionTriggerWebhook, func(_ EntityStore, params []string) (EntityAction, error) {
		return newTriggerWebhook(trigger, params)
	})
}

type triggerWebhook struct {
	trigger WebhookTrigger
	hook    webhook.Webhook
}

func newTriggerWebhook(trigger WebhookTrigger, params []string) (EntityAction, error) {
	if len(params) < 2 || len(params) > 3 {
		return nil, fmt.Errorf("%s takes a url, a method and an optional truststore", ActionTriggerWebhook)
	}
	method := webhook.Method(strings.ToUpper(params[1]))
	if method != webhook.MethodGet && method != webhook.MethodPost {
		return nil, fmt.Errorf("unsupported webhook method %q", params[1])
	}
	hook := webhook.Webhook{URL: params[0], Method: method}
	if len(params) == 3 {
		hook.TruststoreName = params[2]
	}
	return &triggerWebhook{trigger: trigger, hook: hook}, nil
}

func (a *triggerWebhook) Name() string { return ActionTriggerWebhook }

func (a *triggerWebhook) Invoke(ctx context.Context, entity *models.Entity) error {
	params := map[string]string{
		"entityId": entity.ID.String(),
		"status":   string(entity.Status),
	}
	for _, ident := range entity.Identities {
		params["identity."+ident.TypeID] = ident.Value
	}
	resp, err := a.trigger.Trigger(ctx, a.hook, params)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
