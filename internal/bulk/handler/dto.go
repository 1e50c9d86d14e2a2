package handler

import (
	"strings"
	"time"

	"idmcore/internal/bulk/models"
	"idmcore/internal/translation"
	id "idmcore/pkg/domain"
	"idmcore/pkg/validation"
)

func init() {
	validation.RegisterString("cron", "a valid cron expression", models.ValidCron)
}

type RuleRequest struct {
	ID               string   `json:"id" validate:"omitempty,max=128"`
	CronExpression   string   `json:"cronExpression" validate:"omitempty,max=128,cron"`
	Condition        string   `json:"condition" validate:"max=4096"`
	Action           string   `json:"action" validate:"required"`
	ActionParameters []string `json:"actionParameters"`
}

func (r *RuleRequest) Sanitize() {
	r.ID = strings.TrimSpace(r.ID)
	r.CronExpression = strings.TrimSpace(r.CronExpression)
	r.Action = strings.TrimSpace(r.Action)
}

func (r *RuleRequest) Validate() error {
	return validation.Validate(r)
}

func (r *RuleRequest) toRule(ruleID string) models.Rule {
	return models.Rule{
		ID:             id.RuleID(ruleID),
		CronExpression: r.CronExpression,
		Condition:      r.Condition,
		Action:         translation.ActionInvocation{Name: r.Action, Parameters: r.ActionParameters},
	}
}

type RuleView struct {
	ID               string    `json:"id"`
	CronExpression   string    `json:"cronExpression"`
	Condition        string    `json:"condition"`
	Action           string    `json:"action"`
	ActionParameters []string  `json:"actionParameters,omitempty"`
	ScheduledAt      time.Time `json:"scheduledAt"`
}

func toView(r models.ScheduledRule) RuleView {
	return RuleView{
		ID:               r.Rule.ID.String(),
		CronExpression:   r.Rule.CronExpression,
		Condition:        r.Rule.Condition,
		Action:           r.Rule.Action.Name,
		ActionParameters: r.Rule.Action.Parameters,
		ScheduledAt:      r.ScheduledAt,
	}
}
