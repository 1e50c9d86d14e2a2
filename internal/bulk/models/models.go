// Package models holds scheduled bulk processing rules.
package models

import (
	"slices"
	"time"

	"github.com/robfig/cron/v3"

	"idmcore/internal/translation"
	id "idmcore/pkg/domain"
)

// CronParser accepts five or six field expressions and descriptors such
// as @daily.
var CronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidCron reports whether expr parses with CronParser.
func ValidCron(expr string) bool {
	_, err := CronParser.Parse(expr)
	return err == nil
}

// Rule runs Action on every entity matching Condition, on the cron
// schedule in CronExpression. An empty CronExpression means run once now.
type Rule struct {
	ID             id.RuleID                    `json:"id"`
	CronExpression string                       `json:"cronExpression,omitempty"`
	Condition      string                       `json:"condition"`
	Action         translation.ActionInvocation `json:"action"`
}

// Snapshot copies the rule so a scheduled job never sees later edits.
func (r Rule) Snapshot() Rule {
	r.Action.Parameters = slices.Clone(r.Action.Parameters)
	return r
}

// ScheduledRule is a rule together with the time it was scheduled.
type ScheduledRule struct {
	Rule        Rule      `json:"rule"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

// RunResult counts what one execution did.
type RunResult struct {
	RuleID    id.RuleID
	Evaluated int
	Matched   int
	Failed    int
}
