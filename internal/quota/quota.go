// Package quota answers the status checks the core raises before actions
// that are limited on the free plan.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/notebase/internal/events"
)

// Plan names.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// Policy approves or denies status checks for the current plan.
type Policy struct {
	logger *slog.Logger

	mu   sync.RWMutex
	plan string
}

// New returns a policy for plan. An empty plan means PlanFree.
func New(plan string, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	if plan == "" {
		plan = PlanFree
	}
	return &Policy{plan: plan, logger: logger}
}

// Plan returns the current plan.
func (p *Policy) Plan() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.plan
}

// SetPlan switches the plan, e.g. after an upgrade.
func (p *Policy) SetPlan(plan string) {
	p.mu.Lock()
	p.plan = plan
	p.mu.Unlock()
}

// Register subscribes the policy to status checks on bus and returns the
// unsubscribe function.
func (p *Policy) Register(bus *events.Bus) func() {
	return bus.Subscribe(events.UserCheckStatus, p.Check)
}

// Check is the events.Handler for events.UserCheckStatus.
func (p *Policy) Check(_ context.Context, payload any) (bool, error) {
	check, ok := payload.(events.StatusCheck)
	if !ok {
		return false, fmt.Errorf("quota: unexpected payload %T", payload)
	}
	plan := p.Plan()
	allowed := plan == PlanPro || check.Kind != events.CheckNotebookAdd
	p.logger.Info("quota: status check",
		slog.String("kind", check.Kind),
		slog.Int("count", check.Count),
		slog.String("plan", plan),
		slog.Bool("allowed", allowed))
	return allowed, nil
}
