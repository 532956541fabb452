package payments

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Plan is a subscribable plan from static configuration
type Plan struct {
	Key             string
	StripePlanID    string
	Name            string
	Description     string
	Price           decimal.Decimal
	Currency        string
	Interval        string
	TrialPeriodDays int64
}

// PlanCatalog is the read-only set of configured plans
type PlanCatalog struct {
	plans      map[string]Plan
	byStripeID map[string]string
	keys       []string
}

// NewPlanCatalog indexes plans by key and by processor plan id
func NewPlanCatalog(plans []Plan) *PlanCatalog {
	c := &PlanCatalog{
		plans:      make(map[string]Plan, len(plans)),
		byStripeID: make(map[string]string, len(plans)),
	}
	for _, p := range plans {
		c.plans[p.Key] = p
		c.byStripeID[p.StripePlanID] = p.Key
		c.keys = append(c.keys, p.Key)
	}
	sort.Strings(c.keys)
	return c
}

// Get returns the plan stored under key
func (c *PlanCatalog) Get(key string) (Plan, bool) {
	p, ok := c.plans[key]
	return p, ok
}

// All returns every plan ordered by key
func (c *PlanCatalog) All() []Plan {
	out := make([]Plan, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.plans[k])
	}
	return out
}

// KeyForStripeID maps a processor plan id back to its catalog key.
// Unknown ids map to the empty string.
func (c *PlanCatalog) KeyForStripeID(stripePlanID string) string {
	return c.byStripeID[stripePlanID]
}
