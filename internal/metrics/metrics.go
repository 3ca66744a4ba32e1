package metrics

import "sync/atomic"

type Counters struct {
	drinksCreatedTotal atomic.Uint64
	drinksUpdatedTotal atomic.Uint64
	drinksDeletedTotal atomic.Uint64
	writeFailuresTotal atomic.Uint64
	authDeniedTotal    atomic.Uint64
	authForbiddenTotal atomic.Uint64
	rateLimitedTotal   atomic.Uint64
}

func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) IncDrinksCreated() {
	c.drinksCreatedTotal.Add(1)
}

func (c *Counters) IncDrinksUpdated() {
	c.drinksUpdatedTotal.Add(1)
}

func (c *Counters) IncDrinksDeleted() {
	c.drinksDeletedTotal.Add(1)
}

func (c *Counters) IncWriteFailures() {
	c.writeFailuresTotal.Add(1)
}

// IncAuthDenied counts rejected credentials (400 and 401 outcomes).
func (c *Counters) IncAuthDenied() {
	c.authDeniedTotal.Add(1)
}

func (c *Counters) IncAuthForbidden() {
	c.authForbiddenTotal.Add(1)
}

func (c *Counters) IncRateLimited() {
	c.rateLimitedTotal.Add(1)
}

func (c *Counters) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"drinks_created_total": c.drinksCreatedTotal.Load(),
		"drinks_updated_total": c.drinksUpdatedTotal.Load(),
		"drinks_deleted_total": c.drinksDeletedTotal.Load(),
		"write_failures_total": c.writeFailuresTotal.Load(),
		"auth_denied_total":    c.authDeniedTotal.Load(),
		"auth_forbidden_total": c.authForbiddenTotal.Load(),
		"rate_limited_total":   c.rateLimitedTotal.Load(),
	}
}
