// Package domain contains core business types and interfaces.
//
// This file defines subscription plans and the registry that resolves a plan
// name to its limits.
package domain

import (
	"sort"
	"strings"
)

// QuotaKind identifies which plan limit is being checked.
type QuotaKind string

const (
	QuotaFeeds    QuotaKind = "feeds"
	QuotaEpisodes QuotaKind = "episodes"
	QuotaStorage  QuotaKind = "storage"
)

// MB is the unit plan storage ceilings are expressed in.
const MB int64 = 1024 * 1024

// Known plan names.
const (
	PlanFree     = "FREE"
	PlanStarter  = "STARTER"
	PlanPro      = "PRO"
	PlanBusiness = "BUSINESS"
)

// PlanLimits bounds what an account on a plan may create.
// A nil field means the dimension is unlimited.
type PlanLimits struct {
	MaxFeeds           *int64 `json:"maxFeeds"`
	MaxEpisodesPerFeed *int64 `json:"maxEpisodesPerFeed"`
	MaxStorageMB       *int64 `json:"maxStorageMB"`
}

// Limit returns a pointer to n for use in PlanLimits literals.
func Limit(n int64) *int64 {
	return &n
}

// MaxStorageBytes returns the storage ceiling in bytes and whether one applies.
func (l PlanLimits) MaxStorageBytes() (int64, bool) {
	if l.MaxStorageMB == nil {
		return 0, false
	}
	return *l.MaxStorageMB * MB, true
}

// DefaultPlans returns the standard plan table.
func DefaultPlans() map[string]PlanLimits {
	return map[string]PlanLimits{
		PlanFree:     {MaxFeeds: Limit(1), MaxEpisodesPerFeed: Limit(10), MaxStorageMB: Limit(200)},
		PlanStarter:  {MaxFeeds: Limit(5), MaxEpisodesPerFeed: Limit(200), MaxStorageMB: Limit(5000)},
		PlanPro:      {MaxFeeds: Limit(20), MaxEpisodesPerFeed: Limit(1000), MaxStorageMB: Limit(50000)},
		PlanBusiness: {},
	}
}

// PlanRegistry resolves plan names to limits. It is immutable after creation.
type PlanRegistry struct {
	plans       map[string]PlanLimits
	defaultPlan string
}

// NewPlanRegistry creates a registry from a plan table. Names are upper-cased.
// defaultPlan is the tier unknown names fall back to; it must be in plans.
func NewPlanRegistry(plans map[string]PlanLimits, defaultPlan string) *PlanRegistry {
	m := make(map[string]PlanLimits, len(plans))
	for name, limits := range plans {
		m[NormalizePlan(name)] = limits
	}
	return &PlanRegistry{
		plans:       m,
		defaultPlan: NormalizePlan(defaultPlan),
	}
}

// NewDefaultPlanRegistry returns the registry for DefaultPlans with FREE as fallback.
func NewDefaultPlanRegistry() *PlanRegistry {
	return NewPlanRegistry(DefaultPlans(), PlanFree)
}

// NormalizePlan trims and upper-cases a plan name.
func NormalizePlan(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// LimitsFor returns the limits for a plan. Unknown names resolve to the
// default plan rather than failing, so a typo never grants unlimited access.
func (r *PlanRegistry) LimitsFor(name string) PlanLimits {
	if limits, ok := r.plans[NormalizePlan(name)]; ok {
		return limits
	}
	return r.plans[r.defaultPlan]
}

// Lookup returns the canonical plan name and whether it is known.
// Account creation uses this to reject unknown plans outright.
func (r *PlanRegistry) Lookup(name string) (string, bool) {
	n := NormalizePlan(name)
	if n == "" {
		n = r.defaultPlan
	}
	_, ok := r.plans[n]
	return n, ok
}

// Default returns the fallback plan name.
func (r *PlanRegistry) Default() string {
	return r.defaultPlan
}

// Names returns the known plan names in sorted order.
func (r *PlanRegistry) Names() []string {
	names := make([]string, 0, len(r.plans))
	for name := range r.plans {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
