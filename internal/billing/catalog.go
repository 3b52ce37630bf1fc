package billing

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"
)

// PlanSpec describes one purchasable tier within a plan family.
// A plan without a Stripe price id (the free tiers) cannot be checked out.
type PlanSpec struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	MonthlyPrice  decimal.Decimal `json:"monthly_price"`
	StripePriceID string          `json:"stripe_price_id"`
}

// Catalog holds the ordered plans of one family. Rank is the position in
// the configured order; each code maps to exactly one rank. The catalog is
// constructed from config and injected, never a package-level table.
type Catalog struct {
	mu     sync.RWMutex
	family string
	plans  []PlanSpec
	rank   map[string]int
}

type catalogFile struct {
	Families map[string][]PlanSpec `json:"families"`
}

// CatalogSet maps a plan family (affiliate, customer) to its catalog.
type CatalogSet map[string]*Catalog

func NewCatalog(family string, plans []PlanSpec) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, fmt.Errorf("plan family %q has no plans", family)
	}
	rank := make(map[string]int, len(plans))
	for i, p := range plans {
		if p.Code == "" {
			return nil, fmt.Errorf("plan family %q has a plan with an empty code", family)
		}
		if _, dup := rank[p.Code]; dup {
			return nil, fmt.Errorf("plan family %q has duplicate plan code %q", family, p.Code)
		}
		rank[p.Code] = i
	}
	return &Catalog{family: family, plans: plans, rank: rank}, nil
}

// LoadCatalogs reads the plan catalog file and builds one catalog per family.
func LoadCatalogs(path string) (CatalogSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan catalog: %w", err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse plan catalog: %w", err)
	}
	if len(file.Families) == 0 {
		return nil, fmt.Errorf("plan catalog %s defines no families", path)
	}

	set := make(CatalogSet, len(file.Families))
	for family, plans := range file.Families {
		catalog, err := NewCatalog(family, plans)
		if err != nil {
			return nil, err
		}
		set[family] = catalog
	}
	return set, nil
}

func (c *Catalog) Family() string { return c.family }

// Resolve returns the plan spec for a code, if the code is known.
func (c *Catalog) Resolve(code string) (PlanSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.rank[code]
	if !ok {
		return PlanSpec{}, false
	}
	return c.plans[i], true
}

// Rank returns the position of a plan code in the family's ordering.
func (c *Catalog) Rank(code string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.rank[code]
	return i, ok
}

// Base returns the family's entry tier (rank 0), assigned at registration.
func (c *Catalog) Base() PlanSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.plans[0]
}

// Plans returns a copy of the ordered plan list.
func (c *Catalog) Plans() []PlanSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]PlanSpec, len(c.plans))
	copy(out, c.plans)
	return out
}

// SetPriceID updates the Stripe price id for a plan at runtime.
func (c *Catalog) SetPriceID(code, priceID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.rank[code]
	if !ok {
		return false
	}
	c.plans[i].StripePriceID = priceID
	return true
}

// ValidateUpgrade accepts only a strict upgrade: the requested code must be
// known and rank strictly above the current one. Pure function, no side
// effects.
func (c *Catalog) ValidateUpgrade(currentCode, requestedCode string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	requested, ok := c.rank[requestedCode]
	if !ok {
		return ErrInvalidPlan
	}
	current, ok := c.rank[currentCode]
	if !ok {
		return ErrPlanNotFound
	}
	if requested <= current {
		return ErrDowngradeNotAllowed
	}
	return nil
}
