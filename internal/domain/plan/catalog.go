package plan

import (
	"fmt"
	"sort"
	"strings"
)

// Exception allows Higher to carry a smaller value than Lower for one quota.
// It covers that pair only; every other pair is still checked.
type Exception struct {
	Quota  Quota `json:"quota" yaml:"quota"`
	Lower  ID    `json:"lower" yaml:"lower"`
	Higher ID    `json:"higher" yaml:"higher"`
}

// Catalog is the validated, read-only table of plan definitions.
type Catalog struct {
	plans      []Definition
	index      map[ID]int
	aliases    map[string]ID
	exceptions []Exception
}

// NewCatalog validates the definitions and builds a catalog ordered by Info.Order.
func NewCatalog(defs []Definition, aliases map[string]ID, exceptions []Exception) (*Catalog, error) {
	plans := make([]Definition, 0, len(defs))
	seen := make(map[ID]bool, len(defs))
	orders := make(map[int]ID, len(defs))

	for _, d := range defs {
		if !d.ID.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, d.ID)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlan, d.ID)
		}
		if other, ok := orders[d.Info.Order]; ok {
			return nil, fmt.Errorf("%w: %s and %s share %d", ErrDuplicateOrder, other, d.ID, d.Info.Order)
		}
		for _, q := range AllQuotas {
			if v := d.Limits.Get(q); v < Unlimited {
				return nil, fmt.Errorf("%w: %s.%s = %d", ErrInvalidQuota, d.ID, q, v)
			}
		}
		seen[d.ID] = true
		orders[d.Info.Order] = d.ID
		plans = append(plans, cloneDefinition(d))
	}
	for _, id := range canonicalIDs {
		if !seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrMissingPlan, id)
		}
	}

	sort.Slice(plans, func(i, j int) bool {
		return plans[i].Info.Order < plans[j].Info.Order
	})

	c := &Catalog{
		plans:      plans,
		index:      make(map[ID]int, len(plans)),
		aliases:    make(map[string]ID, len(aliases)+len(plans)),
		exceptions: append([]Exception(nil), exceptions...),
	}
	for i, p := range plans {
		c.index[p.ID] = i
		c.aliases[string(p.ID)] = p.ID
	}
	for label, id := range aliases {
		if !id.IsValid() {
			return nil, fmt.Errorf("%w: %q -> %q", ErrInvalidAlias, label, id)
		}
		c.aliases[strings.ToLower(strings.TrimSpace(label))] = id
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustCatalog is like NewCatalog but panics on invalid input.
func MustCatalog(defs []Definition, aliases map[string]ID, exceptions []Exception) *Catalog {
	c, err := NewCatalog(defs, aliases, exceptions)
	if err != nil {
		panic(fmt.Sprintf("plan catalog: %v", err))
	}
	return c
}

func (c *Catalog) validate() error {
	for i := 1; i < len(c.plans); i++ {
		lower, higher := c.plans[i-1], c.plans[i]

		if higher.Info.PriceCents < lower.Info.PriceCents {
			return fmt.Errorf("%w: %s (%d) < %s (%d)", ErrPriceNotMonotonic,
				higher.ID, higher.Info.PriceCents, lower.ID, lower.Info.PriceCents)
		}

		for _, f := range AllFeatures {
			if lower.Features.Has(f) && !higher.Features.Has(f) {
				return fmt.Errorf("%w: %s on %s but not %s", ErrFeatureNotMonotonic, f, lower.ID, higher.ID)
			}
		}
	}

	if err := c.validateQuotas(); err != nil {
		return err
	}

	top := c.plans[len(c.plans)-1]
	for _, f := range AllFeatures {
		if !top.Features.Has(f) {
			return fmt.Errorf("%w: %s", ErrUnreachableFeature, f)
		}
	}
	return nil
}

// validateQuotas compares every pair of plans, not only neighbours.
func (c *Catalog) validateQuotas() error {
	for j := 1; j < len(c.plans); j++ {
		higher := c.plans[j]
		for i := 0; i < j; i++ {
			lower := c.plans[i]
			for _, q := range AllQuotas {
				if quotaLess(higher.Limits.Get(q), lower.Limits.Get(q)) && !c.isException(q, lower.ID, higher.ID) {
					return fmt.Errorf("%w: %s on %s is below %s", ErrQuotaNotMonotonic, q, higher.ID, lower.ID)
				}
			}
		}
	}
	return nil
}

func (c *Catalog) isException(q Quota, lower, higher ID) bool {
	for _, e := range c.exceptions {
		if e.Quota == q && e.Lower == lower && e.Higher == higher {
			return true
		}
	}
	return false
}

// Plans returns all definitions in ascending plan order.
func (c *Catalog) Plans() []Definition {
	out := make([]Definition, len(c.plans))
	for i, p := range c.plans {
		out[i] = cloneDefinition(p)
	}
	return out
}

// Exceptions returns the declared monotonicity exceptions.
func (c *Catalog) Exceptions() []Exception {
	return append([]Exception(nil), c.exceptions...)
}

func (c *Catalog) definition(id ID) Definition {
	if i, ok := c.index[id]; ok {
		return c.plans[i]
	}
	return c.plans[c.index[Default]]
}

// quotaLess reports a < b where Unlimited is greater than every finite value.
func quotaLess(a, b int64) bool {
	if a == b || a == Unlimited {
		return false
	}
	if b == Unlimited {
		return true
	}
	return a < b
}

func cloneDefinition(d Definition) Definition {
	if d.Info.Descriptions != nil {
		desc := make(map[string]string, len(d.Info.Descriptions))
		for k, v := range d.Info.Descriptions {
			desc[k] = v
		}
		d.Info.Descriptions = desc
	}
	if d.Info.ExportFormats != nil {
		d.Info.ExportFormats = append([]string(nil), d.Info.ExportFormats...)
	}
	return d
}
