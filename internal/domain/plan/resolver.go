package plan

import "strings"

// billingSuffixes are stripped from labels before alias lookup.
var billingSuffixes = []string{
	"_monthly", "-monthly",
	"_yearly", "-yearly",
	"_annual", "-annual",
}

// Resolver answers entitlement questions against a catalog.
// All methods are total: unknown input degrades to the lowest tier, never an error.
type Resolver struct {
	catalog *Catalog
}

// NewResolver creates a resolver over the given catalog.
func NewResolver(catalog *Catalog) *Resolver {
	if catalog == nil {
		catalog = Builtin()
	}
	return &Resolver{catalog: catalog}
}

// Catalog returns the underlying catalog.
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// Normalize maps any raw plan label to a canonical plan.
func (r *Resolver) Normalize(raw string) ID {
	id, _ := r.NormalizeLabel(raw)
	return id
}

// NormalizeLabel is Normalize that also reports whether the label was recognized.
func (r *Resolver) NormalizeLabel(raw string) (ID, bool) {
	label := strings.ToLower(strings.TrimSpace(raw))
	for _, suffix := range billingSuffixes {
		if trimmed, ok := strings.CutSuffix(label, suffix); ok {
			label = trimmed
			break
		}
	}
	if id, ok := r.catalog.aliases[label]; ok {
		return id, true
	}
	return Default, false
}

// LimitsOf returns the quotas of a plan.
func (r *Resolver) LimitsOf(id ID) Limits {
	return r.catalog.definition(id).Limits
}

// FeaturesOf returns the feature flags of a plan.
func (r *Resolver) FeaturesOf(id ID) Features {
	return r.catalog.definition(id).Features
}

// InfoOf returns the presentational metadata of a plan.
func (r *Resolver) InfoOf(id ID) Info {
	return cloneDefinition(r.catalog.definition(id)).Info
}

// DefinitionOf returns the full catalog entry of a plan.
func (r *Resolver) DefinitionOf(id ID) Definition {
	return cloneDefinition(r.catalog.definition(id))
}

// IsUnlimited reports whether the quota has no upper bound on the plan.
func (r *Resolver) IsUnlimited(id ID, q Quota) bool {
	return r.LimitsOf(id).IsUnlimited(q)
}

// Compare returns -1, 0 or 1 as a is below, equal to or above b in plan order.
func (r *Resolver) Compare(a, b ID) int {
	ra, rb := r.rank(a), r.rank(b)
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	}
	return 0
}

// MinimumPlanFor returns the lowest plan that enables the feature.
// Falls back to the top tier when no plan enables it.
func (r *Resolver) MinimumPlanFor(feature Feature) ID {
	for _, p := range r.catalog.plans {
		if p.Features.Has(feature) {
			return p.ID
		}
	}
	return r.Highest()
}

// Plans returns the plan identifiers in ascending order.
func (r *Resolver) Plans() []ID {
	out := make([]ID, len(r.catalog.plans))
	for i, p := range r.catalog.plans {
		out[i] = p.ID
	}
	return out
}

// Lowest returns the first plan in order.
func (r *Resolver) Lowest() ID {
	return r.catalog.plans[0].ID
}

// Highest returns the last plan in order.
func (r *Resolver) Highest() ID {
	return r.catalog.plans[len(r.catalog.plans)-1].ID
}

// IsLowest reports whether the plan is the bottom tier.
func (r *Resolver) IsLowest(id ID) bool {
	return r.rank(id) == 0
}

// Next returns the plan directly above id, or id itself for the top tier.
func (r *Resolver) Next(id ID) ID {
	i := r.rank(id)
	if i+1 < len(r.catalog.plans) {
		return r.catalog.plans[i+1].ID
	}
	return r.catalog.plans[i].ID
}

// Above returns every plan strictly above id in ascending order.
func (r *Resolver) Above(id ID) []ID {
	i := r.rank(id)
	out := make([]ID, 0, len(r.catalog.plans)-i-1)
	for _, p := range r.catalog.plans[i+1:] {
		out = append(out, p.ID)
	}
	return out
}

// rank returns the position of id, treating unknown identifiers as the default plan.
func (r *Resolver) rank(id ID) int {
	if i, ok := r.catalog.index[id]; ok {
		return i
	}
	return r.catalog.index[Default]
}

// ParseFeature validates an externally supplied feature name.
func ParseFeature(s string) (Feature, error) {
	f := Feature(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", ErrUnknownFeature
	}
	return f, nil
}

// ParseQuota validates an externally supplied quota name.
func ParseQuota(s string) (Quota, error) {
	q := Quota(strings.ToLower(strings.TrimSpace(s)))
	if !q.IsValid() {
		return "", ErrUnknownQuota
	}
	return q, nil
}

// QuotaLess reports a < b where Unlimited is greater than every finite value.
func QuotaLess(a, b int64) bool {
	return quotaLess(a, b)
}
