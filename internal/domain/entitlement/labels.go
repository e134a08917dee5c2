package entitlement

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/videolens/server/internal/domain/plan"
	"go.uber.org/zap"
)

const seenLabelsSize = 512

// labelAuditor normalizes plan labels and reports unknown ones.
// Every miss is counted; each distinct label is logged once while it stays
// in the LRU.
type labelAuditor struct {
	resolver *plan.Resolver
	seen     *lru.Cache[string, struct{}]
	misses   MissRecorder
	logger   *zap.Logger
}

func newLabelAuditor(resolver *plan.Resolver, misses MissRecorder, logger *zap.Logger) *labelAuditor {
	seen, err := lru.New[string, struct{}](seenLabelsSize)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	return &labelAuditor{
		resolver: resolver,
		seen:     seen,
		misses:   misses,
		logger:   logger,
	}
}

// normalize maps label to a canonical plan. source names where the label came from.
func (a *labelAuditor) normalize(label, source string) plan.ID {
	id, known := a.resolver.NormalizeLabel(label)
	if known {
		return id
	}

	a.misses.RecordNormalizationMiss(source)
	if found, _ := a.seen.ContainsOrAdd(label, struct{}{}); !found {
		a.logger.Warn("unknown plan label, treating as lowest tier",
			zap.String("label", label),
			zap.String("source", source),
			zap.String("plan", string(id)),
		)
	}
	return id
}
