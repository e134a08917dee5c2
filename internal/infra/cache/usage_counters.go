package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/videolens/server/internal/domain/usage"
)

const usageKeyPrefix = "usage:"

// Usage counter names. Monthly counters are keyed by UTC month, daily ones by UTC day.
const (
	CounterCredits     = "credits"
	CounterAnalyses    = "analyses"
	CounterChat        = "chat"
	CounterWebSearches = "web_searches"
	CounterExports     = "exports"
	CounterAPICalls    = "api_calls"
	CounterPlaylists   = "playlists"
	CounterFlashcards  = "flashcards"
	CounterMindMaps    = "mindmaps"
)

// UsageCounters reads the per-user usage counters written by the product services.
type UsageCounters struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewUsageCounters creates a usage counter reader.
func NewUsageCounters(client redis.UniversalClient) *UsageCounters {
	return &UsageCounters{client: client, now: time.Now}
}

// UsageKey returns the Redis key of a counter at the given time.
func UsageKey(counter string, userID uuid.UUID, at time.Time) string {
	at = at.UTC()
	switch counter {
	case CounterAnalyses, CounterWebSearches, CounterFlashcards, CounterMindMaps:
		return fmt.Sprintf("%s%s:%s:%s", usageKeyPrefix, counter, userID, at.Format("2006-01"))
	case CounterChat, CounterExports, CounterAPICalls:
		return fmt.Sprintf("%s%s:%s:%s", usageKeyPrefix, counter, userID, at.Format("2006-01-02"))
	default:
		return fmt.Sprintf("%s%s:%s", usageKeyPrefix, counter, userID)
	}
}

// GetUsage reads every counter in one round trip. Missing counters are zero,
// and a missing credit balance is left nil.
func (u *UsageCounters) GetUsage(ctx context.Context, userID uuid.UUID) (usage.Snapshot, error) {
	now := u.now()
	counters := []string{
		CounterCredits, CounterAnalyses, CounterChat, CounterWebSearches, CounterExports,
		CounterAPICalls, CounterPlaylists, CounterFlashcards, CounterMindMaps,
	}
	keys := make([]string, len(counters))
	for i, c := range counters {
		keys[i] = UsageKey(c, userID, now)
	}

	values, err := u.client.MGet(ctx, keys...).Result()
	if err != nil {
		return usage.Snapshot{}, fmt.Errorf("read usage counters: %w", err)
	}

	var snap usage.Snapshot
	for i, raw := range values {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return usage.Snapshot{}, fmt.Errorf("parse usage counter %s: %w", keys[i], err)
		}

		switch counters[i] {
		case CounterCredits:
			snap.CreditsRemaining = usage.Credits(n)
		case CounterAnalyses:
			snap.AnalysesThisPeriod = n
		case CounterChat:
			snap.ChatToday = n
		case CounterWebSearches:
			snap.WebSearchesThisMonth = n
		case CounterExports:
			snap.ExportsToday = n
		case CounterAPICalls:
			snap.APICallsToday = n
		case CounterPlaylists:
			snap.Playlists = n
		case CounterFlashcards:
			snap.FlashcardsThisMonth = n
		case CounterMindMaps:
			snap.MindMapsThisMonth = n
		}
	}
	return snap, nil
}
