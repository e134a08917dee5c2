package usage

import "github.com/videolens/server/internal/domain/plan"

// Snapshot is the usage state read from the usage counters.
// Any field may be absent upstream; absent counters are zero.
type Snapshot struct {
	// CreditsRemaining is nil when the balance is unknown, which means nothing was consumed.
	CreditsRemaining     *int64 `json:"credits_remaining,omitempty"`
	AnalysesThisPeriod   int64  `json:"analyses_this_period"`
	ChatToday            int64  `json:"chat_today"`
	WebSearchesThisMonth int64  `json:"web_searches_this_month"`
	ExportsToday         int64  `json:"exports_today"`
	APICallsToday        int64  `json:"api_calls_today"`
	Playlists            int64  `json:"playlists"`
	FlashcardsThisMonth  int64  `json:"flashcards_this_month"`
	MindMapsThisMonth    int64  `json:"mindmaps_this_month"`
}

// Credits returns a pointer for an explicit credit balance.
func Credits(n int64) *int64 {
	return &n
}

// Clamped returns a copy with every negative value raised to zero.
func (s Snapshot) Clamped() Snapshot {
	out := Snapshot{
		AnalysesThisPeriod:   clamp(s.AnalysesThisPeriod),
		ChatToday:            clamp(s.ChatToday),
		WebSearchesThisMonth: clamp(s.WebSearchesThisMonth),
		ExportsToday:         clamp(s.ExportsToday),
		APICallsToday:        clamp(s.APICallsToday),
		Playlists:            clamp(s.Playlists),
		FlashcardsThisMonth:  clamp(s.FlashcardsThisMonth),
		MindMapsThisMonth:    clamp(s.MindMapsThisMonth),
	}
	if s.CreditsRemaining != nil {
		out.CreditsRemaining = Credits(clamp(*s.CreditsRemaining))
	}
	return out
}

// Used returns the counter tracking the quota, and false when no counter exists for it.
func (s Snapshot) Used(q plan.Quota) (int64, bool) {
	switch q {
	case plan.QuotaMonthlyAnalyses:
		return clamp(s.AnalysesThisPeriod), true
	case plan.QuotaChatPerDay:
		return clamp(s.ChatToday), true
	case plan.QuotaWebSearchesPerMonth:
		return clamp(s.WebSearchesThisMonth), true
	case plan.QuotaExportsPerDay:
		return clamp(s.ExportsToday), true
	case plan.QuotaAPICallsPerDay:
		return clamp(s.APICallsToday), true
	case plan.QuotaPlaylists:
		return clamp(s.Playlists), true
	case plan.QuotaFlashcardGenerations:
		return clamp(s.FlashcardsThisMonth), true
	case plan.QuotaMindMapGenerations:
		return clamp(s.MindMapsThisMonth), true
	}
	return 0, false
}

// RemainingCredits resolves the credit balance against the plan pool.
func (s Snapshot) RemainingCredits(pool int64) int64 {
	if s.CreditsRemaining == nil {
		return pool
	}
	return clamp(*s.CreditsRemaining)
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
