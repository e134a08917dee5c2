package plan

// ID is a canonical plan identifier.
type ID string

const (
	Free    ID = "free"
	Student ID = "student"
	Starter ID = "starter"
	Pro     ID = "pro"
	Team    ID = "team"
)

// Default is the plan every unknown or missing label resolves to.
const Default = Free

// canonicalIDs lists every identifier the catalog must define.
var canonicalIDs = []ID{Free, Student, Starter, Pro, Team}

// String returns the string representation of the plan.
func (id ID) String() string {
	return string(id)
}

// IsValid checks if the identifier is canonical.
func (id ID) IsValid() bool {
	for _, c := range canonicalIDs {
		if c == id {
			return true
		}
	}
	return false
}

// Unlimited marks a quota without an upper bound.
const Unlimited int64 = -1

// Quota names a countable limit dimension.
type Quota string

const (
	QuotaMonthlyAnalyses      Quota = "monthly_analyses"
	QuotaMonthlyCredits       Quota = "monthly_credits"
	QuotaMaxVideoMinutes      Quota = "max_video_minutes"
	QuotaChatPerVideo         Quota = "chat_per_video"
	QuotaChatPerDay           Quota = "chat_per_day"
	QuotaPlaylists            Quota = "playlists"
	QuotaPlaylistSize         Quota = "playlist_size"
	QuotaExportsPerDay        Quota = "exports_per_day"
	QuotaWebSearchesPerMonth  Quota = "web_searches_per_month"
	QuotaHistoryRetentionDays Quota = "history_retention_days"
	QuotaAPICallsPerDay       Quota = "api_calls_per_day"
	QuotaTeamSeats            Quota = "team_seats"
	QuotaFlashcardGenerations Quota = "flashcard_generations"
	QuotaMindMapGenerations   Quota = "mindmap_generations"
)

// AllQuotas lists every quota dimension in display order.
var AllQuotas = []Quota{
	QuotaMonthlyAnalyses,
	QuotaMonthlyCredits,
	QuotaMaxVideoMinutes,
	QuotaChatPerVideo,
	QuotaChatPerDay,
	QuotaPlaylists,
	QuotaPlaylistSize,
	QuotaExportsPerDay,
	QuotaWebSearchesPerMonth,
	QuotaHistoryRetentionDays,
	QuotaAPICallsPerDay,
	QuotaTeamSeats,
	QuotaFlashcardGenerations,
	QuotaMindMapGenerations,
}

// IsValid checks if the quota is known.
func (q Quota) IsValid() bool {
	for _, known := range AllQuotas {
		if known == q {
			return true
		}
	}
	return false
}

// Feature names a boolean capability.
type Feature string

const (
	FeatureDetailedSummary  Feature = "detailed_summary"
	FeatureWebSearchChat    Feature = "web_search_chat"
	FeaturePlaylists        Feature = "playlists"
	FeatureStudyTools       Feature = "study_tools"
	FeatureCitationExport   Feature = "citation_export"
	FeatureAudioNarration   Feature = "audio_narration"
	FeatureAPIAccess        Feature = "api_access"
	FeatureSharedWorkspace  Feature = "shared_workspace"
	FeatureAcademicFullText Feature = "academic_full_text"
)

// AllFeatures lists every feature flag.
var AllFeatures = []Feature{
	FeatureDetailedSummary,
	FeatureWebSearchChat,
	FeaturePlaylists,
	FeatureStudyTools,
	FeatureCitationExport,
	FeatureAudioNarration,
	FeatureAPIAccess,
	FeatureSharedWorkspace,
	FeatureAcademicFullText,
}

// IsValid checks if the feature is known.
func (f Feature) IsValid() bool {
	for _, known := range AllFeatures {
		if known == f {
			return true
		}
	}
	return false
}

// Limits holds the quota values of a plan. -1 means unlimited, 0 means disabled.
type Limits struct {
	MonthlyAnalyses      int64 `json:"monthly_analyses" yaml:"monthly_analyses"`
	MonthlyCredits       int64 `json:"monthly_credits" yaml:"monthly_credits"`
	MaxVideoMinutes      int64 `json:"max_video_minutes" yaml:"max_video_minutes"`
	ChatPerVideo         int64 `json:"chat_per_video" yaml:"chat_per_video"`
	ChatPerDay           int64 `json:"chat_per_day" yaml:"chat_per_day"`
	Playlists            int64 `json:"playlists" yaml:"playlists"`
	PlaylistSize         int64 `json:"playlist_size" yaml:"playlist_size"`
	ExportsPerDay        int64 `json:"exports_per_day" yaml:"exports_per_day"`
	WebSearchesPerMonth  int64 `json:"web_searches_per_month" yaml:"web_searches_per_month"`
	HistoryRetentionDays int64 `json:"history_retention_days" yaml:"history_retention_days"`
	APICallsPerDay       int64 `json:"api_calls_per_day" yaml:"api_calls_per_day"`
	TeamSeats            int64 `json:"team_seats" yaml:"team_seats"`
	FlashcardGenerations int64 `json:"flashcard_generations" yaml:"flashcard_generations"`
	MindMapGenerations   int64 `json:"mindmap_generations" yaml:"mindmap_generations"`
}

// Get returns the value of a quota. Unknown quotas report 0 (disabled).
func (l Limits) Get(q Quota) int64 {
	switch q {
	case QuotaMonthlyAnalyses:
		return l.MonthlyAnalyses
	case QuotaMonthlyCredits:
		return l.MonthlyCredits
	case QuotaMaxVideoMinutes:
		return l.MaxVideoMinutes
	case QuotaChatPerVideo:
		return l.ChatPerVideo
	case QuotaChatPerDay:
		return l.ChatPerDay
	case QuotaPlaylists:
		return l.Playlists
	case QuotaPlaylistSize:
		return l.PlaylistSize
	case QuotaExportsPerDay:
		return l.ExportsPerDay
	case QuotaWebSearchesPerMonth:
		return l.WebSearchesPerMonth
	case QuotaHistoryRetentionDays:
		return l.HistoryRetentionDays
	case QuotaAPICallsPerDay:
		return l.APICallsPerDay
	case QuotaTeamSeats:
		return l.TeamSeats
	case QuotaFlashcardGenerations:
		return l.FlashcardGenerations
	case QuotaMindMapGenerations:
		return l.MindMapGenerations
	}
	return 0
}

// IsUnlimited returns true if the quota has no upper bound.
func (l Limits) IsUnlimited(q Quota) bool {
	return l.Get(q) == Unlimited
}

// IsDisabled returns true if the quota is switched off entirely.
func (l Limits) IsDisabled(q Quota) bool {
	return l.Get(q) == 0
}

// Features holds the feature flags of a plan.
type Features struct {
	DetailedSummary  bool `json:"detailed_summary" yaml:"detailed_summary"`
	WebSearchChat    bool `json:"web_search_chat" yaml:"web_search_chat"`
	Playlists        bool `json:"playlists" yaml:"playlists"`
	StudyTools       bool `json:"study_tools" yaml:"study_tools"`
	CitationExport   bool `json:"citation_export" yaml:"citation_export"`
	AudioNarration   bool `json:"audio_narration" yaml:"audio_narration"`
	APIAccess        bool `json:"api_access" yaml:"api_access"`
	SharedWorkspace  bool `json:"shared_workspace" yaml:"shared_workspace"`
	AcademicFullText bool `json:"academic_full_text" yaml:"academic_full_text"`
}

// Has reports whether the feature is enabled. Unknown features are disabled.
func (f Features) Has(feature Feature) bool {
	switch feature {
	case FeatureDetailedSummary:
		return f.DetailedSummary
	case FeatureWebSearchChat:
		return f.WebSearchChat
	case FeaturePlaylists:
		return f.Playlists
	case FeatureStudyTools:
		return f.StudyTools
	case FeatureCitationExport:
		return f.CitationExport
	case FeatureAudioNarration:
		return f.AudioNarration
	case FeatureAPIAccess:
		return f.APIAccess
	case FeatureSharedWorkspace:
		return f.SharedWorkspace
	case FeatureAcademicFullText:
		return f.AcademicFullText
	}
	return false
}

// Enabled returns the enabled features in AllFeatures order.
func (f Features) Enabled() []Feature {
	out := make([]Feature, 0, len(AllFeatures))
	for _, feature := range AllFeatures {
		if f.Has(feature) {
			out = append(out, feature)
		}
	}
	return out
}

// Info holds the presentational metadata of a plan.
type Info struct {
	DisplayName   string            `json:"display_name" yaml:"display_name"`
	PriceCents    int64             `json:"price_cents" yaml:"price_cents"`
	Currency      string            `json:"currency" yaml:"currency"`
	Descriptions  map[string]string `json:"descriptions" yaml:"descriptions"`
	Badge         string            `json:"badge,omitempty" yaml:"badge"`
	Order         int               `json:"order" yaml:"order"`
	ExportFormats []string          `json:"export_formats,omitempty" yaml:"export_formats"`
}

// fallbackLocale is used when a description is missing for the requested locale.
const fallbackLocale = "en"

// Description returns the localized description, falling back to English.
func (i Info) Description(locale string) string {
	if d, ok := i.Descriptions[locale]; ok && d != "" {
		return d
	}
	return i.Descriptions[fallbackLocale]
}

// IsFree returns true if the plan costs nothing.
func (i Info) IsFree() bool {
	return i.PriceCents == 0
}

// Definition is a full catalog entry.
type Definition struct {
	ID       ID       `json:"id" yaml:"id"`
	Info     Info     `json:"info" yaml:"info"`
	Limits   Limits   `json:"limits" yaml:"limits"`
	Features Features `json:"features" yaml:"features"`
}
