package plan

var citationFormats = []string{"bibtex", "apa", "mla"}

// DefaultDefinitions returns the built-in plan table.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			ID: Free,
			Info: Info{
				DisplayName: "Free",
				PriceCents:  0,
				Currency:    "usd",
				Descriptions: map[string]string{
					"en": "Try quick video summaries at no cost.",
					"fr": "Essayez les résumés vidéo rapides gratuitement.",
					"es": "Prueba los resúmenes rápidos de video sin costo.",
				},
				Order: 0,
			},
			Limits: Limits{
				MonthlyAnalyses:      3,
				MonthlyCredits:       10,
				MaxVideoMinutes:      20,
				ChatPerVideo:         5,
				ChatPerDay:           10,
				Playlists:            0,
				PlaylistSize:         0,
				ExportsPerDay:        1,
				WebSearchesPerMonth:  0,
				HistoryRetentionDays: 7,
				APICallsPerDay:       0,
				TeamSeats:            1,
				FlashcardGenerations: 0,
				MindMapGenerations:   0,
			},
		},
		{
			ID: Student,
			Info: Info{
				DisplayName: "Student",
				PriceCents:  499,
				Currency:    "usd",
				Descriptions: map[string]string{
					"en": "Study tools and citations for lectures and courses.",
					"fr": "Outils d'étude et citations pour vos cours.",
					"es": "Herramientas de estudio y citas para tus clases.",
				},
				Badge:         "Students",
				Order:         1,
				ExportFormats: citationFormats,
			},
			Limits: Limits{
				MonthlyAnalyses:      30,
				MonthlyCredits:       150,
				MaxVideoMinutes:      60,
				ChatPerVideo:         20,
				ChatPerDay:           50,
				Playlists:            5,
				PlaylistSize:         20,
				ExportsPerDay:        10,
				WebSearchesPerMonth:  0,
				HistoryRetentionDays: 90,
				APICallsPerDay:       0,
				TeamSeats:            1,
				FlashcardGenerations: 100,
				MindMapGenerations:   50,
			},
			Features: Features{
				DetailedSummary:  true,
				Playlists:        true,
				StudyTools:       true,
				CitationExport:   true,
				AcademicFullText: true,
			},
		},
		{
			ID: Starter,
			Info: Info{
				DisplayName: "Starter",
				PriceCents:  999,
				Currency:    "usd",
				Descriptions: map[string]string{
					"en": "More analyses and web-grounded chat for regular viewers.",
					"fr": "Plus d'analyses et un chat connecté au web.",
					"es": "Más análisis y chat con búsqueda web.",
				},
				Order:         2,
				ExportFormats: citationFormats,
			},
			Limits: Limits{
				MonthlyAnalyses:      60,
				MonthlyCredits:       300,
				MaxVideoMinutes:      120,
				ChatPerVideo:         30,
				ChatPerDay:           100,
				Playlists:            10,
				PlaylistSize:         30,
				ExportsPerDay:        20,
				WebSearchesPerMonth:  20,
				HistoryRetentionDays: 90,
				APICallsPerDay:       0,
				TeamSeats:            1,
				FlashcardGenerations: 50,
				MindMapGenerations:   30,
			},
			Features: Features{
				DetailedSummary:  true,
				WebSearchChat:    true,
				Playlists:        true,
				StudyTools:       true,
				CitationExport:   true,
				AcademicFullText: true,
			},
		},
		{
			ID: Pro,
			Info: Info{
				DisplayName: "Pro",
				PriceCents:  1999,
				Currency:    "usd",
				Descriptions: map[string]string{
					"en": "Unlimited chat, narration and API access for power users.",
					"fr": "Chat illimité, narration audio et accès API.",
					"es": "Chat ilimitado, narración y acceso a la API.",
				},
				Badge:         "Most popular",
				Order:         3,
				ExportFormats: citationFormats,
			},
			Limits: Limits{
				MonthlyAnalyses:      300,
				MonthlyCredits:       1500,
				MaxVideoMinutes:      240,
				ChatPerVideo:         Unlimited,
				ChatPerDay:           Unlimited,
				Playlists:            50,
				PlaylistSize:         100,
				ExportsPerDay:        Unlimited,
				WebSearchesPerMonth:  200,
				HistoryRetentionDays: 365,
				APICallsPerDay:       1000,
				TeamSeats:            1,
				FlashcardGenerations: Unlimited,
				MindMapGenerations:   Unlimited,
			},
			Features: Features{
				DetailedSummary:  true,
				WebSearchChat:    true,
				Playlists:        true,
				StudyTools:       true,
				CitationExport:   true,
				AudioNarration:   true,
				APIAccess:        true,
				AcademicFullText: true,
			},
		},
		{
			ID: Team,
			Info: Info{
				DisplayName: "Team",
				PriceCents:  4999,
				Currency:    "usd",
				Descriptions: map[string]string{
					"en": "Shared workspaces and unlimited usage for research groups.",
					"fr": "Espaces partagés et usage illimité pour les équipes.",
					"es": "Espacios compartidos y uso ilimitado para equipos.",
				},
				Badge:         "Best for teams",
				Order:         4,
				ExportFormats: citationFormats,
			},
			Limits: Limits{
				MonthlyAnalyses:      Unlimited,
				MonthlyCredits:       Unlimited,
				MaxVideoMinutes:      Unlimited,
				ChatPerVideo:         Unlimited,
				ChatPerDay:           Unlimited,
				Playlists:            Unlimited,
				PlaylistSize:         Unlimited,
				ExportsPerDay:        Unlimited,
				WebSearchesPerMonth:  Unlimited,
				HistoryRetentionDays: Unlimited,
				APICallsPerDay:       Unlimited,
				TeamSeats:            10,
				FlashcardGenerations: Unlimited,
				MindMapGenerations:   Unlimited,
			},
			Features: Features{
				DetailedSummary:  true,
				WebSearchChat:    true,
				Playlists:        true,
				StudyTools:       true,
				CitationExport:   true,
				AudioNarration:   true,
				APIAccess:        true,
				SharedWorkspace:  true,
				AcademicFullText: true,
			},
		},
	}
}

// DefaultAliases maps historical, regional and marketing labels to plans.
// "expert" was retired and maps to its nearest current equivalent.
func DefaultAliases() map[string]ID {
	return map[string]ID{
		"":             Free,
		"basic":        Free,
		"trial":        Free,
		"gratuit":      Free,
		"gratis":       Free,
		"edu":          Student,
		"education":    Student,
		"etudiant":     Student,
		"étudiant":     Student,
		"estudiante":   Student,
		"plus":         Starter,
		"lite":         Starter,
		"essentiel":    Starter,
		"premium":      Pro,
		"expert":       Pro,
		"professional": Pro,
		"teams":        Team,
		"business":     Team,
		"enterprise":   Team,
		"equipe":       Team,
		"équipe":       Team,
		"equipo":       Team,
	}
}

// DefaultExceptions lists the quotas where Student intentionally outranks Starter.
func DefaultExceptions() []Exception {
	return []Exception{
		{Quota: QuotaFlashcardGenerations, Lower: Student, Higher: Starter},
		{Quota: QuotaMindMapGenerations, Lower: Student, Higher: Starter},
	}
}

var builtin = MustCatalog(DefaultDefinitions(), DefaultAliases(), DefaultExceptions())

// Builtin returns the catalog compiled into the binary.
func Builtin() *Catalog {
	return builtin
}
