// Package config loads the coach core's runtime configuration from
// environment variables, grounded on the envOr/envIntOr/envDurationOr
// helpers in goadesign-goa-ai's registry/cmd/registry/main.go rather than
// a struct-tag env library — no repo in the example pack pulls one in, and
// the core's knob count is small enough that a plain-helper style reads
// cleaner than a reflection-based loader.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/analysis"
	"github.com/jmouallem/claude-longevity-sub000/internal/turn"
)

// Config is the coach core's full runtime configuration.
type Config struct {
	// ListenAddr is the HTTP listen address for cmd/coachcore.
	ListenAddr string
	// DatabasePath is the SQLite file path internal/store opens
	// (":memory:" is accepted for tests).
	DatabasePath string
	// EncryptionKeyHex is the 32-byte AES-256 key, hex-encoded, used to
	// decrypt stored provider API keys.
	EncryptionKeyHex string

	// EnableLongitudinalAnalysis gates whether the background dispatcher
	// starts at all.
	EnableLongitudinalAnalysis bool
	// AnalysisAutoApplyProposals mirrors Engine.AutoApplyProposals.
	AnalysisAutoApplyProposals bool
	// AnalysisSweepCron is the cron spec the dispatcher's periodic sweep
	// runs on.
	AnalysisSweepCron string
	Analysis          analysis.DispatchConfig

	// RequestTimeout is how long cmd/coachcore's graceful HTTP shutdown
	// waits for in-flight requests; individual chat turns are not bounded
	// by it.
	RequestTimeout time.Duration
	// WebSearchCacheTTL controls how long a cached web search result is
	// considered fresh.
	WebSearchCacheTTL time.Duration

	// Turn carries the chat turn orchestrator's own tunables (utility call
	// budgets, web search allow-lists, profile auto-sync confidence floor,
	// feedback dedupe window, recent-message window).
	Turn turn.Config
}

// Load reads Config from the process environment, applying the defaults
// documented below for anything unset.
//
// Environment variables:
//
//	LISTEN_ADDR                          - HTTP listen address (default ":8080")
//	DATABASE_PATH                        - SQLite file path (default "./coachcore.db")
//	ENCRYPTION_KEY_HEX                   - hex-encoded 32-byte AES key (required in production, empty for local/test)
//	ENABLE_LONGITUDINAL_ANALYSIS         - "true"/"false" (default "true")
//	ANALYSIS_AUTO_APPLY_PROPOSALS        - "true"/"false" (default "false")
//	ANALYSIS_SWEEP_CRON                  - 5-field cron spec for the dispatcher sweep (default "0 * * * *", hourly)
//	ANALYSIS_DAILY_HOUR_LOCAL            - local hour the daily window becomes due (default 5)
//	ANALYSIS_MAX_CATCHUP_WINDOWS         - max catch-up windows per scheduled sweep (default 7)
//	ANALYSIS_MAX_CATCHUP_WINDOWS_CHAT    - max catch-up windows per chat-triggered sweep (default 2)
//	ANALYSIS_WEEKLY_WEEKDAY_LOCAL        - 0=Sunday..6=Saturday weekday the weekly window closes on (default 0)
//	ANALYSIS_MONTHLY_DAY_LOCAL           - day of month the monthly window closes on (default 1)
//	REQUEST_TIMEOUT                      - Go duration string, graceful shutdown wait (default "90s")
//	WEBSEARCH_CACHE_TTL                  - Go duration string (default "24h")
//	UTILITY_BUDGET_LOG_TURN              - utility-model call budget on log_* turns (default 1)
//	UTILITY_BUDGET_NON_LOG_TURN          - utility-model call budget on every other turn (default 3)
//	ENABLE_WEB_SEARCH                    - "true"/"false" (default "true")
//	WEB_SEARCH_SPECIALISTS               - comma-separated specialist allow-list
//	WEB_SEARCH_CATEGORIES                - comma-separated ask_* category allow-list
//	WEB_SEARCH_MAX_RESULTS               - default 5
//	WEB_SEARCH_TIMEOUT                   - Go duration string (default "20s")
//	RECENT_MESSAGE_WINDOW                - default 20
//	PROFILE_AUTOSYNC_MIN_CONFIDENCE      - default 0.6
//	FEEDBACK_DEDUPE_WINDOW               - Go duration string (default "30m")
func Load() Config {
	turnDefaults := turn.DefaultConfig()
	return Config{
		ListenAddr:       envOr("LISTEN_ADDR", ":8080"),
		DatabasePath:     envOr("DATABASE_PATH", "./coachcore.db"),
		EncryptionKeyHex: os.Getenv("ENCRYPTION_KEY_HEX"),

		EnableLongitudinalAnalysis: envBoolOr("ENABLE_LONGITUDINAL_ANALYSIS", true),
		AnalysisAutoApplyProposals: envBoolOr("ANALYSIS_AUTO_APPLY_PROPOSALS", false),
		AnalysisSweepCron:          envOr("ANALYSIS_SWEEP_CRON", "0 * * * *"),
		Analysis: analysis.DispatchConfig{
			DailyHourLocal:        envIntOr("ANALYSIS_DAILY_HOUR_LOCAL", 5),
			MaxCatchupWindows:     envIntOr("ANALYSIS_MAX_CATCHUP_WINDOWS", 7),
			MaxCatchupWindowsChat: envIntOr("ANALYSIS_MAX_CATCHUP_WINDOWS_CHAT", 2),
			WeeklyWeekdayLocal:    time.Weekday(envIntOr("ANALYSIS_WEEKLY_WEEKDAY_LOCAL", 0)),
			MonthlyDayLocal:       envIntOr("ANALYSIS_MONTHLY_DAY_LOCAL", 1),
		},

		RequestTimeout:    envDurationOr("REQUEST_TIMEOUT", 90*time.Second),
		WebSearchCacheTTL: envDurationOr("WEBSEARCH_CACHE_TTL", 24*time.Hour),

		Turn: turn.Config{
			UtilityCallBudgetLogTurn:     envIntOr("UTILITY_BUDGET_LOG_TURN", turnDefaults.UtilityCallBudgetLogTurn),
			UtilityCallBudgetNonLogTurn:  envIntOr("UTILITY_BUDGET_NON_LOG_TURN", turnDefaults.UtilityCallBudgetNonLogTurn),
			EnableWebSearch:              envBoolOr("ENABLE_WEB_SEARCH", turnDefaults.EnableWebSearch),
			WebSearchAllowedSpecialists:  envListOr("WEB_SEARCH_SPECIALISTS", turnDefaults.WebSearchAllowedSpecialists),
			WebSearchAllowedCategories:   envListOr("WEB_SEARCH_CATEGORIES", turnDefaults.WebSearchAllowedCategories),
			WebSearchMaxResults:          envIntOr("WEB_SEARCH_MAX_RESULTS", turnDefaults.WebSearchMaxResults),
			WebSearchTimeout:             envDurationOr("WEB_SEARCH_TIMEOUT", turnDefaults.WebSearchTimeout),
			RecentMessageWindow:          envIntOr("RECENT_MESSAGE_WINDOW", turnDefaults.RecentMessageWindow),
			ProfileAutoSyncMinConfidence: envFloatOr("PROFILE_AUTOSYNC_MIN_CONFIDENCE", turnDefaults.ProfileAutoSyncMinConfidence),
			FeedbackDedupeWindow:         envDurationOr("FEEDBACK_DEDUPE_WINDOW", turnDefaults.FeedbackDedupeWindow),
		},
	}
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOr(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envDurationOr(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBoolOr(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envFloatOr(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envListOr(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
