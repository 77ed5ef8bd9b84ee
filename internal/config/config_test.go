package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearCoachcoreEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"LISTEN_ADDR", "DATABASE_PATH", "ENCRYPTION_KEY_HEX",
		"ENABLE_LONGITUDINAL_ANALYSIS", "ANALYSIS_AUTO_APPLY_PROPOSALS", "ANALYSIS_SWEEP_CRON",
		"ANALYSIS_DAILY_HOUR_LOCAL", "ANALYSIS_MAX_CATCHUP_WINDOWS", "ANALYSIS_MAX_CATCHUP_WINDOWS_CHAT",
		"ANALYSIS_WEEKLY_WEEKDAY_LOCAL", "ANALYSIS_MONTHLY_DAY_LOCAL",
		"REQUEST_TIMEOUT", "WEBSEARCH_CACHE_TTL",
		"UTILITY_BUDGET_LOG_TURN", "UTILITY_BUDGET_NON_LOG_TURN", "ENABLE_WEB_SEARCH",
		"WEB_SEARCH_SPECIALISTS", "WEB_SEARCH_CATEGORIES", "WEB_SEARCH_MAX_RESULTS",
		"WEB_SEARCH_TIMEOUT", "RECENT_MESSAGE_WINDOW", "PROFILE_AUTOSYNC_MIN_CONFIDENCE",
		"FEEDBACK_DEDUPE_WINDOW",
	}
	for _, v := range vars {
		require.NoError(t, os.Unsetenv(v))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearCoachcoreEnv(t)

	cfg := Load()

	require.Equal(t, ":8080", cfg.ListenAddr)
	require.Equal(t, "./coachcore.db", cfg.DatabasePath)
	require.Equal(t, "", cfg.EncryptionKeyHex)
	require.True(t, cfg.EnableLongitudinalAnalysis)
	require.False(t, cfg.AnalysisAutoApplyProposals)
	require.Equal(t, 90*time.Second, cfg.RequestTimeout)
	require.Equal(t, 1, cfg.Turn.UtilityCallBudgetLogTurn)
	require.Equal(t, 3, cfg.Turn.UtilityCallBudgetNonLogTurn)
	require.True(t, cfg.Turn.EnableWebSearch)
	require.Equal(t, 5, cfg.Turn.WebSearchMaxResults)
}

func TestLoadHonorsOverrides(t *testing.T) {
	clearCoachcoreEnv(t)
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("ENABLE_WEB_SEARCH", "false")
	t.Setenv("WEB_SEARCH_SPECIALISTS", "nutritionist, sleep_expert ,")
	t.Setenv("PROFILE_AUTOSYNC_MIN_CONFIDENCE", "0.85")
	t.Setenv("UTILITY_BUDGET_NON_LOG_TURN", "7")

	cfg := Load()

	require.Equal(t, ":9090", cfg.ListenAddr)
	require.False(t, cfg.Turn.EnableWebSearch)
	require.Equal(t, []string{"nutritionist", "sleep_expert"}, cfg.Turn.WebSearchAllowedSpecialists)
	require.InDelta(t, 0.85, cfg.Turn.ProfileAutoSyncMinConfidence, 0.0001)
	require.Equal(t, 7, cfg.Turn.UtilityCallBudgetNonLogTurn)
}

func TestEnvIntOrFallsBackOnGarbage(t *testing.T) {
	t.Setenv("COACHCORE_TEST_INT", "not-a-number")
	require.Equal(t, 42, envIntOr("COACHCORE_TEST_INT", 42))
}

func TestEnvListOrFiltersBlankEntries(t *testing.T) {
	t.Setenv("COACHCORE_TEST_LIST", "a, ,b")
	require.Equal(t, []string{"a", "b"}, envListOr("COACHCORE_TEST_LIST", nil))
}
