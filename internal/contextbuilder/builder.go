package contextbuilder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/jmouallem/claude-longevity-sub000/internal/timeinfer"
)

const defaultContextMaxChars = 18000

// budget is the set of character caps governing one context assembly,
// varying by whether the turn's intent category is a log_* write (tighter,
// since the model mostly just needs to confirm and move on) or a
// conversational ask/chat category.
type budget struct {
	maxTotal         int
	maxProfile       int
	maxFramework     int
	maxMedsSupps     int
	maxSnapshot      int
	maxDailySummary  int
	maxWeeklySummary int
	maxGuidance      int
	minSectionChars  int
}

func budgetFor(intentCategory string) budget {
	isLog := strings.HasPrefix(strings.ToLower(strings.TrimSpace(intentCategory)), "log_")
	maxTotal := defaultContextMaxChars
	maxSnapshot := 3200
	maxDaily := 1800
	maxWeekly := 1500
	if isLog {
		maxTotal = 13000
		maxSnapshot = 2200
		maxDaily = 1200
		maxWeekly = 900
	}
	return budget{
		maxTotal:         maxTotal,
		maxProfile:       1500,
		maxFramework:     1400,
		maxMedsSupps:     1800,
		maxSnapshot:      maxSnapshot,
		maxDailySummary:  maxDaily,
		maxWeeklySummary: maxWeekly,
		maxGuidance:      1600,
		minSectionChars:  220,
	}
}

// Builder assembles system prompts for turns, backed by store and a process-
// wide stable-block cache.
type Builder struct {
	store Store
	cache *StableBlockCache
	// now is overridable in tests; defaults to time.Now.
	now func() time.Time
}

// NewBuilder returns a Builder reading from store, with its own stable-block
// cache. A single Builder should be shared across turns so the cache is
// effective.
func NewBuilder(store Store) *Builder {
	return &Builder{store: store, cache: NewStableBlockCache(), now: time.Now}
}

type section struct {
	text     string
	required bool
}

func updatedAtStamp(t time.Time) string {
	if t.IsZero() {
		return "none"
	}
	return t.Format(time.RFC3339Nano)
}

func stableCacheKey(userID int64, specialist string, settingsStamp, specialistStamp, frameworkStamp string) string {
	return fmt.Sprintf("%d|%s|%s|%s|%s", userID, specialist, settingsStamp, specialistStamp, frameworkStamp)
}

// buildStableBlock assembles the cacheable portion of the prompt: base +
// specialist persona, identity, profile, active frameworks, meds/supps.
func (b *Builder) buildStableBlock(ctx context.Context, user *domain.User, settings *domain.UserSettings, overrides *SpecialistOverrides, specialist string, frameworks []domain.HealthOptimizationFramework, bud budget) string {
	var blocks []string

	systemPrompt := defaultSystemPrompt
	if overrides != nil && overrides.SystemPromptOverride != "" {
		systemPrompt = overrides.SystemPromptOverride
	}
	blocks = append(blocks, strings.TrimSpace(systemPrompt))

	if specialist != "" && specialist != "orchestrator" {
		specialistPrompt := defaultSpecialistPrompts[specialist]
		if overrides != nil && overrides.SpecialistPrompts != nil {
			if custom, ok := overrides.SpecialistPrompts[specialist]; ok && custom != "" {
				specialistPrompt = custom
			}
		}
		if specialistPrompt != "" {
			blocks = append(blocks, strings.TrimSpace(specialistPrompt))
		}
	}

	displayName := ""
	username := ""
	if user != nil {
		displayName = strings.TrimSpace(user.DisplayName)
		username = strings.TrimSpace(user.Username)
	}
	if displayName != "" || username != "" {
		var identity []string
		if displayName != "" {
			identity = append(identity, "- Name: "+displayName)
		}
		if username != "" && username != displayName {
			identity = append(identity, "- Username: "+username)
		}
		blocks = append(blocks, "## User Identity\n"+strings.Join(identity, "\n"))
	}

	profile := formatUserProfile(settings)
	blocks = append(blocks, clipBlock("## Current User Profile\n"+profile, bud.maxProfile))

	frameworkText := formatActiveFrameworks(frameworks)
	blocks = append(blocks, clipBlock("## Prioritized Health Optimization Framework\n"+frameworkText, bud.maxFramework))

	if settings != nil {
		meds := formatStructuredItems(settings.Medications)
		supps := formatStructuredItems(settings.Supplements)
		blocks = append(blocks, clipBlock(fmt.Sprintf("## Medications\n%s\n\n## Supplements\n%s", meds, supps), bud.maxMedsSupps))
	}

	var nonEmpty []string
	for _, blk := range blocks {
		if strings.TrimSpace(blk) != "" {
			nonEmpty = append(nonEmpty, blk)
		}
	}
	return strings.TrimSpace(strings.Join(nonEmpty, "\n\n"))
}

func (b *Builder) stableBlockCached(ctx context.Context, user *domain.User, settings *domain.UserSettings, overrides *SpecialistOverrides, specialist string, frameworks []domain.HealthOptimizationFramework, bud budget) string {
	settingsStamp := "none"
	if settings != nil {
		settingsStamp = updatedAtStamp(settings.UpdatedAt)
	}
	specialistStamp := "none"
	if overrides != nil {
		specialistStamp = updatedAtStamp(overrides.UpdatedAt)
	}
	var latestFrameworkUpdate time.Time
	for _, f := range frameworks {
		if f.UpdatedAt.After(latestFrameworkUpdate) {
			latestFrameworkUpdate = f.UpdatedAt
		}
	}
	frameworkStamp := updatedAtStamp(latestFrameworkUpdate)

	key := stableCacheKey(user.ID, specialist, settingsStamp, specialistStamp, frameworkStamp)
	if cached, ok := b.cache.Get(key); ok {
		return cached
	}
	block := b.buildStableBlock(ctx, user, settings, overrides, specialist, frameworks, bud)
	b.cache.Put(key, block)
	return block
}

// BuildContext assembles the full system prompt for one turn: the cached
// stable block, today's snapshot, approved guidance, and recent summaries,
// selected under intentCategory's character budget per the context budget rules.
func (b *Builder) BuildContext(ctx context.Context, userID int64, specialist string, intentCategory string) (string, error) {
	user, err := b.store.GetUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	settings, err := b.store.GetSettings(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get settings: %w", err)
	}
	overrides, err := b.store.GetSpecialistOverrides(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get specialist overrides: %w", err)
	}
	frameworks, err := b.store.ActiveFrameworks(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list active frameworks: %w", err)
	}

	bud := budgetFor(intentCategory)

	var sections []section
	addSection := func(text string, maxChars int, required bool) {
		payload := strings.TrimSpace(text)
		if payload == "" {
			return
		}
		if maxChars > 0 {
			payload = clipBlock(payload, maxChars)
		}
		sections = append(sections, section{text: payload, required: required})
	}

	stableBlock := b.stableBlockCached(ctx, user, settings, overrides, specialist, frameworks, bud)
	addSection(stableBlock, 0, true)

	tz := ""
	if settings != nil {
		tz = settings.Timezone
	}
	now := b.now()
	localDate := timeinfer.TodayInTZ(&now, tz)
	dayStart, dayEnd := timeinfer.DayBoundsUTC(localDate, tz)

	snapshot, err := b.todaySnapshot(ctx, userID, settings, localDate, dayStart, dayEnd, now)
	if err != nil {
		return "", fmt.Errorf("build today snapshot: %w", err)
	}
	addSection("## Today's Status\n"+snapshot, bud.maxSnapshot, true)

	guidance, err := b.approvedGuidance(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list approved guidance: %w", err)
	}
	if guidance != "" {
		addSection(guidance, bud.maxGuidance, false)
	}

	daily, err := b.store.LatestAnalysisRun(ctx, userID, domain.RunDaily)
	if err != nil {
		return "", fmt.Errorf("latest daily analysis: %w", err)
	}
	if daily != nil && daily.MarkdownSummary != "" {
		addSection("## Yesterday's Summary\n"+daily.MarkdownSummary, bud.maxDailySummary, false)
	}
	weekly, err := b.store.LatestAnalysisRun(ctx, userID, domain.RunWeekly)
	if err != nil {
		return "", fmt.Errorf("latest weekly analysis: %w", err)
	}
	if weekly != nil && weekly.MarkdownSummary != "" {
		addSection("## Last Week's Summary\n"+weekly.MarkdownSummary, bud.maxWeeklySummary, false)
	}

	return selectSections(sections, bud), nil
}

func (b *Builder) todaySnapshot(ctx context.Context, userID int64, settings *domain.UserSettings, localDate, dayStart, dayEnd time.Time, now time.Time) (string, error) {
	weightUnit := domain.WeightUnitKG
	hydrationUnit := domain.HydrationUnitML
	if settings != nil {
		if settings.WeightUnit != "" {
			weightUnit = settings.WeightUnit
		}
		if settings.HydrationUnit != "" {
			hydrationUnit = settings.HydrationUnit
		}
	}

	foods, err := b.store.FoodLogsBetween(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return "", err
	}
	hydration, err := b.store.HydrationLogsBetween(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return "", err
	}
	latestVitals, err := b.store.LatestVitalsBetween(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return "", err
	}
	exercises, err := b.store.ExerciseLogsBetween(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return "", err
	}
	latestSleep, err := b.store.LatestSleepOverlapping(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return "", err
	}
	activeFast, err := b.store.OpenFasting(ctx, userID)
	if err != nil {
		return "", err
	}

	return formatTodaySnapshot(localDate, weightUnit, hydrationUnit, foods, hydration, latestVitals, exercises, latestSleep, activeFast, now), nil
}

const maxApprovedGuidanceEntries = 6

func (b *Builder) approvedGuidance(ctx context.Context, userID int64) (string, error) {
	proposals, err := b.store.ApprovedGuidance(ctx, userID, maxApprovedGuidanceEntries)
	if err != nil {
		return "", err
	}
	if len(proposals) == 0 {
		return "", nil
	}
	lines := make([]string, 0, len(proposals)+1)
	lines = append(lines, "## Approved Guidance")
	for _, p := range proposals {
		lines = append(lines, "- "+p.Title)
	}
	return strings.Join(lines, "\n"), nil
}

// selectSections applies the budget's inclusion policy: required sections
// are kept and clipped with a truncation marker if the total would
// overflow; optional sections are dropped whole rather than partially
// included, and nothing below minSectionChars is added back in.
func selectSections(sections []section, bud budget) string {
	var selected []string
	used := 0
	for _, s := range sections {
		text := strings.TrimSpace(s.text)
		if text == "" {
			continue
		}
		joinCost := 0
		if len(selected) > 0 {
			joinCost = 2
		}
		sectionLen := len(text)
		if used+joinCost+sectionLen <= bud.maxTotal {
			selected = append(selected, text)
			used += joinCost + sectionLen
			continue
		}
		if !s.required {
			continue
		}
		remaining := bud.maxTotal - used - joinCost
		if remaining < bud.minSectionChars {
			continue
		}
		trimmed := clipBlock(text, remaining)
		if trimmed != "" {
			selected = append(selected, trimmed)
			used += joinCost + len(trimmed)
		}
	}
	return strings.Join(selected, "\n\n")
}
