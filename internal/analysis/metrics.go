package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/jmouallem/claude-longevity-sub000/internal/timeinfer"
)

// metricsPayload is the deterministic rollup computed from a user's raw
// logs for one window, grounded on _collect_period_metrics. Field layout
// and json keys mirror the Python dict shape so the reasoning/deep prompts
// see the same structure the original service fed them.
type metricsPayload struct {
	Window    windowMetrics    `json:"window"`
	Nutrition nutritionMetrics `json:"nutrition"`
	Hydration hydrationMetrics `json:"hydration"`
	Exercise  exerciseMetrics  `json:"exercise"`
	Sleep     sleepMetrics     `json:"sleep"`
	Fasting   fastingMetrics   `json:"fasting"`

	MedicationAdherence adherenceMetrics `json:"medication_adherence"`
	SupplementAdherence adherenceMetrics `json:"supplement_adherence"`
	Vitals              vitalsMetrics    `json:"vitals"`
	Framework           frameworkMetrics `json:"health_optimization_framework"`
}

type windowMetrics struct {
	RunType     string `json:"run_type"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Days        int    `json:"days"`
	Timezone    string `json:"timezone"`
}

type nutritionMetrics struct {
	MealCount        int     `json:"meal_count"`
	CaloriesTotal    float64 `json:"calories_total"`
	ProteinGTotal    float64 `json:"protein_g_total"`
	CarbsGTotal      float64 `json:"carbs_g_total"`
	FatGTotal        float64 `json:"fat_g_total"`
	FiberGTotal      float64 `json:"fiber_g_total"`
	SodiumMgTotal    float64 `json:"sodium_mg_total"`
	CaloriesDailyAvg float64 `json:"calories_daily_avg"`
}

type hydrationMetrics struct {
	TotalML    float64 `json:"total_ml"`
	DailyAvgML float64 `json:"daily_avg_ml"`
}

type exerciseMetrics struct {
	Sessions        int     `json:"sessions"`
	MinutesTotal    int     `json:"minutes_total"`
	MinutesDailyAvg float64 `json:"minutes_daily_avg"`
	CaloriesTotal   float64 `json:"calories_total"`
}

type sleepMetrics struct {
	Entries        int      `json:"entries"`
	DurationAvgMin *float64 `json:"duration_avg_min"`
	Qualities      []int    `json:"qualities"`
}

type fastingMetrics struct {
	Entries        int      `json:"entries"`
	DurationAvgMin *float64 `json:"duration_avg_min"`
}

type adherenceMetrics struct {
	ExpectedEvents  int      `json:"expected_events"`
	CompletedEvents int      `json:"completed_events"`
	AdherenceRatio  *float64 `json:"adherence_ratio"`
	LogsCount       *int     `json:"logs_count,omitempty"`
}

type vitalsMetrics struct {
	Entries        int                 `json:"entries"`
	Weight         vitalSeriesFloat    `json:"weight"`
	BloodPressure  bloodPressureSeries `json:"blood_pressure"`
	HeartRate      heartRateSeries     `json:"heart_rate"`
}

type vitalSeriesFloat struct {
	LatestKG *float64 `json:"latest_kg"`
	AvgKG    *float64 `json:"avg_kg"`
	DeltaKG  *float64 `json:"delta_kg"`
}

type bloodPressureSeries struct {
	AvgSystolic    *float64 `json:"avg_systolic"`
	AvgDiastolic   *float64 `json:"avg_diastolic"`
	DeltaSystolic  *float64 `json:"delta_systolic"`
}

type heartRateSeries struct {
	AvgBPM   *float64 `json:"avg_bpm"`
	DeltaBPM *float64 `json:"delta_bpm"`
}

type frameworkMetrics struct {
	ActiveCount int                    `json:"active_count"`
	ActiveItems []frameworkMetricsItem `json:"active_items"`
}

type frameworkMetricsItem struct {
	ID              int64  `json:"id"`
	FrameworkType   string `json:"framework_type"`
	ClassifierLabel string `json:"classifier_label"`
	Name            string `json:"name"`
	PriorityScore   int    `json:"priority_score"`
	Source          string `json:"source"`
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func avg(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	return sum(values) / float64(len(values)), true
}

func ptr(v float64) *float64 { return &v }

// collectPeriodMetrics gathers every log domain for window and reduces it
// to the deterministic metrics payload plus missing-domain and risk-flag
// lists, mirroring _collect_period_metrics exactly, including its risk
// thresholds (BP >=140/90, sodium >=2300mg/day, med adherence <0.7).
func collectPeriodMetrics(ctx context.Context, store Store, user *domain.User, settings *domain.UserSettings, window Window, tzName string) (metricsPayload, []string, []domain.RiskFlag, error) {
	startDT, _ := timeinfer.DayBoundsUTC(window.PeriodStart, tzName)
	_, endDT := timeinfer.DayBoundsUTC(window.PeriodEnd, tzName)
	days := datesInclusive(window.PeriodStart, window.PeriodEnd)

	foods, err := store.FoodLogsBetween(ctx, user.ID, startDT, endDT)
	if err != nil {
		return metricsPayload{}, nil, nil, fmt.Errorf("food logs: %w", err)
	}
	hydration, err := store.HydrationLogsBetween(ctx, user.ID, startDT, endDT)
	if err != nil {
		return metricsPayload{}, nil, nil, fmt.Errorf("hydration logs: %w", err)
	}
	vitals, err := store.VitalsLogsBetween(ctx, user.ID, startDT, endDT)
	if err != nil {
		return metricsPayload{}, nil, nil, fmt.Errorf("vitals logs: %w", err)
	}
	exercise, err := store.ExerciseLogsBetween(ctx, user.ID, startDT, endDT)
	if err != nil {
		return metricsPayload{}, nil, nil, fmt.Errorf("exercise logs: %w", err)
	}
	fasting, err := store.FastingLogsStartingBetween(ctx, user.ID, startDT, endDT)
	if err != nil {
		return metricsPayload{}, nil, nil, fmt.Errorf("fasting logs: %w", err)
	}
	sleep, err := store.SleepLogsOverlapping(ctx, user.ID, startDT, endDT)
	if err != nil {
		return metricsPayload{}, nil, nil, fmt.Errorf("sleep logs: %w", err)
	}
	suppLogs, err := store.SupplementLogsBetween(ctx, user.ID, startDT, endDT)
	if err != nil {
		return metricsPayload{}, nil, nil, fmt.Errorf("supplement logs: %w", err)
	}
	checklist, err := store.ChecklistItemsBetween(ctx, user.ID, window.PeriodStart.Format("2006-01-02"), window.PeriodEnd.Format("2006-01-02"))
	if err != nil {
		return metricsPayload{}, nil, nil, fmt.Errorf("checklist items: %w", err)
	}
	activeFrameworks, err := store.ActiveFrameworks(ctx, user.ID)
	if err != nil {
		return metricsPayload{}, nil, nil, fmt.Errorf("active frameworks: %w", err)
	}

	var meds, supps []domain.StructuredItem
	if settings != nil {
		meds = settings.Medications
		supps = settings.Supplements
	}
	expectedMed := len(meds) * days
	expectedSupp := len(supps) * days
	var doneMed, doneSupp int
	for _, c := range checklist {
		if !c.Completed {
			continue
		}
		switch c.ItemType {
		case domain.ChecklistItemMedication:
			doneMed++
		case domain.ChecklistItemSupplement:
			doneSupp++
		}
	}

	var weightPoints, bpSys, bpDia, hrPoints []float64
	for _, v := range vitals {
		if v.WeightKG > 0 {
			weightPoints = append(weightPoints, v.WeightKG)
		}
		if v.BPSystolic > 0 {
			bpSys = append(bpSys, float64(v.BPSystolic))
		}
		if v.BPDiastolic > 0 {
			bpDia = append(bpDia, float64(v.BPDiastolic))
		}
		if v.HeartRate > 0 {
			hrPoints = append(hrPoints, float64(v.HeartRate))
		}
	}

	var calTotal, proteinTotal, carbsTotal, fatTotal, fiberTotal, sodiumTotal float64
	for _, f := range foods {
		calTotal += f.CaloriesKcal
		proteinTotal += f.ProteinG
		carbsTotal += f.CarbsG
		fatTotal += f.FatG
		fiberTotal += f.FiberG
		sodiumTotal += f.SodiumMg
	}
	var hydrationTotal float64
	for _, h := range hydration {
		hydrationTotal += h.VolumeML
	}
	var exerciseMinutes int
	var exerciseCalories float64
	for _, e := range exercise {
		exerciseMinutes += e.DurationMinutes
		exerciseCalories += e.CaloriesKcal
	}

	var sleepDurations []float64
	var qualities []int
	for _, s := range sleep {
		if s.DurationMinutes > 0 {
			sleepDurations = append(sleepDurations, float64(s.DurationMinutes))
		}
		if s.Quality > 0 {
			qualities = append(qualities, s.Quality)
		}
	}
	var sleepAvg *float64
	if a, ok := avg(sleepDurations); ok {
		sleepAvg = ptr(round2f(a))
	}

	var fastDurations []float64
	for _, f := range fasting {
		if f.DurationMinutes > 0 {
			fastDurations = append(fastDurations, float64(f.DurationMinutes))
		}
	}
	var fastAvg *float64
	if a, ok := avg(fastDurations); ok {
		fastAvg = ptr(round2f(a))
	}

	medAdherence := adherenceMetrics{ExpectedEvents: expectedMed, CompletedEvents: doneMed}
	if expectedMed > 0 {
		medAdherence.AdherenceRatio = ptr(roundN(float64(doneMed)/float64(expectedMed), 4))
	}
	suppAdherence := adherenceMetrics{ExpectedEvents: expectedSupp, CompletedEvents: doneSupp, LogsCount: intPtr(len(suppLogs))}
	if expectedSupp > 0 {
		suppAdherence.AdherenceRatio = ptr(roundN(float64(doneSupp)/float64(expectedSupp), 4))
	}

	weight := vitalSeriesFloat{}
	if len(weightPoints) > 0 {
		weight.LatestKG = ptr(weightPoints[len(weightPoints)-1])
		if a, ok := avg(weightPoints); ok {
			weight.AvgKG = ptr(roundN(a, 3))
		}
	}
	if d, ok := calcSlope(weightPoints); ok {
		weight.DeltaKG = ptr(d)
	}

	bp := bloodPressureSeries{}
	if a, ok := avg(bpSys); ok {
		bp.AvgSystolic = ptr(round2f(a))
	}
	if a, ok := avg(bpDia); ok {
		bp.AvgDiastolic = ptr(round2f(a))
	}
	if d, ok := calcSlope(bpSys); ok {
		bp.DeltaSystolic = ptr(d)
	}

	hr := heartRateSeries{}
	if a, ok := avg(hrPoints); ok {
		hr.AvgBPM = ptr(round2f(a))
	}
	if d, ok := calcSlope(hrPoints); ok {
		hr.DeltaBPM = ptr(d)
	}

	frameworkItems := make([]frameworkMetricsItem, 0, len(activeFrameworks))
	for _, f := range activeFrameworks {
		frameworkItems = append(frameworkItems, frameworkMetricsItem{
			ID:              f.ID,
			FrameworkType:   string(f.Type),
			ClassifierLabel: domain.FrameworkClassifierLabels[f.Type],
			Name:            f.Name,
			PriorityScore:   f.Priority,
			Source:          f.Source,
		})
	}

	metrics := metricsPayload{
		Window: windowMetrics{
			RunType:     string(window.RunType),
			PeriodStart: window.PeriodStart.Format("2006-01-02"),
			PeriodEnd:   window.PeriodEnd.Format("2006-01-02"),
			Days:        days,
			Timezone:    tzName,
		},
		Nutrition: nutritionMetrics{
			MealCount:        len(foods),
			CaloriesTotal:    round2f(calTotal),
			ProteinGTotal:    round2f(proteinTotal),
			CarbsGTotal:      round2f(carbsTotal),
			FatGTotal:        round2f(fatTotal),
			FiberGTotal:      round2f(fiberTotal),
			SodiumMgTotal:    round2f(sodiumTotal),
			CaloriesDailyAvg: round2f(calTotal / float64(days)),
		},
		Hydration: hydrationMetrics{
			TotalML:    round2f(hydrationTotal),
			DailyAvgML: round2f(hydrationTotal / float64(days)),
		},
		Exercise: exerciseMetrics{
			Sessions:        len(exercise),
			MinutesTotal:    exerciseMinutes,
			MinutesDailyAvg: round2f(float64(exerciseMinutes) / float64(days)),
			CaloriesTotal:   round2f(exerciseCalories),
		},
		Sleep:               sleepMetrics{Entries: len(sleep), DurationAvgMin: sleepAvg, Qualities: qualities},
		Fasting:             fastingMetrics{Entries: len(fasting), DurationAvgMin: fastAvg},
		MedicationAdherence: medAdherence,
		SupplementAdherence: suppAdherence,
		Vitals:              vitalsMetrics{Entries: len(vitals), Weight: weight, BloodPressure: bp, HeartRate: hr},
		Framework:           frameworkMetrics{ActiveCount: len(activeFrameworks), ActiveItems: frameworkItems},
	}

	var missingDomains []string
	if len(foods) == 0 {
		missingDomains = append(missingDomains, "nutrition")
	}
	if len(hydration) == 0 {
		missingDomains = append(missingDomains, "hydration")
	}
	if len(exercise) == 0 {
		missingDomains = append(missingDomains, "exercise")
	}
	if len(vitals) == 0 {
		missingDomains = append(missingDomains, "vitals")
	}
	if len(sleep) == 0 {
		missingDomains = append(missingDomains, "sleep")
	}
	if len(activeFrameworks) == 0 {
		missingDomains = append(missingDomains, "health_framework")
	}

	var riskFlags []domain.RiskFlag
	if bp.AvgSystolic != nil && *bp.AvgSystolic >= 140 {
		riskFlags = append(riskFlags, riskFlagFor("bp_elevated_systolic"))
	}
	if bp.AvgDiastolic != nil && *bp.AvgDiastolic >= 90 {
		riskFlags = append(riskFlags, riskFlagFor("bp_elevated_diastolic"))
	}
	sodiumAvg := 0.0
	if days > 0 {
		sodiumAvg = sodiumTotal / float64(days)
	}
	if sodiumAvg >= 2300 {
		riskFlags = append(riskFlags, riskFlagFor("sodium_high"))
	}
	if medAdherence.AdherenceRatio != nil && *medAdherence.AdherenceRatio < 0.7 {
		riskFlags = append(riskFlags, riskFlagFor("medication_adherence_low"))
	}

	return metrics, missingDomains, riskFlags, nil
}

func intPtr(v int) *int { return &v }

// riskFlagFor renders a deterministic risk code into the same shape the
// reasoning model's risk_flags entries use, matching the inline
// dict-comprehension in run_longitudinal_analysis.
func riskFlagFor(code string) domain.RiskFlag {
	severity := "low"
	if containsWord(code, "elevated") {
		severity = "medium"
	}
	return domain.RiskFlag{
		Code:     code,
		Severity: severity,
		Title:    titleFromCode(code),
		Detail:   "Detected from deterministic metrics.",
	}
}

func containsWord(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func titleFromCode(code string) string {
	out := make([]rune, 0, len(code))
	capNext := true
	for _, r := range code {
		if r == '_' {
			out = append(out, ' ')
			capNext = true
			continue
		}
		if capNext && r >= 'a' && r <= 'z' {
			r -= 32
			capNext = false
		}
		out = append(out, r)
	}
	return string(out)
}
