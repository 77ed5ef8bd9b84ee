package contextbuilder

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

func clipBlock(text string, maxChars int) string {
	raw := strings.TrimSpace(text)
	if maxChars <= 0 || len(raw) <= maxChars {
		return raw
	}
	keep := maxChars - 24
	if keep < 80 {
		keep = 80
	}
	if keep > len(raw) {
		keep = len(raw)
	}
	return strings.TrimRight(raw[:keep], " \t\n") + "\n...[truncated]"
}

func cmToFtIn(cm float64) (feet, inches int) {
	totalIn := cm / 2.54
	feet = int(totalIn / 12)
	inches = int(math.Round(totalIn - float64(feet)*12))
	if inches == 12 {
		feet++
		inches = 0
	}
	return feet, inches
}

func kgToLb(kg float64) float64 { return kg * 2.20462 }
func mlToOz(ml float64) float64 { return ml / 29.5735 }

func formatHeight(cmValue float64, unit domain.HeightUnit) string {
	if unit == domain.HeightUnitIn {
		ft, in := cmToFtIn(cmValue)
		return fmt.Sprintf("%d ft %d in", ft, in)
	}
	return fmt.Sprintf("%.1f cm", cmValue)
}

func formatWeight(kgValue float64, unit domain.WeightUnit) string {
	if unit == domain.WeightUnitLB {
		return fmt.Sprintf("%.1f lb", kgToLb(kgValue))
	}
	return fmt.Sprintf("%.1f kg", kgValue)
}

func formatHydration(mlValue float64, unit domain.HydrationUnit) string {
	if unit == domain.HydrationUnitOz {
		return fmt.Sprintf("%.1f oz", mlToOz(mlValue))
	}
	return fmt.Sprintf("%.0f ml", mlValue)
}

// formatUserProfile renders a user's settings into the "Current User
// Profile" section, formatted with their preferred units.
func formatUserProfile(settings *domain.UserSettings) string {
	if settings == nil {
		return "No profile configured yet."
	}
	heightUnit := settings.HeightUnit
	if heightUnit == "" {
		heightUnit = domain.HeightUnitCM
	}
	weightUnit := settings.WeightUnit
	if weightUnit == "" {
		weightUnit = domain.WeightUnitKG
	}
	hydrationUnit := settings.HydrationUnit
	if hydrationUnit == "" {
		hydrationUnit = domain.HydrationUnitML
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("- Preferred units: height=%s, weight=%s, hydration=%s", heightUnit, weightUnit, hydrationUnit))
	if settings.AgeYears > 0 {
		lines = append(lines, fmt.Sprintf("- Age: %d", settings.AgeYears))
	}
	if settings.Sex != "" {
		lines = append(lines, fmt.Sprintf("- Sex: %s", settings.Sex))
	}
	if settings.HeightCM > 0 {
		lines = append(lines, "- Height: "+formatHeight(settings.HeightCM, heightUnit))
	}
	if settings.WeightKG > 0 {
		lines = append(lines, "- Current weight: "+formatWeight(settings.WeightKG, weightUnit))
	}
	if settings.GoalWeight > 0 {
		lines = append(lines, "- Goal weight: "+formatWeight(settings.GoalWeight, weightUnit))
	}
	if settings.FitnessLevel != "" {
		lines = append(lines, "- Fitness level: "+settings.FitnessLevel)
	}
	if len(settings.MedicalConditions) > 0 {
		lines = append(lines, "- Medical conditions: "+strings.Join(settings.MedicalConditions, ", "))
	}
	if len(settings.HealthGoals) > 0 {
		lines = append(lines, "- Health goals: "+strings.Join(settings.HealthGoals, ", "))
	}
	if len(settings.DietaryPreferences) > 0 {
		lines = append(lines, "- Dietary preferences: "+strings.Join(settings.DietaryPreferences, ", "))
	}
	if len(lines) == 0 {
		return "Profile not yet configured."
	}
	return strings.Join(lines, "\n")
}

func formatStructuredItems(items []domain.StructuredItem) string {
	if len(items) == 0 {
		return "None reported."
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		line := it.Name
		if it.Dose != "" {
			line += fmt.Sprintf(" (%s)", it.Dose)
		}
		if it.Timing != "" {
			line += " — " + it.Timing
		}
		lines = append(lines, "- "+line)
	}
	return strings.Join(lines, "\n")
}

// formatActiveFrameworks renders each active framework with its
// weight-percent allocation within its type group, per the context budget rules.
func formatActiveFrameworks(frameworks []domain.HealthOptimizationFramework) string {
	var active []domain.HealthOptimizationFramework
	for _, f := range frameworks {
		if f.IsActive {
			active = append(active, f)
		}
	}
	if len(active) == 0 {
		return "No active frameworks yet. Use Settings > Framework to activate prioritized strategies."
	}

	byTypeTotal := make(map[domain.FrameworkType]int)
	for _, f := range active {
		if f.Priority > 0 {
			byTypeTotal[f.Type] += f.Priority
		}
	}

	var lines []string
	for _, f := range active {
		label := domain.FrameworkClassifierLabels[f.Type]
		if label == "" {
			label = string(f.Type)
		}
		source := ""
		if f.Source != "" {
			source = " [" + f.Source + "]"
		}
		total := byTypeTotal[f.Type]
		weightPct := 0
		if total > 0 {
			weightPct = int(math.Round(float64(f.Priority) / float64(total) * 100))
		}
		lines = append(lines, fmt.Sprintf("- (%d, %d%% allocation) %s - %s%s", f.Priority, weightPct, f.Name, label, source))
		if f.Rationale != "" {
			lines = append(lines, "  - Rationale: "+f.Rationale)
		}
	}
	return strings.Join(lines, "\n")
}

// formatTodaySnapshot renders the day's logged activity: meal totals,
// hydration, latest vitals, exercise, latest sleep, and an active fast.
func formatTodaySnapshot(
	localDate time.Time,
	weightUnit domain.WeightUnit,
	hydrationUnit domain.HydrationUnit,
	foods []domain.FoodLog,
	hydration []domain.HydrationLog,
	latestVitals *domain.VitalsLog,
	exercises []domain.ExerciseLog,
	latestSleep *domain.SleepLog,
	activeFast *domain.FastingLog,
	now time.Time,
) string {
	var sections []string
	sections = append(sections, "Date: "+localDate.Format("2006-01-02"))

	if len(foods) > 0 {
		var totalCal, totalProtein, totalCarbs, totalFat, totalFiber, totalSodium float64
		var meals []string
		for _, f := range foods {
			totalCal += f.CaloriesKcal
			totalProtein += f.ProteinG
			totalCarbs += f.CarbsG
			totalFat += f.FatG
			totalFiber += f.FiberG
			totalSodium += f.SodiumMg
			names := make([]string, 0, len(f.Items))
			for _, it := range f.Items {
				names = append(names, it.Name)
			}
			label := f.MealLabel
			if label == "" {
				label = "Meal"
			}
			calStr := "?"
			if f.CaloriesKcal > 0 {
				calStr = fmt.Sprintf("%.0f", f.CaloriesKcal)
			}
			meals = append(meals, fmt.Sprintf("  - %s: %s (%s cal)", label, strings.Join(names, ", "), calStr))
		}
		sections = append(sections, fmt.Sprintf("Meals today (%d):\n%s", len(foods), strings.Join(meals, "\n")))
		sections = append(sections, fmt.Sprintf(
			"Running totals: %.0f cal | %.0fg protein | %.0fg carbs | %.0fg fat | %.0fg fiber | %.0fmg sodium",
			totalCal, totalProtein, totalCarbs, totalFat, totalFiber, totalSodium,
		))
	} else {
		sections = append(sections, "No meals logged today.")
	}

	if len(hydration) > 0 {
		var totalML float64
		for _, h := range hydration {
			totalML += h.VolumeML
		}
		sections = append(sections, "Hydration: "+formatHydration(totalML, hydrationUnit))
	} else {
		sections = append(sections, "No hydration logged today.")
	}

	if latestVitals != nil {
		var parts []string
		if latestVitals.WeightKG > 0 {
			parts = append(parts, "Weight: "+formatWeight(latestVitals.WeightKG, weightUnit))
		}
		if latestVitals.BPSystolic > 0 && latestVitals.BPDiastolic > 0 {
			parts = append(parts, fmt.Sprintf("BP: %d/%d", latestVitals.BPSystolic, latestVitals.BPDiastolic))
		}
		if latestVitals.HeartRate > 0 {
			parts = append(parts, fmt.Sprintf("HR: %d", latestVitals.HeartRate))
		}
		if len(parts) > 0 {
			sections = append(sections, "Latest vitals: "+strings.Join(parts, " | "))
		}
	}

	if len(exercises) > 0 {
		lines := make([]string, 0, len(exercises))
		for _, e := range exercises {
			dur := "?"
			if e.DurationMinutes > 0 {
				dur = fmt.Sprintf("%d", e.DurationMinutes)
			}
			lines = append(lines, fmt.Sprintf("  - %s: %s min", e.ExerciseType, dur))
		}
		sections = append(sections, "Exercise today:\n"+strings.Join(lines, "\n"))
	}

	if latestSleep != nil {
		var parts []string
		if latestSleep.DurationMinutes > 0 {
			hours := latestSleep.DurationMinutes / 60
			minutes := latestSleep.DurationMinutes % 60
			parts = append(parts, fmt.Sprintf("Duration: %dh %dm", hours, minutes))
		}
		if latestSleep.Quality > 0 {
			parts = append(parts, fmt.Sprintf("Quality: %d", latestSleep.Quality))
		}
		if !latestSleep.SleepStart.IsZero() {
			parts = append(parts, "Start: "+latestSleep.SleepStart.Format(time.RFC3339))
		}
		if !latestSleep.SleepEnd.IsZero() {
			parts = append(parts, "End: "+latestSleep.SleepEnd.Format(time.RFC3339))
		}
		if len(parts) > 0 {
			sections = append(sections, "Latest sleep: "+strings.Join(parts, " | "))
		}
	}

	if activeFast.Open() {
		duration := now.Sub(activeFast.FastStart).Hours()
		sections = append(sections, fmt.Sprintf("Active fast: Started at %s, duration: %.1f hours", activeFast.FastStart.Format(time.RFC3339), duration))
	}

	return strings.Join(sections, "\n")
}
