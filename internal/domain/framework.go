package domain

import "time"

// FrameworkType is the closed set of health-optimization framework groups.
type FrameworkType string

const (
	FrameworkDietary        FrameworkType = "dietary"
	FrameworkTraining       FrameworkType = "training"
	FrameworkMetabolicTiming FrameworkType = "metabolic_timing"
	FrameworkMicronutrient  FrameworkType = "micronutrient"
	FrameworkExpertDerived  FrameworkType = "expert_derived"
)

// HealthOptimizationFramework is a user-scoped, priority-weighted strategy
// (e.g. "DASH", "Zone 2") that contributes to the context prompt and to
// proposal alignment.
type HealthOptimizationFramework struct {
	ID        int64
	UserID    int64
	Type      FrameworkType
	Name      string
	Priority  int // 0..100
	IsActive  bool
	Source    string
	Rationale string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FrameworkClassifierLabels maps each FrameworkType to the short label shown
// next to a framework's name in the context prompt.
var FrameworkClassifierLabels = map[FrameworkType]string{
	FrameworkDietary:         "Dietary Strategy",
	FrameworkTraining:        "Training Approach",
	FrameworkMetabolicTiming: "Metabolic Timing",
	FrameworkMicronutrient:   "Micronutrient Protocol",
	FrameworkExpertDerived:   "Expert-Derived Protocol",
}

// WeightPercent returns this framework's share of the total active priority
// weight among the given active set. The context builder does not call it:
// it computes each framework's share within its own type group.
func WeightPercent(active []HealthOptimizationFramework, f HealthOptimizationFramework) float64 {
	var total int
	for _, a := range active {
		if a.IsActive {
			total += a.Priority
		}
	}
	if total == 0 {
		return 0
	}
	return float64(f.Priority) / float64(total) * 100
}
