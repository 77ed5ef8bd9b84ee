// Package structured canonicalizes medication and supplement entries into
// the {name, dose, timing} shape stored as JSON text in logs and settings.
// It is a direct Go port of original_source's med_utils.py: family/token
// matching for supplement dedupe, generic-placeholder rejection, and the
// merge/cleanup passes the write tools and settings updater depend on.
package structured

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

var (
	doseRe  = regexp.MustCompile(`(?i)\b(\d[\d,.\s]*(mcg|mg|g|kg|iu|ml|units?|tabs?|caps?|drops?))\b`)
	tokenRe = regexp.MustCompile(`(?i)[a-z0-9]+`)

	suppStopwords = map[string]bool{
		"vitamin": true, "supplement": true, "daily": true, "dose": true,
		"extra": true, "strength": true, "plus": true, "with": true,
		"per": true, "and": true, "the": true, "for": true, "take": true,
		"taking": true,
	}
	shortSuppTokens = map[string]bool{
		"d3": true, "b12": true, "coq10": true, "q10": true, "omega3": true, "omega": true,
	}

	suppAliasMap = map[string]string{
		"d3": "Vitamin D3", "vit d3": "Vitamin D3", "vitamin d": "Vitamin D3",
		"b12": "Vitamin B12", "vit b12": "Vitamin B12",
		"coq10": "Coenzyme Q10", "omega3": "Omega-3", "omega 3": "Omega-3", "omega-3": "Omega-3",
	}

	familyKeywords = map[string][]string{
		"omega3": {"omega3", "omega-3", "omega 3"},
		"d3":     {"d3", "vitamin d", "vit d"},
		"b12":    {"b12", "vitamin b12", "vit b12"},
		"coq10":  {"coq10", "q10"},
	}

	medicationKeywords = map[string]bool{
		"ezetimibe": true, "statin": true, "metformin": true, "lisinopril": true,
		"losartan": true, "candesartan": true, "amlodipine": true,
		"hydrochlorothiazide": true, "atorvastatin": true, "rosuvastatin": true,
		"simvastatin": true, "levothyroxine": true, "insulin": true, "semaglutide": true,
	}

	genericMedicationRe  = regexp.MustCompile(`^(my\s+)?(morning|evening|night|bedtime|daily)?\s*(med|meds|medication|medications)$`)
	genericSupplementRe  = regexp.MustCompile(`^(my\s+)?(morning|evening|night|daily)?\s*(supplement|supplements|vitamin|vitamins)$`)
	lowSignalIntakeRe    = regexp.MustCompile(`^\d+\s*(drops?|daily|caps?|tabs?)`)
)

func familyFromText(text string) (string, bool) {
	t := strings.ToLower(text)
	for family, keywords := range familyKeywords {
		for _, kw := range keywords {
			if strings.Contains(t, kw) {
				return family, true
			}
		}
	}
	return "", false
}

func familyMatchesItem(family, itemName string) bool {
	low := strings.ToLower(itemName)
	for _, kw := range familyKeywords[family] {
		if strings.Contains(low, kw) {
			return true
		}
	}
	return false
}

func suppTokens(text string) map[string]bool {
	out := make(map[string]bool)
	for _, t := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		if t == "omega3" {
			out["omega3"] = true
			out["omega"] = true
			continue
		}
		if suppStopwords[t] {
			continue
		}
		if len(t) >= 3 || shortSuppTokens[t] {
			out[t] = true
		}
	}
	return out
}

// IsLowSignal reports whether name is an orphan fragment like "2 drops" or
// "omega 3" that should be absorbed into a richer sibling entry.
func IsLowSignal(name string) bool {
	t := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	tokens := suppTokens(t)
	if len(tokens) == 0 {
		return true
	}
	if len(tokens) == 1 {
		for tok := range tokens {
			if shortSuppTokens[tok] {
				return true
			}
		}
	}
	return lowSignalIntakeRe.MatchString(t)
}

func looksLikeMedication(name string) bool {
	t := strings.ToLower(name)
	for kw := range medicationKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

func normalizeNameText(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}

// IsGenericMedicationName rejects placeholder names like "my meds" that
// carry no identifying information, per the turn pipeline's canonicalization
// invariant for C3.
func IsGenericMedicationName(name string) bool {
	t := normalizeNameText(name)
	if t == "" {
		return true
	}
	if genericMedicationRe.MatchString(t) {
		return true
	}
	if strings.Contains(t, "med") && !looksLikeMedication(t) {
		return true
	}
	return false
}

// IsGenericSupplementName rejects placeholder names like "my vitamins".
func IsGenericSupplementName(name string) bool {
	t := normalizeNameText(name)
	if t == "" {
		return true
	}
	return genericSupplementRe.MatchString(t)
}

// ToStructured converts a legacy free-text entry into a StructuredItem,
// splitting "Candesartan 4mg" into name + dose when a dose pattern matches.
func ToStructured(entry string) domain.StructuredItem {
	text := strings.Join(strings.Fields(entry), " ")
	if loc := doseRe.FindStringIndex(text); loc != nil {
		dose := strings.TrimSpace(text[loc[0]:loc[1]])
		name := strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
		name = strings.TrimRight(name, " +-,")
		name = strings.TrimLeft(name, " +-,")
		name = strings.TrimSpace(name)
		if name == "" {
			name = dose
			dose = ""
		}
		return domain.StructuredItem{Name: name, Dose: dose}
	}
	return domain.StructuredItem{Name: text}
}

// Display renders a human-readable string from a structured item.
func Display(item domain.StructuredItem) string {
	s := item.Name
	if item.Dose != "" {
		s += " (" + item.Dose + ")"
	}
	if item.Timing != "" {
		s += " — " + item.Timing
	}
	return s
}

// ParseList parses stored JSON text into a list of StructuredItems,
// handling both legacy bare strings/arrays and the new structured array
// shape.
func ParseList(raw string) []domain.StructuredItem {
	txt := strings.TrimSpace(raw)
	if txt == "" {
		return nil
	}
	if strings.HasPrefix(txt, "[") {
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(txt), &arr); err == nil {
			items := make([]domain.StructuredItem, 0, len(arr))
			for _, entry := range arr {
				var s string
				if err := json.Unmarshal(entry, &s); err == nil {
					if strings.TrimSpace(s) != "" {
						items = append(items, ToStructured(s))
					}
					continue
				}
				var item domain.StructuredItem
				if err := json.Unmarshal(entry, &item); err == nil {
					items = append(items, normalizeItem(item))
				}
			}
			return items
		}
	}
	var items []domain.StructuredItem
	if strings.ContainsAny(txt, ";\n") {
		for _, piece := range regexp.MustCompile(`[;\n]+`).Split(txt, -1) {
			piece = strings.TrimSpace(piece)
			if piece != "" {
				items = append(items, ToStructured(piece))
			}
		}
	} else {
		items = append(items, ToStructured(txt))
	}
	return items
}

func normalizeItem(item domain.StructuredItem) domain.StructuredItem {
	return domain.StructuredItem{
		Name:   strings.TrimSpace(item.Name),
		Dose:   strings.TrimSpace(item.Dose),
		Timing: strings.TrimSpace(item.Timing),
	}
}

// MergeList merges newItems into the existing JSON-encoded list, matching
// by exact name, supplement family, or token overlap; richer names and
// non-empty dose/timing win, and low-signal fragments are absorbed into
// matching parents rather than creating duplicate rows.
func MergeList(existingJSON string, newItems []domain.StructuredItem) string {
	merged := ParseList(existingJSON)

	for _, n := range newItems {
		newName := strings.TrimSpace(n.Name)
		newDose := strings.TrimSpace(n.Dose)
		newTiming := strings.TrimSpace(n.Timing)
		if newName == "" {
			continue
		}

		newFamily, hasNewFamily := familyFromText(newName)
		newTokens := suppTokens(newName)
		handled := false

		for idx := range merged {
			exName := merged[idx].Name

			if strings.EqualFold(exName, newName) {
				if newDose != "" {
					merged[idx].Dose = newDose
				}
				if newTiming != "" {
					merged[idx].Timing = newTiming
				}
				handled = true
				break
			}

			exFamily, hasExFamily := familyFromText(exName)
			if hasNewFamily && hasExFamily && newFamily == exFamily {
				lowNew := IsLowSignal(newName)
				lowEx := IsLowSignal(exName)
				switch {
				case lowNew:
					if newDose != "" && merged[idx].Dose == "" {
						merged[idx].Dose = newDose
					}
					if newTiming != "" {
						merged[idx].Timing = newTiming
					}
				case lowEx:
					merged[idx].Name = newName
					if newDose != "" {
						merged[idx].Dose = newDose
					}
					if newTiming != "" {
						merged[idx].Timing = newTiming
					}
				default:
					if len(newName) > len(exName) {
						merged[idx].Name = newName
					}
					if newDose != "" {
						merged[idx].Dose = newDose
					}
					if newTiming != "" {
						merged[idx].Timing = newTiming
					}
				}
				handled = true
				break
			}

			common := intersectionSize(newTokens, suppTokens(exName))
			if common >= 2 || (common == 1 && len(newTokens) <= 2) {
				if IsLowSignal(newName) {
					if newDose != "" {
						merged[idx].Dose = newDose
					}
					if newTiming != "" {
						merged[idx].Timing = newTiming
					}
				} else {
					if len(newName) > len(exName) {
						merged[idx].Name = newName
					}
					if newDose != "" {
						merged[idx].Dose = newDose
					}
					if newTiming != "" {
						merged[idx].Timing = newTiming
					}
				}
				handled = true
				break
			}
		}

		if !handled {
			if IsLowSignal(newName) {
				if hasNewFamily {
					for idx := range merged {
						if familyMatchesItem(newFamily, merged[idx].Name) {
							if newDose != "" {
								merged[idx].Dose = newDose
							}
							if newTiming != "" {
								merged[idx].Timing = newTiming
							}
							handled = true
							break
						}
					}
				}
				if !handled {
					alias := newName
					if a, ok := suppAliasMap[strings.ToLower(newName)]; ok {
						alias = a
					}
					merged = append(merged, domain.StructuredItem{Name: alias, Dose: newDose, Timing: newTiming})
				}
			} else {
				merged = append(merged, domain.StructuredItem{Name: newName, Dose: newDose, Timing: newTiming})
			}
		}
	}

	if len(merged) == 0 {
		return ""
	}
	data, _ := json.Marshal(merged)
	return string(data)
}

// CleanupList parses, deduplicates, and absorbs orphan fragments in a
// stored JSON list, used by the settings migration path.
func CleanupList(raw string) string {
	items := ParseList(raw)
	if len(items) == 0 {
		return raw
	}

	var cleaned []domain.StructuredItem
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		dose := strings.TrimSpace(item.Dose)
		timing := strings.TrimSpace(item.Timing)
		if name == "" {
			continue
		}

		family, hasFamily := familyFromText(name)
		merged := false

		for idx := range cleaned {
			exFamily, hasExFamily := familyFromText(cleaned[idx].Name)
			if hasFamily && hasExFamily && family == exFamily {
				if len(name) > len(cleaned[idx].Name) {
					cleaned[idx].Name = name
				}
				if dose != "" && cleaned[idx].Dose == "" {
					cleaned[idx].Dose = dose
				} else if dose != "" && len(dose) > len(cleaned[idx].Dose) {
					cleaned[idx].Dose = dose
				}
				if timing != "" {
					cleaned[idx].Timing = timing
				}
				merged = true
				break
			}
			if strings.EqualFold(cleaned[idx].Name, name) {
				if dose != "" {
					cleaned[idx].Dose = dose
				}
				if timing != "" {
					cleaned[idx].Timing = timing
				}
				merged = true
				break
			}
		}

		if !merged {
			if IsLowSignal(name) {
				if hasFamily {
					for idx := range cleaned {
						if familyMatchesItem(family, cleaned[idx].Name) {
							if dose != "" {
								cleaned[idx].Dose = dose
							}
							if timing != "" {
								cleaned[idx].Timing = timing
							}
							merged = true
							break
						}
					}
				}
				if !merged {
					alias := name
					if a, ok := suppAliasMap[strings.ToLower(name)]; ok {
						alias = a
					}
					cleaned = append(cleaned, domain.StructuredItem{Name: alias, Dose: dose, Timing: timing})
				}
			} else {
				cleaned = append(cleaned, domain.StructuredItem{Name: name, Dose: dose, Timing: timing})
			}
		}
	}

	data, _ := json.Marshal(cleaned)
	return string(data)
}

func intersectionSize(a, b map[string]bool) int {
	n := 0
	for k := range a {
		if b[k] {
			n++
		}
	}
	return n
}
