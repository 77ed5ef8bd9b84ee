// Package logparser extracts structured logging data (food, vitals,
// exercise, supplements, fasting, sleep, hydration) from a user's free-form
// message, using a utility-model call with a deterministic regex-based
// fallback when the call is skipped or fails. Ported from
// original_source/backend/ai/log_parser.py.
package logparser

import "github.com/jmouallem/claude-longevity-sub000/internal/intent"

const parseFoodPrompt = `Extract structured food logging data from this message. The user is logging what they ate or drank.

Return ONLY valid JSON with this structure:
{
    "logged_at": "ISO datetime or HH:MM or null",
    "meal_label": "Meal 1" or "Snack" or "Lunch" etc.,
    "items": [{"name": "food name", "quantity": "amount", "unit": "g/oz/cups/etc"}],
    "calories": estimated total calories (number),
    "protein_g": estimated grams (number),
    "carbs_g": estimated grams (number),
    "fat_g": estimated grams (number),
    "fiber_g": estimated grams (number),
    "sodium_mg": estimated mg (number),
    "notes": "any relevant notes"
}

Be as accurate as possible with nutritional estimates. If unsure, provide reasonable estimates and note they are estimated.`

const parseVitalsPrompt = `Extract structured vitals data from this message.

Return ONLY valid JSON with this structure:
{
    "logged_at": "ISO datetime or HH:MM or null",
    "weight_kg": number or null,
    "bp_systolic": number or null,
    "bp_diastolic": number or null,
    "heart_rate": number or null,
    "blood_glucose": number or null,
    "temperature_c": number or null,
    "spo2": number or null,
    "notes": "any relevant notes"
}

Convert units if needed (lbs to kg: divide by 2.205, °F to °C: (F-32)*5/9).
Only include fields that were mentioned.`

const parseExercisePrompt = `Extract structured exercise data from this message.

Return ONLY valid JSON with this structure:
{
    "logged_at": "ISO datetime or HH:MM or null",
    "exercise_type": "zone2_cardio" | "strength" | "hiit" | "mobility" | "walk" | "run" | "cycling" | "swimming" | "yoga" | "other",
    "duration_minutes": number,
    "details": {"exercises": [], "sets": null, "reps": null, "weight": null, "distance": null, "incline": null, "speed": null},
    "max_hr": number or null,
    "avg_hr": number or null,
    "calories_burned": estimated number or null,
    "notes": "any relevant notes"
}`

const parseSupplementPrompt = `Extract structured supplement/medication intake data from this message.

Return ONLY valid JSON with this structure:
{
    "logged_at": "ISO datetime or HH:MM or null",
    "supplements": [{"name": "supplement name", "dose": "amount with unit"}],
    "timing": "morning" | "with_meal" | "evening" | "pre_workout" | "post_workout",
    "notes": "any relevant notes"
}`

const parseFastingPrompt = `Extract fasting intent from this message.

Return ONLY valid JSON with this structure:
{
    "action": "start" | "end",
    "fast_start": "ISO datetime or HH:MM or null",
    "fast_end": "ISO datetime or HH:MM or null",
    "fast_type": "training_day" | "recovery_day" | "extended" | null,
    "notes": "any relevant notes"
}`

const parseSleepPrompt = `Extract sleep data from this message.

Return ONLY valid JSON with this structure:
{
    "action": "start" | "end" | "auto",
    "sleep_start": "HH:MM" or null,
    "sleep_end": "HH:MM" or null,
    "duration_minutes": number or null,
    "quality": "poor" | "fair" | "good" | "excellent" | null,
    "notes": "any relevant notes"
}

Rules:
- If user indicates going to bed/sleeping now, set action to "start".
- If user indicates waking up or ending sleep, set action to "end".
- If no explicit clock time is provided, leave sleep_start/sleep_end as null.
- If uncertain, use action = "auto".`

const parseHydrationPrompt = `Extract hydration data from this message.

Return ONLY valid JSON with this structure:
{
    "logged_at": "ISO datetime or HH:MM or null",
    "amount_ml": number (convert cups to ml: 1 cup = 250ml, 1 glass = 250ml, 1 bottle = 500ml, 1 liter = 1000ml),
    "source": "water" | "coffee" | "tea" | "broth" | "juice" | "other",
    "notes": "any relevant notes"
}`

// categoryToPrompt maps each loggable category to its extraction prompt.
// Categories outside this map (questions, intake_profile, general_chat)
// have nothing to parse.
var categoryToPrompt = map[intent.Category]string{
	intent.CategoryLogFood:       parseFoodPrompt,
	intent.CategoryLogVitals:     parseVitalsPrompt,
	intent.CategoryLogExercise:   parseExercisePrompt,
	intent.CategoryLogSupplement: parseSupplementPrompt,
	intent.CategoryLogFasting:    parseFastingPrompt,
	intent.CategoryLogSleep:      parseSleepPrompt,
	intent.CategoryLogHydration:  parseHydrationPrompt,
}

const extractionSystemPrompt = "You are a data extraction assistant. Return only valid JSON, no explanation."
