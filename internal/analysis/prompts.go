package analysis

// Prompt text is carried over near-verbatim from
// original_source/backend/services/analysis_service.py's
// UTILITY_SIGNAL_PROMPT / REASONING_SYNTHESIS_PROMPT / DEEP_SYNTHESIS_PROMPT
// constants; only the specialist id enum in the deep prompt was updated to
// match this core's specialist roster.

const utilitySignalPrompt = `Extract short longitudinal signal annotations from these notes.
Return JSON only:
{
  "energy_signals": ["short statements"],
  "stress_signals": ["short statements"],
  "symptom_signals": ["short statements"],
  "adherence_signals": ["short statements"],
  "confidence": 0.0
}
Rules:
- Use only provided notes.
- Keep each statement <= 20 words.
- If nothing is relevant, return empty arrays and low confidence.`

const reasoningSynthesisPrompt = `You are a longitudinal health analytics assistant.
Analyze the supplied user metrics and produce adaptation proposals.

Return JSON only:
{
  "confidence": 0.0,
  "summary_markdown": "markdown summary",
  "risk_flags": [
    {"code": "short_code", "severity": "low|medium|high", "title": "title", "detail": "detail"}
  ],
  "recommendations": [
    {"title": "title", "detail": "detail", "priority": "low|medium|high", "requires_user_confirmation": true}
  ],
  "proposals": [
    {
      "proposal_kind": "guidance_update|experiment|prompt_adjustment",
      "title": "title",
      "rationale": "why",
      "confidence": 0.0,
      "payload": {"target": "domain|framework", "changes": ["concrete change"]},
      "diff_markdown": "optional prompt diff markdown"
    }
  ]
}
Rules:
- Never claim certainty beyond provided data.
- Missing data must reduce confidence and be mentioned in summary.
- Do not include direct medication changes unless framed as ask-user-to-confirm with clinician.
- If active frameworks are present, align recommendations with them or explicitly explain conflicts.
- Framework proposals must only add, reprioritize, or deactivate; never delete.
- If proposing framework changes, use payload:
  {"target":"framework","operations":[{"op":"upsert|update","framework_type":"...","name":"...","priority_score":0-100,"is_active":true|false,"rationale":"..."}]}
- Keep safety-focused tone and objective language.`

const deepSynthesisPrompt = `You are doing monthly root-cause synthesis.
Given existing monthly synthesis output, generate additional high-value hypotheses and optional prompt tuning proposals.

Return JSON only:
{
  "root_causes": ["hypothesis 1", "hypothesis 2"],
  "prompt_adjustment_proposals": [
    {
      "title": "title",
      "rationale": "why this prompt change helps",
      "confidence": 0.0,
      "payload": {"specialist_id": "nutritionist|movement_coach|sleep_expert|supplement_auditor|safety_clinician|orchestrator", "changes": ["change"]},
      "diff_markdown": "` + "```diff\\n...\\n```" + `"
    }
  ],
  "confidence": 0.0
}
Rules:
- Keep outputs concise and specific.`

// strictJSONSystemPrompt is passed as the System field on every utility,
// reasoning, and deep-thinking call this package makes.
const strictJSONSystemPrompt = "Return strict JSON only."

// proposalTitleStopwords is stripped from title tokens before similarity
// scoring, matching PROPOSAL_TITLE_STOPWORDS.
var proposalTitleStopwords = map[string]bool{
	"and": true, "for": true, "the": true, "with": true, "from": true,
	"into": true, "your": true, "this": true, "that": true, "user": true,
	"daily": true, "today": true, "toward": true, "towards": true,
	"improve": true, "improvement": true, "enhance": true, "enhancement": true,
}
