// Package prompt renders planner and generator inputs into instruction
// strings. Nothing here validates upstream content.
package prompt

import (
	"encoding/json"
	"strings"

	"para/internal/models"
)

const (
	PlannerSystem   = "You are a planning assistant for Para. Output JSON only. No analysis or markdown."
	GeneratorSystem = "You are a content agent for Para. Output JSON only. No analysis or markdown."

	defaultAudience    = "general"
	defaultConstraints = "none"
)

type PlannerInput struct {
	ChannelName   string
	Mission       string
	Task          string
	Audience      string
	Constraints   string
	MemorySummary any
}

type GeneratorInput struct {
	ChannelName string
	Mission     string
	Plan        models.Plan
	Research    []models.ResearchResult
	Image       *models.ImageAsset
}

func Planner(in PlannerInput) string {
	audience := in.Audience
	if strings.TrimSpace(audience) == "" {
		audience = defaultAudience
	}
	constraints := in.Constraints
	if strings.TrimSpace(constraints) == "" {
		constraints = defaultConstraints
	}
	return strings.Join([]string{
		"Channel name: " + in.ChannelName,
		"Mission: " + in.Mission,
		"Task: " + in.Task,
		"Audience: " + audience,
		"Constraints: " + constraints,
		"Memory summary: " + toJSON(in.MemorySummary),
		"Output JSON only with keys: intent, target_format, hypothesis, content_brief, success_signals. " +
			"Optionally include search_queries (array of strings), image_needed (boolean) and image_prompt (string).",
	}, "\n")
}

func Generator(in GeneratorInput) string {
	research := in.Research
	if research == nil {
		research = []models.ResearchResult{}
	}
	return strings.Join([]string{
		"Channel name: " + in.ChannelName,
		"Mission: " + in.Mission,
		"Plan: " + toJSON(in.Plan),
		"Research: " + toJSON(research),
		"Image: " + toJSON(in.Image),
		"Output JSON only with keys: title, payload. " +
			"payload.type is one of visual_card, typographic_thought, binary_poll, mixed_stack.",
	}, "\n")
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
