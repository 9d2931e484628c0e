package models

import (
	"encoding/json"
	"strings"
)

// Plan is the planner's structured output. Models are trusted to use the
// requested keys but nothing is enforced, so every field is read leniently
// and Raw keeps exactly what the model returned.
type Plan struct {
	Intent         string   `json:"intent"`
	TargetFormat   string   `json:"target_format"`
	Hypothesis     string   `json:"hypothesis"`
	ContentBrief   string   `json:"content_brief"`
	SuccessSignals []string `json:"success_signals"`
	SearchQueries  []string `json:"search_queries,omitempty"`
	ImageNeeded    bool     `json:"image_needed,omitempty"`
	ImagePrompt    string   `json:"image_prompt,omitempty"`

	Raw json.RawMessage `json:"-"`
}

func ParsePlan(raw json.RawMessage) Plan {
	fields := decodeObject(raw)
	return Plan{
		Intent:         stringField(fields, "intent"),
		TargetFormat:   stringField(fields, "target_format"),
		Hypothesis:     stringField(fields, "hypothesis"),
		ContentBrief:   stringField(fields, "content_brief"),
		SuccessSignals: stringListField(fields, "success_signals"),
		SearchQueries:  stringListField(fields, "search_queries"),
		ImageNeeded:    truthyField(fields, "image_needed"),
		ImagePrompt:    stringField(fields, "image_prompt"),
		Raw:            cloneRaw(raw),
	}
}

// WantsImage reports whether the image stage should run: an explicit flag or
// a target format mentioning "visual".
func (p Plan) WantsImage() bool {
	return p.ImageNeeded || strings.Contains(strings.ToLower(p.TargetFormat), "visual")
}

func (p Plan) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	type plain Plan
	return json.Marshal(plain(p))
}

func (p *Plan) UnmarshalJSON(b []byte) error {
	*p = ParsePlan(b)
	return nil
}

// PostOutput is the generator's structured output.
type PostOutput struct {
	Title   string  `json:"title"`
	Payload Payload `json:"payload"`

	Raw json.RawMessage `json:"-"`
}

func ParsePostOutput(raw json.RawMessage) PostOutput {
	fields := decodeObject(raw)
	payloadRaw, ok := fields["payload"]
	if !ok || len(payloadRaw) == 0 || string(payloadRaw) == "null" {
		payloadRaw = json.RawMessage(`{}`)
	}
	return PostOutput{
		Title:   stringField(fields, "title"),
		Payload: ClassifyPayload(payloadRaw),
		Raw:     cloneRaw(raw),
	}
}

func (o PostOutput) MarshalJSON() ([]byte, error) {
	if len(o.Raw) > 0 {
		return o.Raw, nil
	}
	return json.Marshal(struct {
		Title   string  `json:"title"`
		Payload Payload `json:"payload"`
	}{o.Title, o.Payload})
}

func (o *PostOutput) UnmarshalJSON(b []byte) error {
	*o = ParsePostOutput(b)
	return nil
}

type ResearchItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

type ResearchResult struct {
	Query   string         `json:"query"`
	Results []ResearchItem `json:"results"`
}

type ImageAsset struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

func decodeObject(raw json.RawMessage) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return map[string]json.RawMessage{}
	}
	return fields
}

func stringField(fields map[string]json.RawMessage, key string) string {
	var s string
	if err := json.Unmarshal(fields[key], &s); err != nil {
		return ""
	}
	return s
}

// stringListField reads a list the way the renderer sees it: every array
// entry counts, non-string entries keep their JSON text, and a bare
// non-empty string is a one-item list.
func stringListField(fields map[string]json.RawMessage, key string) []string {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		out = append(out, string(item))
	}
	return out
}

// truthyField follows JSON truthiness: false, 0, "" and null are false,
// everything else (including the string "false") is true.
func truthyField(fields map[string]json.RawMessage, key string) bool {
	var v any
	if err := json.Unmarshal(fields[key], &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
