package models

import (
	"encoding/json"
	"strings"
)

type PayloadKind string

const (
	PayloadVisualCard         PayloadKind = "visual_card"
	PayloadTypographicThought PayloadKind = "typographic_thought"
	PayloadBinaryPoll         PayloadKind = "binary_poll"
	PayloadMixedStack         PayloadKind = "mixed_stack"
	PayloadOpaque             PayloadKind = "opaque"
)

// Payload is the renderer-facing body of a post. Exactly one of the variant
// pointers is set unless Kind is PayloadOpaque. Raw is always the JSON the
// model produced and is what gets persisted.
type Payload struct {
	Kind        PayloadKind
	VisualCard  *VisualCard
	Typographic *TypographicThought
	Poll        *BinaryPoll
	Stack       *MixedStack
	Raw         json.RawMessage
}

type VisualCard struct {
	ImageURL    string `json:"image_url,omitempty"`
	ImagePrompt string `json:"image_prompt,omitempty"`
	Caption     string `json:"caption,omitempty"`
}

type TypographicThought struct {
	Quote string `json:"quote"`
}

type PollOption struct {
	Label string `json:"label"`
}

type BinaryPoll struct {
	Question string       `json:"question,omitempty"`
	Options  []PollOption `json:"options"`
}

type Block struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

type MixedStack struct {
	Blocks []Block `json:"blocks"`
}

// ClassifyPayload applies the feed renderer's precedence: an explicit type or
// the presence of the variant's signature field selects it, checked in the
// order visual card, typographic thought, binary poll, mixed stack.
func ClassifyPayload(raw json.RawMessage) Payload {
	p := Payload{Kind: PayloadOpaque, Raw: cloneRaw(raw)}
	fields := decodeObject(raw)
	if len(fields) == 0 {
		return p
	}
	kind := stringField(fields, "type")
	image := decodeObject(fields["image"])
	imageURL := stringField(fields, "image_url")
	if imageURL == "" {
		imageURL = stringField(image, "url")
	}

	switch {
	case kind == string(PayloadVisualCard) || present(fields, "image") || imageURL != "":
		p.Kind = PayloadVisualCard
		p.VisualCard = &VisualCard{
			ImageURL:    imageURL,
			ImagePrompt: stringField(image, "prompt"),
			Caption:     stringField(fields, "caption"),
		}
	case kind == string(PayloadTypographicThought) || stringField(fields, "quote") != "":
		p.Kind = PayloadTypographicThought
		p.Typographic = &TypographicThought{Quote: stringField(fields, "quote")}
	case kind == string(PayloadBinaryPoll) || present(fields, "options"):
		p.Kind = PayloadBinaryPoll
		p.Poll = &BinaryPoll{
			Question: stringField(fields, "question"),
			Options:  pollOptions(fields["options"]),
		}
	case kind == string(PayloadMixedStack) || present(fields, "blocks"):
		p.Kind = PayloadMixedStack
		p.Stack = &MixedStack{Blocks: blocks(fields["blocks"])}
	}
	return p
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p.Raw) == 0 {
		return []byte(`{}`), nil
	}
	return p.Raw, nil
}

func (p *Payload) UnmarshalJSON(b []byte) error {
	*p = ClassifyPayload(b)
	return nil
}

func present(fields map[string]json.RawMessage, key string) bool {
	raw, ok := fields[key]
	if !ok {
		return false
	}
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "false", `""`, "0":
		return false
	}
	return true
}

func pollOptions(raw json.RawMessage) []PollOption {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []PollOption{}
	}
	out := make([]PollOption, 0, len(items))
	for _, item := range items {
		var label string
		if err := json.Unmarshal(item, &label); err == nil {
			out = append(out, PollOption{Label: label})
			continue
		}
		out = append(out, PollOption{Label: stringField(decodeObject(item), "label")})
	}
	return out
}

func blocks(raw json.RawMessage) []Block {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []Block{}
	}
	out := make([]Block, 0, len(items))
	for _, item := range items {
		fields := decodeObject(item)
		out = append(out, Block{
			Type: stringField(fields, "type"),
			Text: stringField(fields, "text"),
			URL:  stringField(fields, "url"),
		})
	}
	return out
}
