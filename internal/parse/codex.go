package parse

import (
	"encoding/json"
	"strings"
)

// Top-level record in Codex JSONL
type codexRecord struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// session_meta payload
type codexSessionMeta struct {
	Cwd string `json:"cwd"`
}

// event_msg payload (flat, not nested)
type codexEventPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"` // for user_message
	Text    string `json:"text"`    // for agent_reasoning
}

// response_item payload
type codexResponsePayload struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func decodeCodexLine(line []byte) lineRecord {
	var rec codexRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return lineRecord{malformed: true}
	}

	switch rec.Type {
	case "session_meta":
		var meta codexSessionMeta
		if err := json.Unmarshal(rec.Payload, &meta); err != nil {
			return lineRecord{malformed: true}
		}
		return lineRecord{cwd: meta.Cwd}

	case "event_msg":
		var evt codexEventPayload
		if err := json.Unmarshal(rec.Payload, &evt); err != nil {
			return lineRecord{malformed: true}
		}
		switch evt.Type {
		case "user_message":
			return lineRecord{messages: []Message{{
				Role: RoleUser,
				Kind: KindText,
				Text: strings.TrimSpace(evt.Message),
			}}}
		case "agent_reasoning":
			return lineRecord{messages: []Message{{
				Role: RoleAssistant,
				Kind: KindThinking,
				Text: strings.TrimSpace(evt.Text),
			}}}
		}

	case "response_item":
		var item codexResponsePayload
		if err := json.Unmarshal(rec.Payload, &item); err != nil {
			return lineRecord{malformed: true}
		}
		// only actual message items (user input or assistant output)
		if item.Type != "message" {
			return lineRecord{}
		}
		role := RoleAssistant
		if item.Role != "" {
			role = ParseRole(item.Role)
		}
		var parts []string
		for _, c := range item.Content {
			if (c.Type == "input_text" || c.Type == "output_text" || c.Type == "text") && c.Text != "" {
				parts = append(parts, c.Text)
			}
		}
		return lineRecord{messages: []Message{{
			Role: role,
			Kind: KindText,
			Text: strings.TrimSpace(strings.Join(parts, "\n")),
		}}}
	}

	return lineRecord{}
}
