package parse

import (
	"encoding/json"
	"strings"
)

type claudeRecord struct {
	Type      string          `json:"type"`
	IsMeta    bool            `json:"isMeta"`
	Message   json.RawMessage `json:"message"`
	Summary   string          `json:"summary"`   // type="summary"
	Operation string          `json:"operation"` // type="queue-operation"
	Content   json.RawMessage `json:"content"`   // type="queue-operation" / "system"
	Data      json.RawMessage `json:"data"`      // type="progress"
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type claudeContentBlock struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	Thinking string          `json:"thinking"`
	Name     string          `json:"name"`
	Input    json.RawMessage `json:"input"`
	Content  json.RawMessage `json:"content"`
}

type claudeProgress struct {
	Type       string `json:"type"`
	Status     string `json:"status"`
	ServerName string `json:"serverName"`
	ToolName   string `json:"toolName"`
	HookEvent  string `json:"hookEvent"`
	HookName   string `json:"hookName"`
	Command    string `json:"command"`
}

func isClaudeType(t string) bool {
	switch t {
	case "user", "assistant", "summary", "system", "progress", "queue-operation":
		return true
	}
	return false
}

func decodeClaudeLine(line []byte) lineRecord {
	var rec claudeRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return lineRecord{malformed: true}
	}

	switch rec.Type {
	case "summary":
		return lineRecord{summary: rec.Summary}

	case "queue-operation":
		return lineRecord{messages: []Message{{
			Role: RoleUnknown,
			Kind: KindEvent,
			Text: labelled("queue", rec.Operation, rawText(rec.Content)),
		}}}

	case "progress":
		return lineRecord{messages: []Message{{
			Role: RoleUnknown,
			Kind: KindEvent,
			Text: progressText(rec.Data),
		}}}

	case "system":
		text := rawText(rec.Content)
		if text == "" {
			text = compactJSON(line, 1000)
		}
		return lineRecord{messages: []Message{{
			Role: RoleUnknown,
			Kind: KindEvent,
			Text: labelled("system", text),
		}}}
	}

	if rec.IsMeta {
		return lineRecord{}
	}

	var msg claudeMessage
	if len(rec.Message) > 0 {
		if err := json.Unmarshal(rec.Message, &msg); err != nil {
			// some records carry message as a bare string
			var s string
			if json.Unmarshal(rec.Message, &s) != nil {
				return lineRecord{malformed: true}
			}
			msg.Content, _ = json.Marshal(s)
		}
	}

	role := ParseRole(rec.Type)
	content := extractClaudeContent(msg.Content)

	var out []Message
	// thinking before text, in recording order within the line
	if content.Thinking != "" {
		out = append(out, Message{Role: role, Kind: KindThinking, Text: content.Thinking})
	}
	if content.Text != "" {
		kind := KindText
		if content.toolOnly {
			kind = KindTool
		}
		out = append(out, Message{Role: role, Kind: kind, Text: content.Text})
	}
	return lineRecord{messages: out}
}

type extractedContent struct {
	Text     string
	Thinking string
	toolOnly bool
}

func extractClaudeContent(raw json.RawMessage) extractedContent {
	if len(raw) == 0 {
		return extractedContent{}
	}

	// try string first
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return extractedContent{Text: strings.TrimSpace(s)}
	}

	// try array of content blocks
	var blocks []claudeContentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return extractedContent{}
	}

	var textParts, thinkParts []string
	plain := false
	for _, b := range blocks {
		switch b.Type {
		case "thinking":
			t := b.Thinking
			if t == "" {
				t = b.Text
			}
			if t = strings.TrimSpace(t); t != "" {
				thinkParts = append(thinkParts, t)
			}
		case "text":
			if t := strings.TrimSpace(b.Text); t != "" {
				textParts = append(textParts, t)
				plain = true
			}
		case "tool_use":
			textParts = append(textParts, labelled("tool_use", b.Name, compactJSON(b.Input, 2000)))
		case "tool_result":
			if t := rawText(b.Content); t != "" {
				textParts = append(textParts, labelled("tool_result", t))
			}
		default:
			if t := strings.TrimSpace(b.Text); t != "" {
				textParts = append(textParts, t)
				plain = true
			}
		}
	}
	return extractedContent{
		Text:     strings.TrimSpace(strings.Join(textParts, "\n")),
		Thinking: strings.TrimSpace(strings.Join(thinkParts, "\n")),
		toolOnly: !plain && len(textParts) > 0,
	}
}

// rawText renders a string, an array of text blocks, or any other JSON
// value as display text.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var blocks []claudeContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if t := strings.TrimSpace(b.Text); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}
	return compactJSON(raw, 2000)
}

func progressText(raw json.RawMessage) string {
	var p claudeProgress
	if err := json.Unmarshal(raw, &p); err != nil {
		return ""
	}
	switch p.Type {
	case "mcp_progress":
		return labelled("mcp_progress", "status="+p.Status, "server="+p.ServerName, "tool="+p.ToolName)
	case "hook_progress":
		return labelled("hook_progress", "event="+p.HookEvent, "name="+p.HookName, "command="+p.Command)
	}
	return labelled("progress", compactJSON(raw, 1000))
}
