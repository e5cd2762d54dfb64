package tui

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
)

// copyResumeCommand puts the command that reopens sess on the clipboard,
// printing it instead when no clipboard is available.
func copyResumeCommand(sess *parse.Session) error {
	fullCmd := ResumeCommand(sess)
	if err := clipboard.WriteAll(fullCmd); err != nil {
		fmt.Printf("%s\n", fullCmd)
		return nil
	}

	fmt.Printf("Copied to clipboard: %s\n", fullCmd)
	return nil
}

// ResumeCommand is the shell command that continues sess in its CLI, or
// the store path for desktop sessions, which cannot be resumed.
func ResumeCommand(sess *parse.Session) string {
	if sess.Source == parse.BinaryStore {
		return sess.FilePath
	}

	// session id is the file name without its .jsonl extension
	sessionID := strings.TrimSuffix(filepath.Base(sess.FilePath), ".jsonl")

	var resumeCmd string
	if strings.HasPrefix(sessionID, "rollout-") {
		// Codex expects UUID only, extract from filename like
		// rollout-2026-01-26T17-30-22-019bf9a3-d433-7fc1-8214-b82613804964
		resumeCmd = "codex resume " + extractUUID(sessionID)
	} else {
		resumeCmd = "claude --resume " + sessionID
	}

	if sess.Cwd != "" {
		return fmt.Sprintf("cd %s && %s", sess.Cwd, resumeCmd)
	}
	return resumeCmd
}

var uuidRe = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

// extractUUID extracts a UUID from a string, returning the original if none found.
func extractUUID(s string) string {
	if m := uuidRe.FindString(s); m != "" {
		return m
	}
	return s
}
