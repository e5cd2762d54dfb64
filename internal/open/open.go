package open

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
)

// Session opens the session's source file in $EDITOR, positioned at the
// line of message hit when the editor supports it. Binary stores have no
// meaningful line and open at the top.
func Session(sess *parse.Session, hit int) error {
	if _, err := os.Stat(sess.FilePath); err != nil {
		return fmt.Errorf("file not found: %s", sess.FilePath)
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "less"
	}

	name, args := editorArgs(editor, sess.FilePath, lineOf(sess, hit))
	cmd := exec.Command(name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func lineOf(sess *parse.Session, hit int) int {
	if hit >= 0 && hit < len(sess.Messages) && sess.Messages[hit].Line > 0 {
		return sess.Messages[hit].Line
	}
	return 1
}

// editorArgs builds the command line for the editors that can jump to a line.
func editorArgs(editor, filePath string, lineNum int) (string, []string) {
	switch {
	case strings.Contains(editor, "vim") || strings.Contains(editor, "nvim"):
		return editor, []string{fmt.Sprintf("+%d", lineNum), filePath}
	case strings.Contains(editor, "code"):
		return editor, []string{"--goto", filePath + ":" + strconv.Itoa(lineNum)}
	case strings.Contains(editor, "less"):
		return editor, []string{"+" + strconv.Itoa(lineNum), filePath}
	default:
		return editor, []string{filePath}
	}
}
