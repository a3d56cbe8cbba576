// Package editor composes long moment text in the user's $EDITOR.
package editor

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// hintPrefix marks editor lines that are dropped when the file is read back.
const hintPrefix = "#:"

// EnvEditor prepares an external editor command from $VISUAL or $EDITOR
// (fallback: "vi"). Callers run it through tea.ExecProcess so the terminal
// leaves raw mode while the editor owns it.
type EnvEditor struct {
	lookup func(string) string
}

// NewEnvEditor creates an EnvEditor reading the process environment.
func NewEnvEditor() *EnvEditor {
	return &EnvEditor{lookup: os.Getenv}
}

func (e *EnvEditor) command() []string {
	for _, key := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(e.lookup(key)); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}

func hints(limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s momentLog: write your moment below (up to %d characters).\n", hintPrefix, limit)
	fmt.Fprintf(&b, "%s Lines starting with %q are ignored.\n", hintPrefix, hintPrefix)
	fmt.Fprintf(&b, "%s Save and quit to keep the text; an empty file discards it.\n", hintPrefix)
	return b.String()
}

// Cmd writes content and the hint header to a temp file and returns the
// editor command for it together with the file path.
func (e *EnvEditor) Cmd(content string, limit int) (*exec.Cmd, string, error) {
	tmpFile, err := os.CreateTemp("", "momentlog-*.md")
	if err != nil {
		return nil, "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer tmpFile.Close()

	if _, err := tmpFile.WriteString(hints(limit) + "\n" + content); err != nil {
		os.Remove(tmpPath)
		return nil, "", fmt.Errorf("writing to temp file: %w", err)
	}

	argv := append(e.command(), tmpPath)
	return exec.Command(argv[0], argv[1:]...), tmpPath, nil
}

// ReadContent reads the temp file back without hint lines, trims it and
// removes the file.
func (e *EnvEditor) ReadContent(path string) (string, error) {
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("reading temp file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		if strings.HasPrefix(sc.Text(), hintPrefix) {
			continue
		}
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("reading temp file: %w", err)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
