package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// PagerOptions controls ToPager.
type PagerOptions struct {
	// NoPager is set by --no-pager.
	NoPager bool
	// Out receives content that is not paged. Nil means stdout; any other
	// writer is never paged.
	Out io.Writer
}

// getPagerCommand resolves INBOX_PAGER, then PAGER, then less.
func getPagerCommand() string {
	for _, env := range []string{"INBOX_PAGER", "PAGER"} {
		if p := os.Getenv(env); p != "" {
			return p
		}
	}
	return "less"
}

// fitsScreen reports whether content is shorter than the stdout TTY.
func fitsScreen(content string) bool {
	_, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || rows <= 0 {
		return false
	}
	return strings.Count(content, "\n") < rows
}

// ToPager shows content through the user's pager when stdout is a TTY and
// the content is taller than the screen; otherwise it writes it directly.
// INBOX_NO_PAGER disables paging.
func ToPager(content string, opts PagerOptions) error {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	paged := out == os.Stdout && !opts.NoPager && os.Getenv("INBOX_NO_PAGER") == "" && IsTerminal()
	if !paged || fitsScreen(content) {
		_, err := fmt.Fprint(out, content)
		return err
	}

	argv := strings.Fields(getPagerCommand())
	if len(argv) == 0 {
		_, err := fmt.Fprint(out, content)
		return err
	}
	cmd := exec.Command(argv[0], argv[1:]...) // #nosec G204 - pager comes from the user's environment
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if os.Getenv("LESS") == "" {
		// Keep colors, exit when the content fits, leave it on screen.
		cmd.Env = append(cmd.Env, "LESS=-RFX")
	}
	return cmd.Run()
}
