package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/steveyegge/inbox/internal/types"
)

func TestShouldUseColor(t *testing.T) {
	tests := []struct {
		name          string
		noColor       string
		cliColor      string
		cliColorForce string
		wantColor     bool
	}{
		{name: "NO_COLOR disables color", noColor: "1", wantColor: false},
		{name: "CLICOLOR=0 disables color", cliColor: "0", wantColor: false},
		{name: "CLICOLOR_FORCE enables color even in non-TTY", cliColorForce: "1", wantColor: true},
		{name: "NO_COLOR takes precedence over CLICOLOR_FORCE", noColor: "1", cliColorForce: "1", wantColor: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "")
			t.Setenv("CLICOLOR", tt.cliColor)
			t.Setenv("CLICOLOR_FORCE", tt.cliColorForce)
			if tt.noColor == "" {
				// t.Setenv registered the restore; LookupEnv must now miss.
				unsetenv(t, "NO_COLOR")
			} else {
				t.Setenv("NO_COLOR", tt.noColor)
			}

			if got := ShouldUseColor(); got != tt.wantColor {
				t.Errorf("ShouldUseColor() = %v, want %v", got, tt.wantColor)
			}
		})
	}
}

func TestShouldUseEmoji(t *testing.T) {
	t.Setenv("INBOX_NO_EMOJI", "1")
	if ShouldUseEmoji() {
		t.Error("ShouldUseEmoji() = true with INBOX_NO_EMOJI set")
	}
}

func TestRenderStatusPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	ApplyColorProfile()

	for _, s := range types.AllStatuses {
		if got := RenderStatus(s); got != s.String() {
			t.Errorf("RenderStatus(%v) = %q, want %q", s, got, s.String())
		}
	}
	if got := RenderTab(types.TabClosed, true); got != "CLOSED" {
		t.Errorf("RenderTab() = %q, want CLOSED", got)
	}
}

func TestToPagerWritesToOut(t *testing.T) {
	var buf bytes.Buffer
	if err := ToPager("line1\nline2\n", PagerOptions{Out: &buf}); err != nil {
		t.Fatalf("ToPager() error = %v", err)
	}
	if buf.String() != "line1\nline2\n" {
		t.Errorf("ToPager() wrote %q", buf.String())
	}
}

func TestGetPagerCommand(t *testing.T) {
	t.Setenv("INBOX_PAGER", "more")
	if got := getPagerCommand(); got != "more" {
		t.Errorf("getPagerCommand() = %q, want more", got)
	}
	t.Setenv("INBOX_PAGER", "")
	t.Setenv("PAGER", "")
	if got := getPagerCommand(); got != "less" {
		t.Errorf("getPagerCommand() = %q, want less", got)
	}
}

func TestTruncateSimple(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a longer title here", 10, "a longe..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 2, "..."},
	}
	for _, tt := range tests {
		if got := TruncateSimple(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateSimple(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestWrapText(t *testing.T) {
	got := WrapText("the quick brown fox jumps", 10)
	for _, line := range strings.Split(got, "\n") {
		if len(line) > 10 {
			t.Errorf("line %q exceeds width", line)
		}
	}
	if strings.Join(strings.Fields(got), " ") != "the quick brown fox jumps" {
		t.Errorf("WrapText() lost words: %q", got)
	}
}

func TestStripHTML(t *testing.T) {
	in := "<p>Login fails</p><p>Steps:<br/>1. open &amp; click</p><ul><li>Chrome</li></ul>"
	want := "Login fails\n\nSteps:\n1. open & click\n\nChrome"
	if got := StripHTML(in); got != want {
		t.Errorf("StripHTML() = %q, want %q", got, want)
	}
}
