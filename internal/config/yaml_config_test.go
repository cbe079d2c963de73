package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestUpdateYamlKey(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		key      string
		value    string
		contains []string
	}{
		{
			name:     "empty file",
			content:  "",
			key:      "workspace",
			value:    "acme",
			contains: []string{"workspace: acme"},
		},
		{
			name:     "nested key created",
			content:  "workspace: acme\n",
			key:      "inbox.per-page",
			value:    "25",
			contains: []string{"workspace: acme", "inbox:\n  per-page: 25"},
		},
		{
			name:     "existing value replaced, comment kept",
			content:  "# team defaults\ninbox:\n  default-tab: open\n",
			key:      "inbox.default-tab",
			value:    "closed",
			contains: []string{"# team defaults", "default-tab: closed"},
		},
		{
			name:     "string that looks like bool stays a string",
			content:  "",
			key:      "project",
			value:    "yes please",
			contains: []string{"project: yes please"},
		},
		{
			name:     "duration",
			content:  "api:\n  url: https://x.test\n",
			key:      "api.timeout",
			value:    "10s",
			contains: []string{"url: https://x.test", "timeout: 10s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := updateYamlKey([]byte(tt.content), tt.key, tt.value)
			if err != nil {
				t.Fatalf("updateYamlKey() error = %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(string(out), want) {
					t.Errorf("updateYamlKey() = %q, want it to contain %q", out, want)
				}
			}
		})
	}
}

func TestUpdateYamlKeyRejectsScalarParent(t *testing.T) {
	_, err := updateYamlKey([]byte("inbox: nope\n"), "inbox.per-page", "5")
	if err == nil {
		t.Fatal("expected error when parent is not a mapping")
	}
}

func TestScalarKeepsTypes(t *testing.T) {
	out, err := updateYamlKey(nil, "inbox.per-page", "25")
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]map[string]interface{}
	if err := yaml.Unmarshal(out, &parsed); err != nil {
		t.Fatal(err)
	}
	if got, ok := parsed["inbox"]["per-page"].(int); !ok || got != 25 {
		t.Errorf("per-page = %#v, want int 25", parsed["inbox"]["per-page"])
	}

	out, err = updateYamlKey(nil, "project", "")
	if err != nil {
		t.Fatal(err)
	}
	var flat map[string]interface{}
	if err := yaml.Unmarshal(out, &flat); err != nil {
		t.Fatal(err)
	}
	if got, ok := flat["project"].(string); !ok || got != "" {
		t.Errorf("project = %#v, want empty string", flat["project"])
	}
}

func TestSetYamlConfig(t *testing.T) {
	path := writeProjectConfig(t, "workspace: acme\n")
	if err := Initialize(); err != nil {
		t.Fatal(err)
	}

	written, err := SetYamlConfig(KeyPerPage, "30")
	if err != nil {
		t.Fatalf("SetYamlConfig() error = %v", err)
	}
	if filepath.Base(filepath.Dir(written)) != ProjectDirName {
		t.Errorf("SetYamlConfig() wrote %q, want the project config", written)
	}
	if got := GetPerPage(); got != 30 {
		t.Errorf("GetPerPage() after set = %d, want 30", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "per-page: 30") || !strings.Contains(string(data), "workspace: acme") {
		t.Errorf("config file = %q", data)
	}
}

func TestSetYamlConfigUnknownKey(t *testing.T) {
	if _, err := SetYamlConfig("no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSetYamlConfigFallsBackToUserConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	if err := Initialize(); err != nil {
		t.Fatal(err)
	}

	written, err := SetYamlConfig(KeyWorkspace, "acme")
	if err != nil {
		t.Fatalf("SetYamlConfig() error = %v", err)
	}
	if want := filepath.Join(xdg, "inbox", FileName); written != want {
		t.Errorf("SetYamlConfig() wrote %q, want %q", written, want)
	}
	if _, err := os.Stat(written); err != nil {
		t.Errorf("config file not created: %v", err)
	}
}
