package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/steveyegge/inbox/internal/config"
	"github.com/steveyegge/inbox/internal/ui"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		GroupID: "setup",
		Short:   "Show or change settings",
		Long: `Settings resolve from flags, then INBOX_* environment variables, then
.inbox/config.yaml (searched upward from the working directory), then
~/.config/inbox/config.yaml.`,
	}
	cmd.AddCommand(newConfigShowCmd(a), newConfigSetCmd(a))
	return cmd
}

// settings returns every known key with its resolved value. The API token is
// masked.
func settings() map[string]string {
	out := make(map[string]string, len(config.KnownKeys))
	for _, key := range config.SortedKeys() {
		val := config.GetString(key)
		if key == config.KeyAPIToken && val != "" {
			val = maskSecret(val)
		}
		out[key] = val
	}
	return out
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

func (a *app) printSettings() error {
	vals := settings()
	if done, err := a.emit(vals); done {
		return err
	}
	var sb strings.Builder
	if path := config.ConfigFileUsed(); path != "" {
		fmt.Fprintf(&sb, "%s\n", ui.RenderMuted("# "+path))
	}
	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	for _, key := range config.SortedKeys() {
		val := vals[key]
		if val == "" {
			val = ui.RenderMuted("(unset)")
		}
		fmt.Fprintf(tw, "%s\t%s\n", key, val)
	}
	_ = tw.Flush()
	_, err := fmt.Fprint(a.out, sb.String())
	return err
}

func newConfigShowCmd(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.printSettings(); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			ctx := cmd.Context()
			changed := make(chan struct{}, 1)
			if err := config.Watch(ctx, func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			}); err != nil {
				return err
			}
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-changed:
					a.printf("\n%s config reloaded\n", ui.RenderInfoIcon())
					if err := a.printSettings(); err != nil {
						return err
					}
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep running and print the settings again when the config file changes")
	return cmd
}

func newConfigSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a setting to the config file",
		Example: `  inbox config set api.url https://tracker.example.com
  inbox config set workspace acme
  inbox config set inbox.per-page 25`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.SetYamlConfig(args[0], args[1])
			if err != nil {
				return err
			}
			if done, err := a.emit(map[string]string{"key": args[0], "file": path}); done {
				return err
			}
			a.printf("%s Set %s in %s\n", ui.RenderPassIcon(), args[0], path)
			return nil
		},
	}
}
