package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"guild-loot/internal/command"

	"github.com/spf13/cobra"
)

type ExecOptions struct {
	*RootOptions
	As string
}

// NewExecCommand runs any chat command locally with guild master rights.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <command> [option=value ...]",
		Short: "Run a chat command against the database",
		Long: `Run a chat command against the database as a guild master.

Examples:
  lootctl exec additem item_name="Thunderfury, Blessed Blade of the Windseeker"
  lootctl exec addplayer member=123456789012345678 username=Alice
  lootctl exec moveplayer item_name=thunder member=123456789012345678 new_position=1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv := command.Invocation{
				Command:     args[0],
				CallerID:    opts.As,
				CallerName:  opts.As,
				CallerAdmin: true,
				Args:        map[string]string{},
			}
			for _, kv := range args[1:] {
				key, value, ok := strings.Cut(kv, "=")
				if !ok || key == "" {
					return fmt.Errorf("invalid option %q: expected option=value", kv)
				}
				inv.Args[key] = value
			}

			e, err := openEnv(opts.RootOptions)
			if err != nil {
				return err
			}
			defer e.close()

			d := command.NewDispatcher(e.svc, e.render, e.cfg.Bot.IsAdmin)
			resp := d.Execute(context.Background(), inv)

			if opts.Format == "json" {
				if err := json.NewEncoder(cmd.OutOrStdout()).Encode(resp); err != nil {
					return err
				}
			} else {
				for _, page := range resp.Pages {
					fmt.Fprintln(cmd.OutOrStdout(), page)
				}
			}
			return resp.Err
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "lootctl", "caller id used for myloot and roll")

	return cmd
}
