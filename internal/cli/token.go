package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"guild-loot/pkg/config"
	"guild-loot/pkg/utils"

	"github.com/spf13/cobra"
)

type TokenOptions struct {
	*RootOptions
	Name  string
	Admin bool
	TTL   time.Duration
}

// NewTokenCommand issues bearer tokens for the HTTP command API.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token <external-id>",
		Short: "Issue an API token for a guild member",
		Long: `Issue a signed token for POST /api/commands.

Example:
  lootctl token 123456789012345678 --name Alice --admin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigFile)
			if err != nil {
				return err
			}
			ttl := opts.TTL
			if ttl <= 0 {
				ttl = cfg.JWT.Expiration
			}
			token, err := utils.GenerateToken(cfg.JWT.Secret, args[0], opts.Name, opts.Admin, ttl)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"token":      token,
					"expires_at": time.Now().Add(ttl).UTC(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "display name carried in the token")
	cmd.Flags().BoolVar(&opts.Admin, "admin", false, "allow guild master commands")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "token lifetime (default jwt.expiration)")

	return cmd
}
