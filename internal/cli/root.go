package cli

import (
	"fmt"
	"slices"

	"guild-loot/internal/render"
	"guild-loot/internal/service"
	"guild-loot/pkg/config"
	"guild-loot/pkg/db"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Format     string // "text" | "json"
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the lootctl CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "lootctl",
		Short: "lootctl - guild loot queue administration",
		Long:  "Administer the guild loot priority queues directly against the database.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default ./config/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// env is an opened store with the engine on top.
type env struct {
	cfg    *config.Config
	svc    *service.LootService
	render *render.Renderer
	close  func()
}

func openEnv(opts *RootOptions) (*env, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	svc := service.NewLootService(conn, service.WithAdminPolicy(cfg.Bot.IsAdmin))
	return &env{
		cfg:    cfg,
		svc:    svc,
		render: render.New(cfg.Bot.GuildName),
		close:  func() { _ = db.Close(conn) },
	}, nil
}
