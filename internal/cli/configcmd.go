package cli

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/alnah/go-lipsync/internal/config"
)

// ConfigCmd creates the config command with subcommands.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the lipsync.toml configuration file",
		Long: `Manage the lipsync.toml configuration file.

Configuration is read from ./lipsync.toml (or the file named with
--config on other commands). Every setting has a default; the file only
needs the settings you change. Credentials are never stored in the file.`,
		Example: `  lipsync config init
  lipsync config show -c render.toml`,
	}

	cmd.AddCommand(configInitCmd(env))
	cmd.AddCommand(configShowCmd(env))

	return cmd
}

// configInitCmd creates the "config init" subcommand.
func configInitCmd(env *Env) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an annotated sample configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := config.WriteSample(path); err != nil {
				return err
			}
			fmt.Fprintf(env.Stdout, "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "output", "o", "lipsync.toml", "Where to write the sample file")

	return cmd
}

// configShowCmd creates the "config show" subcommand: the effective
// configuration after the file is merged over defaults.
func configShowCmd(env *Env) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(runFlags{configPath: configPath})
			if err != nil {
				return err
			}

			out, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("render config: %w", err)
			}
			_, err = env.Stdout.Write(out)
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./lipsync.toml if present)")

	return cmd
}
