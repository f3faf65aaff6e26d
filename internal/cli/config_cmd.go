package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"artframe/internal/config"
)

func newConfigCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long:  "Show or validate artframe configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			root.printf("Config file: %s\n", root.configPath())
			return root.printJSON(root.cfg)
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := root.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			root.log.Info("configuration validation", "status", "valid")
			root.printf("Configuration is valid\n")
			return nil
		},
	}

	cmd.AddCommand(showCmd, validateCmd)
	return cmd
}

func (r *Root) configPath() string {
	if r.cfgPath != "" {
		return r.cfgPath
	}
	return config.Path()
}

func newVersionCmd(root *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			root.printf("artframe %s\n", Version)
			root.printf("Built with Go %s\n", runtime.Version())
		},
	}
}
