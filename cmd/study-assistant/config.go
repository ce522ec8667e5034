// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/study-assistant/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the resolved configuration",
	Long: `Config prints the configuration after defaults, the config file, .env,
environment variables and the secrets directory have been applied. The API
key is masked. Problems that would stop a run are listed at the end.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		data, err := yaml.Marshal(config.Redacted(cfg))
		if err != nil {
			return errors.Errorf("encoding configuration: %w", err)
		}
		if file := viper.ConfigFileUsed(); file != "" {
			fmt.Fprintf(out, "# config file: %s\n", file)
		}
		fmt.Fprint(out, string(data))

		if err := config.Validate(cfg); err != nil {
			var ce *config.ConfigurationError
			if errors.As(err, &ce) {
				fmt.Fprintln(out, "\n# problems:")
				for _, f := range ce.Fields {
					fmt.Fprintf(out, "#   %s\n", f)
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
