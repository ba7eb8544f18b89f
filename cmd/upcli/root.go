package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const configFlag = "config"

// NewRootCommand enables all children commands to read flags from CLI flags, environment
// variables prefixed with UPWORD, or config.yaml (in that order).
func NewRootCommand() *cobra.Command {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("UPWORD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	configPaths := []string{"/etc/upword", "$HOME/.upword", "."}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	rootCmd := &cobra.Command{
		Use:   "upcli",
		Short: "Searches for universal partial words",
		Long: `Searches for universal partial words (upwords): words over an alphabet,
possibly holding wildcards, whose cyclic windows of length k contain every
word of length k over the alphabet.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return readConfig(v, cmd)
		},
	}
	rootCmd.PersistentFlags().String(configFlag, "", "path to a config file (default: config.yaml in /etc/upword, $HOME/.upword or .)")

	rootCmd.AddCommand(NewSearchCommand(v))
	rootCmd.AddCommand(NewVerifyCommand(v))

	return rootCmd
}

func readConfig(v *viper.Viper, cmd *cobra.Command) error {
	path, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", path, err)
		}
		return nil
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}
