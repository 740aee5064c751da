package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/callflow-systems/callflow-stack/cli/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "callflow",
	Short: "CallFlow Stack CLI",
	Long: `callflow is the command-line interface for the CallFlow Stack.

Check the health of the deployed services, trigger call-log processing,
and manage connection profiles from your terminal.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.callflow/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "", "profile to use")
	rootCmd.PersistentFlags().String("output", "table", "output format: table, json")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}

// profileFor resolves the profile selected by the --profile flag.
func profileFor(cmd *cobra.Command) (*config.Profile, error) {
	name, _ := cmd.Flags().GetString("profile")
	return cfg.GetProfile(name)
}
