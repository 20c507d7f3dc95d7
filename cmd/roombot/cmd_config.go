package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/user/roombot/internal/config"
)

var (
	configShowSecrets bool
	configShowSource  bool
)

func init() {
	configListCmd.Flags().BoolVar(&configShowSecrets, "show-secrets", false, "print secrets unmasked")
	configGetCmd.Flags().BoolVar(&configShowSource, "source", false, "also print where the value came from")
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd)
}

// loadConfigWithSources loads the layered configuration or exits.
func loadConfigWithSources() (*config.Config, config.Sources) {
	cfg, sources, err := config.LoadWithSources(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg, sources
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit configuration",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List effective values and the layer each comes from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, sources := loadConfigWithSources()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
		for _, e := range config.Entries(cfg, sources, !configShowSecrets) {
			fmt.Fprintf(w, "%s\t%v\t%s\n", e.Key, e.Value, e.Source)
		}
		return w.Flush()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the effective value of a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, sources := loadConfigWithSources()
		e, err := config.Lookup(cfg, sources, args[0], false)
		if err != nil {
			return err
		}
		if configShowSource {
			fmt.Fprintf(os.Stdout, "%v\t(%s)\n", e.Value, e.Source)
			return nil
		}
		fmt.Fprintln(os.Stdout, e.Value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a value in the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetValue(cfgPath, key, value); err != nil {
			return err
		}
		display := value
		if config.IsSecretKey(key) {
			display = "***"
		}
		fmt.Fprintf(os.Stdout, "Set %s = %s in %s\n", key, display, cfgPath)

		_, sources := loadConfigWithSources()
		if src := sources[key]; src != config.SourceFile {
			fmt.Fprintf(os.Stdout, "Note: %s is overridden by %s\n", key, src)
		}
		return nil
	},
}
