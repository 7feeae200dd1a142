package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Tiliavir/astro-journal/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	Long: `config prints the configuration after applying defaults, the config
file, AJ_* environment variables and flags. The client secret is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return userError(err)
	}
	data, err := config.Encode(cfg)
	if err != nil {
		return err
	}
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Printf("# %s\n", used)
	}
	fmt.Print(string(data))
	return nil
}
