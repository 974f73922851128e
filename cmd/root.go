package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/extorder/internal/extract"
	"github.com/papapumpkin/extorder/internal/scan"
)

var rootCmd = &cobra.Command{
	Use:   "extorder",
	Short: "Order Ext JS class files by their dependencies",
	Long: `extorder reads Ext JS sources, finds the classes and applications each file
declares and the classes they depend on, and emits the files in an order that
loads every dependency before its dependents.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default .extorder.yaml)")
	pf.BoolP("verbose", "v", false, "verbose output")
	pf.StringSliceP("include", "i", nil, "directory whose files are included (repeatable)")
	pf.StringSliceP("include-recursive", "r", nil, "directory whose files and subdirectories are included (repeatable)")
	pf.StringSliceP("exclude", "e", nil, "directory to exclude (repeatable)")
	pf.StringP("pattern", "p", scan.DefaultPattern, "file name pattern")
	pf.String("strategy", extract.StrategySyntax, "extraction strategy: pattern or syntax")
	pf.Bool("strict", false, "fail on unparseable files and unresolved dependencies")
	pf.String("events", "", "append JSONL run events to this file")

	for key, flag := range map[string]string{
		"verbose":           "verbose",
		"include":           "include",
		"include_recursive": "include-recursive",
		"exclude":           "exclude",
		"pattern":           "pattern",
		"strategy":          "strategy",
		"strict":            "strict",
		"events":            "events",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".extorder")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("EXTORDER")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}
