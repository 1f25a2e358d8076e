package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "apicize",
		Short: "Run and inspect Apicize workbooks from the command line",
		Long: `apicize runs the functional HTTP tests described by an .apicize workbook:
requests and groups, parameter inheritance, OAuth2 token caching, and
embedded JS assertions, then prints or diffs the results.`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default is the apicize config dir)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newGlobalsCmd())
	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("apicize %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	})
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("settings")
		viper.SetConfigType("json")
		viper.AddConfigPath("$XDG_CONFIG_HOME/apicize")
		viper.AddConfigPath("$HOME/.config/apicize")
	}
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
