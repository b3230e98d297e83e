package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/elastic/dorothy/internal/logs"
	"github.com/elastic/dorothy/internal/message"
	"github.com/elastic/dorothy/pkg/okta"
)

var (
	cfgFile     string
	quietFlag   bool
	noColorFlag bool
	silentFlag  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dorothy",
	Short: "Dorothy simulates attacker actions against an Okta org to test detections.",
	Long: `Dorothy executes discovery, persistence, and defense-evasion modules
against an Okta org and records every change it makes so the run can be
rolled back afterwards.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		message.SetQuiet(quietFlag)
		message.SetNoColor(noColorFlag)
		message.SetSilent(silentFlag)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dorothy.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress informational messages")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&silentFlag, "silent", false, "suppress all console output")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".dorothy" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".dorothy")
	}

	viper.SetEnvPrefix("dorothy")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newClient builds the API client from the resolved configuration. The org
// URL plus either an SSWS API token or OAuth2 client credentials must be
// present.
func newClient() (*okta.Client, error) {
	orgURL := viper.GetString("okta-url")

	cfg := okta.Config{
		OrgURL:      orgURL,
		Token:       viper.GetString("api-token"),
		MaxInFlight: viper.GetInt64("max-in-flight"),
		Timeout:     viper.GetDuration("request-timeout"),
		Log:         logs.FileLogger(),
	}

	if clientID := viper.GetString("oauth-client-id"); clientID != "" {
		cfg.OAuth = &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: viper.GetString("oauth-client-secret"),
			TokenURL:     strings.TrimSuffix(orgURL, "/") + "/oauth2/v1/token",
			Scopes:       viper.GetStringSlice("oauth-scopes"),
		}
	}

	return okta.New(cfg)
}

// fatal reports an unrecoverable command error and exits.
func fatal(err error) {
	message.Critical("%v", err)
	os.Exit(1)
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
