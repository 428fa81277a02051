package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/picogrid/dart-simulations/pkg/config"
	"github.com/picogrid/dart-simulations/pkg/logger"
)

// Global configuration keys
const (
	keyLogLevel     = "log_level"
	keyStoreDSN     = "store.dsn"
	keyReportDir    = "report.dir"
	keyReportFormat = "report.format"
	keyInfluxURL    = "influx.url"
	keyInfluxToken  = "influx.token"
	keyInfluxOrg    = "influx.org"
	keyInfluxBucket = "influx.bucket"
	keyInfluxBackup = "influx.backup"
	keyEventsFile   = "events_file"
)

var (
	cfgFile  string
	logLevel string
	noColor  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dart-sim",
	Short: "DART simulation CLI",
	Long: `DART Simulation CLI flies a team of drones along a reconnaissance route
over threats and targets, adapting altitude, formation and countermeasures.
Missions can be driven by threshold rules or by a lookahead planner whose
tactics are checked by a survivability enforcer.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dart-sim/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().String("store", "", "results store DSN (sqlite path or postgres URL)")
	_ = viper.BindPFlag(keyStoreDSN, rootCmd.PersistentFlags().Lookup("store"))

	// Add commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(profileCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	home, _ := os.UserHomeDir()
	stateDir := filepath.Join(home, config.ConfigDir)

	viper.SetDefault(keyLogLevel, "info")
	viper.SetDefault(keyStoreDSN, filepath.Join(stateDir, "results.db"))
	viper.SetDefault(keyReportDir, "reports")
	viper.SetDefault(keyInfluxBucket, "dart")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in home directory
		viper.AddConfigPath(stateDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("DART")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in
	_ = viper.ReadInConfig()

	// Configure logger; the flag wins over the config file
	level := viper.GetString(keyLogLevel)
	if logLevel != "" {
		level = logLevel
	}
	logger.SetLevel(logger.ParseLevel(level))
	logger.SetNoColor(noColor)
}
