// Package cli provides the command-line interface for portsweep.
// It implements the Cobra command tree: one-shot scans, the API server,
// API key generation and version information.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/anstrom/portsweep/internal/api/handlers"
	"github.com/anstrom/portsweep/internal/config"
	"github.com/anstrom/portsweep/internal/logging"
)

const envPrefix = "PORTSWEEP"

var (
	cfgFile string
	verbose bool
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "portsweep",
	Short: "TCP port scanner",
	Long: `portsweep scans the TCP ports of one host with a bounded pool of
concurrent connection attempts, reports which ports are open, closed or
filtered, and names well-known services.

Run a one-off scan with 'portsweep scan', or start the HTTP API and
scheduler with 'portsweep serve'.`,
	Version:       getVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./portsweep.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	bindFlag(rootCmd.PersistentFlags().Lookup("verbose"), "verbose")
	bindFlag(rootCmd.PersistentFlags().Lookup("log-level"), "logging.level")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("portsweep")
	}

	// PORTSWEEP_SCANNING_POOL_SIZE maps to scanning.pool_size
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then PORTSWEEP_* environment variables, then flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.ConfigFileUsed())
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	applyOverrides(cfg)
	if verbose {
		cfg.Logging.Level = logging.LevelDebug
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	initLogging(cfg)
	return cfg, nil
}

// applyOverrides copies every key viper knows from the environment or a
// bound flag into cfg. File values are already in cfg and come back
// unchanged.
func applyOverrides(cfg *config.Config) {
	setString := func(key string, dst *string) {
		if viper.IsSet(key) {
			*dst = viper.GetString(key)
		}
	}
	setInt := func(key string, dst *int) {
		if viper.IsSet(key) {
			*dst = viper.GetInt(key)
		}
	}
	setBool := func(key string, dst *bool) {
		if viper.IsSet(key) {
			*dst = viper.GetBool(key)
		}
	}

	setInt("scanning.pool_size", &cfg.Scanning.PoolSize)
	if viper.IsSet("scanning.probe_timeout") {
		cfg.Scanning.ProbeTimeout = viper.GetDuration("scanning.probe_timeout")
	}
	if viper.IsSet("scanning.rate_limit") {
		cfg.Scanning.RateLimit = viper.GetFloat64("scanning.rate_limit")
	}
	setBool("scanning.service_detection", &cfg.Scanning.ServiceDetection)

	setString("resolver.nameserver", &cfg.Resolver.Nameserver)

	setString("api.listen_addr", &cfg.API.ListenAddr)
	setInt("api.port", &cfg.API.Port)
	setBool("api.auth_enabled", &cfg.API.AuthEnabled)

	setBool("database.enabled", &cfg.Database.Enabled)
	setString("database.host", &cfg.Database.Host)
	setInt("database.port", &cfg.Database.Port)
	setString("database.database", &cfg.Database.Database)
	setString("database.username", &cfg.Database.Username)
	setString("database.password", &cfg.Database.Password)
	setString("database.ssl_mode", &cfg.Database.SSLMode)

	if viper.IsSet("logging.level") && viper.GetString("logging.level") != "" {
		cfg.Logging.Level = logging.LogLevel(viper.GetString("logging.level"))
	}
	if viper.IsSet("logging.format") {
		cfg.Logging.Format = logging.LogFormat(viper.GetString("logging.format"))
	}
	setString("logging.output", &cfg.Logging.Output)
}

// initLogging installs the configured logger as the process default.
func initLogging(cfg *config.Config) {
	logConfig := cfg.Logging
	logConfig.AddSource = logConfig.AddSource || logConfig.Level == logging.LevelDebug

	logger, err := logging.New(logConfig)
	if err != nil {
		logger = logging.NewDefault()
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	logging.SetDefault(logger)

	if verbose {
		logging.Debug("Structured logging initialized", "level", logConfig.Level, "format", logConfig.Format)
	}
}

// bindFlag ties a flag to a viper key so a changed flag wins over the
// environment and the config file.
func bindFlag(flag *pflag.Flag, key string) {
	if err := viper.BindPFlag(key, flag); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind %s flag: %v\n", flag.Name, err)
	}
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
	handlers.SetBuildInfo(v, c, bt)
}
