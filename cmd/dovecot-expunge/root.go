package main

import (
	"os"

	"github.com/migadu/dovecot-expunge/config"
	"github.com/migadu/dovecot-expunge/logger"
	"github.com/spf13/cobra"
)

var (
	configFile  string
	envFile     string
	sqlConfig   string
	doveadmPath string
	logLevel    string
	dryRun      bool
)

// rootCmd runs one expunge pass when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dovecot-expunge",
	Short: "Expunge expired mail from Dovecot mailboxes",
	Long: `dovecot-expunge reads the per-mailbox expiry policies stored next to
Dovecot's accounts in SQL and expunges, through doveadm, every message saved
before its mailbox's expiry period. It runs once and exits; schedule it with
cron or a systemd timer.

Environment:
  LOG_LEVEL             debug, info, warn, error or fatal (default info)
  LOG_OUTPUT            stdout, stderr or syslog (default stdout)
  SQL_CONFIG            Dovecot SQL config (default /etc/dovecot/conf.d/dovecot-sql.conf)
  DOVEADM_PATH          doveadm binary (default doveadm)
  EXPUNGE_DRY_RUN       list expiring messages without expunging them
  EXPUNGE_METRICS_FILE  write run metrics in Prometheus text format`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, log := loadConfig(cmd)
		defer log.Close()

		if err := newApp(log).runExpunge(cmd.Context(), cfg); err != nil {
			log.Fatal(fatalMessage(err))
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "TOML file with job settings")
	flags.StringVar(&envFile, "env-file", "", "file of KEY=value environment settings")
	flags.StringVar(&sqlConfig, "sql-config", "", "Dovecot SQL config file (overrides SQL_CONFIG)")
	flags.StringVar(&doveadmPath, "doveadm", "", "doveadm binary (overrides DOVEADM_PATH)")
	flags.StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "list expiring messages without expunging them")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(recordsCmd)
}

// loadConfig layers flags over the loaded configuration and builds the logger.
// Configuration errors are fatal.
func loadConfig(cmd *cobra.Command) (config.Config, *logger.Logger) {
	cfg, warnings, err := config.Load(configFile, envFile)
	if err != nil {
		logger.New(os.Stdout, logger.LevelInfo).Fatalf("Could not load configuration: %v", err)
	}

	flags := cmd.Flags()
	if flags.Changed("sql-config") {
		cfg.SQLConfig = sqlConfig
	}
	if flags.Changed("doveadm") {
		cfg.DoveadmPath = doveadmPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = config.Switch(dryRun)
	}

	log, err := logger.Initialize(cfg.Logging())
	if err != nil {
		logger.New(os.Stdout, logger.ParseLevel(cfg.LogLevel)).Fatalf("Could not initialize logging: %v", err)
	}

	for _, w := range warnings {
		log.Warn(w)
	}
	return cfg, log
}
