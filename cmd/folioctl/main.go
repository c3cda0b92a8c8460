package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/folio-labs/folioctl/client"
	"github.com/folio-labs/folioctl/internal/backup"
	"github.com/folio-labs/folioctl/internal/batch"
	"github.com/folio-labs/folioctl/internal/cascade"
	"github.com/folio-labs/folioctl/internal/config"
	"github.com/folio-labs/folioctl/internal/identify"
	"github.com/folio-labs/folioctl/internal/mutate"
	"github.com/folio-labs/folioctl/internal/resolve"
)

var (
	apiClient *client.Client
	runner    *batch.Runner
	log       *logrus.Logger

	flagURL       string
	flagTenant    string
	flagToken     string
	flagFmt       string
	flagBackupDir string
	flagLogLevel  string
	flagDemo      bool
)

// configFile is the on-disk shape of ~/.folioctl/config.yaml.
type configFile struct {
	URL       string `yaml:"url"`
	Tenant    string `yaml:"tenant"`
	Token     string `yaml:"token"`
	BackupDir string `yaml:"backup_dir"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:     "folioctl",
		Short:   "Batch record operations against a FOLIO platform",
		Version: config.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupRunner(resolveConfig())
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "Okapi gateway URL (env: FOLIOCTL_OKAPI_URL)")
	rootCmd.PersistentFlags().StringVar(&flagTenant, "tenant", "", "Okapi tenant id (env: FOLIOCTL_TENANT)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "Okapi token (env: FOLIOCTL_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&flagFmt, "format", "json", "Output format: json|table|quiet")
	rootCmd.PersistentFlags().StringVar(&flagBackupDir, "backup-dir", "", "Directory for pre-write record snapshots")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug|info|warn|error (default from env, then \"info\")")
	rootCmd.PersistentFlags().BoolVar(&flagDemo, "demo", false, "Plan and report but write nothing")

	initCmd := newInitCmd()
	initCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {} // skip client setup
	doctorCmd := newDoctorCmd()
	doctorCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {} // skip client setup

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(newLookupCmd())
	rootCmd.AddCommand(newChangeCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newCleanCmd())
	rootCmd.AddCommand(newTypesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig fills unset flags from the environment, then from
// ~/.folioctl/config.yaml. Flags win over env, env over file.
func resolveConfig() *config.Config {
	cfg, err := config.LoadEnv()
	if err != nil {
		fatal("load configuration", err)
	}

	if file, _, err := loadConfigFile(); err == nil {
		if cfg.OkapiURL == "" {
			cfg.OkapiURL = file.URL
		}
		if cfg.Tenant == "" {
			cfg.Tenant = file.Tenant
		}
		if cfg.Token.Value() == "" {
			cfg.Token = config.Secret(file.Token)
		}
		if file.BackupDir != "" && os.Getenv("FOLIOCTL_BACKUP_DIR") == "" {
			cfg.BackupDir = file.BackupDir
		}
	}

	if flagURL != "" {
		cfg.OkapiURL = flagURL
	}
	if flagTenant != "" {
		cfg.Tenant = flagTenant
	}
	if flagToken != "" {
		cfg.Token = config.Secret(flagToken)
	}
	if flagBackupDir != "" {
		cfg.BackupDir = flagBackupDir
	}
	if flagDemo {
		cfg.DemoMode = true
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	// Reflect the resolved values back so doctor can report them.
	flagURL = cfg.OkapiURL
	flagTenant = cfg.Tenant
	flagToken = cfg.Token.Value()
	flagBackupDir = cfg.BackupDir
	return cfg
}

func loadConfigFile() (configFile, string, error) {
	var cfg configFile
	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, "", err
	}
	path := filepath.Join(home, ".folioctl", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, path, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

func setupRunner(cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (run: folioctl init)\n", err)
		os.Exit(1)
	}

	log = logrus.New()
	log.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	apiClient = client.New(cfg.OkapiURL, cfg.Tenant,
		client.WithTokenProvider(client.StaticToken(cfg.Token.Value())),
		client.WithMaxRetries(uint64(cfg.MaxRetries)))

	uuidProbes, searchProbes := identify.NewProbes(apiClient)
	backups := backup.NewStore(cfg.BackupDir, log)
	runner = batch.NewRunner(
		identify.New(cfg.Rules, uuidProbes, searchProbes, log),
		resolve.New(apiClient, log),
		mutate.NewExecutor(apiClient, backups, log, cfg.DemoMode),
		cascade.NewEngine(apiClient, backups, log, cfg.DemoMode),
		log,
	)
}

// gatherIdentifiers joins positional args into one raw input blob, reading
// stdin instead when the sole argument is "-".
func gatherIdentifiers(args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	return strings.Join(args, " "), nil
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	os.Exit(1)
}
