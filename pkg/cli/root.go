package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"userstream/internal/config"
	"userstream/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// EnvOutput overrides the default output format.
const EnvOutput = "USERSTREAM_OUTPUT"

// Execute runs the CLI.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			_ = PrintJSON(os.Stdout, map[string]interface{}{
				"error": err.Error(),
				"kind":  errorKind(err),
			})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// errorKind classifies err for machine-readable output.
func errorKind(err error) string {
	var (
		connErr  *domain.ConnectionError
		queryErr *domain.QueryError
		valErr   *domain.ValidationError
	)
	switch {
	case errors.As(err, &connErr):
		return "connection"
	case errors.As(err, &queryErr):
		return "query"
	case errors.As(err, &valErr):
		return "validation"
	default:
		return "error"
	}
}

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	driver   string
	host     string
	port     int
	user     string
	password string
	database string
	path     string
	logLevel string
	output   string
	profile  string
}

func (g *globalFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&g.driver, "driver", config.DriverMySQL, "Database driver (mysql, pgx, sqlite3, duckdb)")
	fs.StringVar(&g.host, "host", "localhost", "Database host")
	fs.IntVar(&g.port, "port", 0, "Database port (0 uses the driver default)")
	fs.StringVar(&g.user, "user", "root", "Database user")
	fs.StringVar(&g.password, "password", "", "Database password")
	fs.StringVar(&g.database, "database", config.DefaultDatabaseName, "Database name")
	fs.StringVar(&g.path, "path", "", "Database file for sqlite3/duckdb (default <database>.sqlite or .duckdb)")
	fs.StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVarP(&g.output, "output", "o", "table", "Output format (table, json)")
	fs.StringVarP(&g.profile, "profile", "p", "", "Config profile to use")
}

// app holds the global flags and, for commands that touch the store, the
// resolved connection config and logger.
type app struct {
	flags  globalFlags
	cfg    *config.Config
	logger *slog.Logger
}

// profile returns the profile selected by --profile or the config file. A
// missing config file yields an empty profile.
func (a *app) profile() (Profile, error) {
	userCfg, err := LoadUserConfig()
	switch {
	case errors.Is(err, os.ErrNotExist):
		userCfg = &UserConfig{CurrentProfile: "default", Profiles: map[string]Profile{}}
	case err != nil:
		return Profile{}, err
	}
	return userCfg.ActiveProfile(a.flags.profile)
}

// resolve is the PreRunE of every command that opens the store. It unseals
// the profile password, validates the connection config and installs the
// logger.
func (a *app) resolve(cmd *cobra.Command, _ []string) error {
	p, err := a.profile()
	if err != nil {
		return err
	}

	fs := cmd.Root().PersistentFlags()
	if !fs.Changed("password") && os.Getenv(config.EnvPassword) == "" {
		if p, err = p.unsealed(); err != nil {
			return err
		}
	}

	cfg, err := resolveConfig(fs, &a.flags, p)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(a.logger)
	for _, w := range cfg.Warnings {
		a.logger.Warn(w)
	}
	return nil
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "userstream",
		Short:         "Stream the user_data table lazily",
		Long:          "Stream, batch, paginate and aggregate rows of the user_data table without loading it into memory.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}

			// Only the output format is needed here. A profile that fails to
			// load is reported by the store commands, not by config or version.
			p, _ := a.profile()
			resolveOutput(cmd.Root().PersistentFlags(), &a.flags, p)
			return validateOutputFormat(a.flags.output)
		},
	}

	a.flags.bind(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newSeedCmd(a))
	rootCmd.AddCommand(newStreamCmd(a))
	rootCmd.AddCommand(newBatchCmd(a))
	rootCmd.AddCommand(newPaginateCmd(a))
	rootCmd.AddCommand(newAverageCmd(a))

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// resolveConfig applies precedence: flag > env > profile > default.
func resolveConfig(fs *pflag.FlagSet, g *globalFlags, p Profile) (*config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}

	pick := func(flag, env, flagVal, profileVal string, dst *string) {
		switch {
		case fs.Changed(flag):
			*dst = flagVal
		case os.Getenv(env) != "":
		case profileVal != "":
			*dst = profileVal
		}
	}

	d := &cfg.Database
	pick("driver", config.EnvDriver, strings.ToLower(g.driver), strings.ToLower(p.Driver), &d.Driver)
	pick("host", config.EnvHost, g.host, p.Host, &d.Host)
	pick("user", config.EnvUser, g.user, p.User, &d.User)
	pick("password", config.EnvPassword, g.password, p.Password, &d.Password)
	pick("database", config.EnvName, g.database, p.Database, &d.Name)
	pick("path", config.EnvPath, g.path, p.Path, &d.Path)
	pick("log-level", config.EnvLogLevel, g.logLevel, p.LogLevel, &cfg.LogLevel)

	switch {
	case fs.Changed("port"):
		d.Port = g.port
	case os.Getenv(config.EnvPort) != "":
	case p.Port != 0:
		d.Port = p.Port
	}

	resolveOutput(fs, g, p)

	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveOutput applies the same precedence to the output format.
func resolveOutput(fs *pflag.FlagSet, g *globalFlags, p Profile) {
	if fs.Changed("output") {
		return
	}
	if v := os.Getenv(EnvOutput); v != "" {
		g.output = v
	} else if p.Output != "" {
		g.output = p.Output
	}
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
