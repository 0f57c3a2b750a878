package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage connection profiles",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetProfileCmd())
	cmd.AddCommand(newConfigUseProfileCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display configured profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "No configuration found at %s\n", ConfigPath())
				return err
			}
			if !reveal {
				cfg = maskConfig(cfg)
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), cfg)
			}
			return printProfiles(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show passwords unmasked")

	return cmd
}

func printProfiles(w io.Writer, cfg *UserConfig) error {
	names := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PROFILE\tACTIVE\tDRIVER\tHOST\tPORT\tUSER\tPASSWORD\tDATABASE\tPATH")
	for _, name := range names {
		p := cfg.Profiles[name]
		active := ""
		if name == cfg.CurrentProfile {
			active = "*"
		}
		port := ""
		if p.Port != 0 {
			port = strconv.Itoa(p.Port)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			name, active, p.Driver, p.Host, port, p.User, p.Password, p.Database, p.Path)
	}
	return tw.Flush()
}

// maskConfig returns a copy of the config with passwords masked.
func maskConfig(cfg *UserConfig) *UserConfig {
	masked := &UserConfig{
		CurrentProfile: cfg.CurrentProfile,
		Profiles:       make(map[string]Profile, len(cfg.Profiles)),
	}
	for name, p := range cfg.Profiles {
		p.Password = maskSecret(p.Password)
		masked.Profiles[name] = p
	}
	return masked
}

// maskSecret masks a sensitive string, showing first 4 and last 4 chars.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 10 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

func newConfigSetProfileCmd() *cobra.Command {
	var (
		name        string
		p           Profile
		askPassword bool
	)

	cmd := &cobra.Command{
		Use:   "set-profile",
		Short: "Create or update a connection profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			if cmd.Flags().Changed("profile-output") {
				if err := validateOutputFormat(p.Output); err != nil {
					return err
				}
			}
			if askPassword {
				pw, err := readPassword(cmd)
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				p.Password = pw
			}

			cfg, err := LoadUserConfig()
			switch {
			case errors.Is(err, os.ErrNotExist):
				cfg = &UserConfig{
					CurrentProfile: "default",
					Profiles:       map[string]Profile{},
				}
			case err != nil:
				return err
			}

			existing := cfg.Profiles[name]
			changed := cmd.Flags().Changed
			if changed("profile-driver") {
				existing.Driver = strings.ToLower(p.Driver)
			}
			if changed("profile-host") {
				existing.Host = p.Host
			}
			if changed("profile-port") {
				existing.Port = p.Port
			}
			if changed("profile-user") {
				existing.User = p.User
			}
			if changed("profile-password") || askPassword {
				sealer, err := sealerFromEnv()
				if err != nil {
					return err
				}
				existing.Password = p.Password
				if sealer != nil {
					if existing.Password, err = sealer.Seal(p.Password); err != nil {
						return err
					}
				}
			}
			if changed("profile-database") {
				existing.Database = p.Database
			}
			if changed("profile-path") {
				existing.Path = p.Path
			}
			if changed("profile-log-level") {
				existing.LogLevel = p.LogLevel
			}
			if changed("profile-output") {
				existing.Output = p.Output
			}
			cfg.Profiles[name] = existing

			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]string{
					"status":  "ok",
					"profile": name,
					"path":    ConfigPath(),
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Profile %q saved to %s\n", name, ConfigPath())
			return nil
		},
	}

	// Profile fields are prefixed; the unprefixed names are the global flags.
	cmd.Flags().StringVar(&name, "name", "", "Profile name (required)")
	cmd.Flags().StringVar(&p.Driver, "profile-driver", "", "Database driver")
	cmd.Flags().StringVar(&p.Host, "profile-host", "", "Database host")
	cmd.Flags().IntVar(&p.Port, "profile-port", 0, "Database port")
	cmd.Flags().StringVar(&p.User, "profile-user", "", "Database user")
	cmd.Flags().StringVar(&p.Password, "profile-password", "", "Database password")
	cmd.Flags().BoolVar(&askPassword, "ask-password", false, "Prompt for the password instead of passing it as a flag")
	cmd.Flags().StringVar(&p.Database, "profile-database", "", "Database name")
	cmd.Flags().StringVar(&p.Path, "profile-path", "", "Database file for sqlite3/duckdb")
	cmd.Flags().StringVar(&p.LogLevel, "profile-log-level", "", "Default log level")
	cmd.Flags().StringVar(&p.Output, "profile-output", "", "Default output format")
	cmd.MarkFlagsMutuallyExclusive("profile-password", "ask-password")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// readPassword reads a password without echo when stdin is a terminal, and a
// single line otherwise.
func readPassword(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		return string(b), err
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newConfigUseProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use-profile <name>",
		Short: "Set the active connection profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				return fmt.Errorf("no config found: %w", err)
			}
			name := args[0]
			if _, ok := cfg.Profiles[name]; !ok {
				return fmt.Errorf("profile %q not found", name)
			}
			cfg.CurrentProfile = name
			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]string{
					"status":         "ok",
					"active_profile": name,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Active profile set to %q\n", name)
			return nil
		},
	}
}
