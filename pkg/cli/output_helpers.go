package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"userstream/internal/domain"
)

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// userPrinter writes users as they arrive. Table output is aligned per flushed
// unit; JSON output is one object per line.
type userPrinter struct {
	json   *json.Encoder
	table  *tabwriter.Writer
	header bool
}

func newUserPrinter(w io.Writer, format string) *userPrinter {
	if format == "json" {
		return &userPrinter{json: json.NewEncoder(w)}
	}
	return &userPrinter{table: tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)}
}

func (p *userPrinter) Print(users ...domain.User) error {
	for _, u := range users {
		if p.json != nil {
			if err := p.json.Encode(u); err != nil {
				return err
			}
			continue
		}
		if !p.header {
			if _, err := fmt.Fprintln(p.table, "USER_ID\tNAME\tEMAIL\tAGE"); err != nil {
				return err
			}
			p.header = true
		}
		if _, err := fmt.Fprintf(p.table, "%s\t%s\t%s\t%d\n", u.UserID, u.Name, u.Email, u.Age); err != nil {
			return err
		}
	}
	return nil
}

// Flush emits buffered table rows. It is a no-op for JSON.
func (p *userPrinter) Flush() error {
	if p.table == nil {
		return nil
	}
	return p.table.Flush()
}
