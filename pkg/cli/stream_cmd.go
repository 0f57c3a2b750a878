package cli

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"userstream/internal/db"
	"userstream/internal/domain"
	"userstream/internal/stream"
)

func (a *app) openStore(cmd *cobra.Command) (*sqlx.DB, error) {
	return db.Open(cmd.Context(), a.cfg.Database)
}

// withStreamer opens the store, runs fn with a Streamer over it and closes
// the store afterwards.
func (a *app) withStreamer(cmd *cobra.Command, fn func(*stream.Streamer) error) error {
	store, err := a.openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(stream.New(stream.DBConnector{DB: store}, a.logger))
}

// reportFailure flushes what was already printed, then logs err.
func (a *app) reportFailure(p *userPrinter, command string, err error) error {
	_ = p.Flush()
	a.logger.Error("stream failed", "command", command, "error", err)
	return err
}

func newStreamCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "stream",
		Short:   "Stream users one row at a time",
		Args:    cobra.NoArgs,
		PreRunE: a.resolve,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative, got %d", limit)
			}
			return a.withStreamer(cmd, func(s *stream.Streamer) error {
				p := newUserPrinter(cmd.OutOrStdout(), getOutputFormat(cmd))
				n := 0
				for u, err := range s.Users(cmd.Context()) {
					if err != nil {
						return a.reportFailure(p, "stream", err)
					}
					if err := p.Print(u); err != nil {
						return err
					}
					if err := p.Flush(); err != nil {
						return err
					}
					n++
					if limit > 0 && n == limit {
						break
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Stop after this many users (0 streams all)")

	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		batchSize int
		minAge    int
	)

	cmd := &cobra.Command{
		Use:     "batch",
		Short:   "Print users older than --min-age, fetched in batches",
		Args:    cobra.NoArgs,
		PreRunE: a.resolve,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("batch-size") {
				batchSize = a.cfg.BatchSize
			}
			return a.withStreamer(cmd, func(s *stream.Streamer) error {
				p := newUserPrinter(cmd.OutOrStdout(), getOutputFormat(cmd))
				users := stream.FilterUsers(s.Batches(cmd.Context(), batchSize), stream.OlderThan(minAge))
				for u, err := range users {
					if err != nil {
						return a.reportFailure(p, "batch", err)
					}
					if err := p.Print(u); err != nil {
						return err
					}
					if err := p.Flush(); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", domain.DefaultPageSize, "Rows fetched per batch (default BATCH_SIZE)")
	cmd.Flags().IntVar(&minAge, "min-age", 25, "Only print users strictly older than this")

	return cmd
}

func newPaginateCmd(a *app) *cobra.Command {
	var (
		pageSize int
		maxPages int
	)

	cmd := &cobra.Command{
		Use:     "paginate",
		Short:   "Print users page by page, one query per page",
		Args:    cobra.NoArgs,
		PreRunE: a.resolve,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("page-size") {
				pageSize = a.cfg.PageSize
			}
			if maxPages < 0 {
				return fmt.Errorf("--pages must not be negative, got %d", maxPages)
			}
			return a.withStreamer(cmd, func(s *stream.Streamer) error {
				p := newUserPrinter(cmd.OutOrStdout(), getOutputFormat(cmd))
				n := 0
				for page, err := range s.Pages(cmd.Context(), pageSize) {
					if err != nil {
						return a.reportFailure(p, "paginate", err)
					}
					if err := p.Print(page...); err != nil {
						return err
					}
					if err := p.Flush(); err != nil {
						return err
					}
					n++
					if maxPages > 0 && n == maxPages {
						break
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", domain.DefaultPageSize, "Rows per page (default PAGE_SIZE)")
	cmd.Flags().IntVar(&maxPages, "pages", 0, "Stop after this many pages (0 reads until the end)")

	return cmd
}

func newAverageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "average",
		Short:   "Compute the average age with a single streaming pass",
		Args:    cobra.NoArgs,
		PreRunE: a.resolve,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStreamer(cmd, func(s *stream.Streamer) error {
				summary, err := stream.AverageAge(s.Ages(cmd.Context()))
				if err != nil {
					a.logger.Error("average failed", "error", err)
					return err
				}

				if getOutputFormat(cmd) == "json" {
					out := map[string]interface{}{"count": summary.Count, "sum": summary.Sum}
					if avg, ok := summary.Average(); ok {
						out["average"] = avg
					}
					return PrintJSON(cmd.OutOrStdout(), out)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), summary.Report())
				return nil
			})
		},
	}
}
