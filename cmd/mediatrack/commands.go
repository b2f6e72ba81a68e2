package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/drallgood/mediatrack/internal/library"
	"github.com/drallgood/mediatrack/internal/models"
)

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a library export (.xlsx, .csv or .tsv)",
		ArgsUsage: "[FILE]",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.Close()

			path := c.Args().First()
			if path == "" {
				path = e.cfg.Import.Path
			}
			if path == "" {
				return errors.New("no import file given and import.path is not configured")
			}

			summary, err := e.importer().Import(c.Context, path)
			if err != nil {
				return err
			}
			printSummary(c.App.Writer, summary)
			return nil
		},
	}
}

func seriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "series",
		Usage: "List series progress",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.Close()

			progress, err := e.library().SeriesProgress(c.Context)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SERIES\tOWNED\tMISSING\tLISTENED\tLENGTH")
			for _, p := range progress {
				fmt.Fprintf(w, "%s\t%d/%d\t%d\t%.1f%%\t%s\n",
					p.SeriesName, p.Owned, p.Total, p.Missing, p.PercentListened, formatMinutes(p.TotalMinutes))
			}
			return w.Flush()
		},
		Subcommands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "List the books of one series",
				ArgsUsage: "NAME",
				Action: func(c *cli.Context) error {
					name := c.Args().First()
					if name == "" {
						return errors.New("series name is required")
					}

					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.Close()

					books, err := e.library().SeriesDetail(c.Context, name)
					if errors.Is(err, library.ErrNotFound) {
						return fmt.Errorf("no series named %q", name)
					}
					if err != nil {
						return err
					}
					printBooks(c.App.Writer, books)
					return nil
				},
			},
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show library-wide listening statistics",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.Close()

			stats, err := e.library().ListeningStats(c.Context)
			if err != nil {
				return err
			}

			w := c.App.Writer
			fmt.Fprintf(w, "Books:     %s (%s owned, %s missing)\n",
				humanize.Comma(int64(stats.TotalBooks)), humanize.Comma(int64(stats.OwnedBooks)), humanize.Comma(int64(stats.UnownedBooks)))
			fmt.Fprintf(w, "Listened:  %s (%.1f%% of owned)\n", humanize.Comma(int64(stats.ListenedBooks)), stats.CompletionPercent)
			fmt.Fprintf(w, "Length:    %s total, %s listened\n", formatMinutes(stats.TotalMinutes), formatMinutes(stats.ListenedMinutes))
			return nil
		},
	}
}

func listenCommand() *cli.Command {
	return &cli.Command{
		Name:      "listen",
		Usage:     "Mark an audiobook as listened",
		ArgsUsage: "ID",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "undo",
				Usage: "Mark the audiobook as not listened",
			},
		},
		Action: func(c *cli.Context) error {
			id, err := strconv.ParseUint(c.Args().First(), 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid audiobook id %q", c.Args().First())
			}

			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.Close()

			rec, err := e.library().MarkListened(c.Context, uint(id), !c.Bool("undo"))
			if err != nil {
				return err
			}

			state := "listened"
			if !rec.Listened {
				state = "not listened"
			}
			fmt.Fprintf(c.App.Writer, "%q marked as %s\n", rec.Title, state)
			return nil
		},
	}
}

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Show recent import runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of runs to show",
				Value: 10,
			},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.Close()

			runs, err := e.library().RecentRuns(c.Context, c.Int("limit"))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tSTATUS\tPROCESSED\tMISSING\tFAILED\tSOURCE")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
					humanize.Time(r.StartedAt), r.Status, r.ProcessedCount, r.MissingBooksFound, r.FailedUpserts, r.SourcePath)
			}
			return w.Flush()
		},
	}
}

func printSummary(w io.Writer, s *models.ImportSummary) {
	fmt.Fprintf(w, "Processed %s books in %s series, %s missing from the library\n",
		humanize.Comma(int64(s.ProcessedCount)), humanize.Comma(int64(s.SeriesCount)), humanize.Comma(int64(s.MissingBooksFound)))
	if s.FailedUpserts > 0 {
		fmt.Fprintf(w, "Warning: %s records could not be stored, see the log for details\n", humanize.Comma(int64(s.FailedUpserts)))
	}
}

func printBooks(w io.Writer, books []models.AudiobookRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\t#\tTITLE\tAUTHOR\tSTATUS")
	for _, b := range books {
		pos := "-"
		if b.SeriesPosition != nil {
			pos = humanize.Ftoa(*b.SeriesPosition)
		}
		status := "owned"
		switch {
		case !b.Owned:
			status = "missing"
		case b.Listened:
			status = "listened"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", b.ID, pos, b.Title, b.Author, status)
	}
	tw.Flush()
}

// formatMinutes renders a length such as 1,234h 05m
func formatMinutes(total int) string {
	if total <= 0 {
		return "0m"
	}
	hours, mins := total/60, total%60
	if hours == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%sh %02dm", humanize.Comma(int64(hours)), mins)
}
