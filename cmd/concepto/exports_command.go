package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/concepto/concepto-av/internal/export"
)

func newExportsCommand(ctx *commandContext) *cobra.Command {
	var episodeID string
	var limit int

	cmd := &cobra.Command{
		Use:   "exports",
		Short: "List recorded export runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			records, err := export.NewHistory(database.Conn()).List(cmd.Context(), episodeID, limit)
			if err != nil {
				return fmt.Errorf("list exports: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No exports recorded.")
				return nil
			}
			fmt.Fprintln(out, renderExports(records))
			return nil
		},
	}

	cmd.Flags().StringVarP(&episodeID, "episode", "e", "", "Only show exports of this episode")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of exports to show")

	return cmd
}

func renderExports(records []*export.Record) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		size := "-"
		if r.ArchiveBytes > 0 {
			size = humanize.Bytes(uint64(r.ArchiveBytes))
		}
		rows = append(rows, []string{
			r.ID,
			r.EpisodeID,
			string(r.Status),
			strconv.Itoa(r.SlideCount),
			strconv.Itoa(r.AudioCount),
			strconv.Itoa(len(r.FailedURLs)),
			size,
			humanize.Time(r.CreatedAt),
		})
	}
	return renderTable(
		[]string{"ID", "Episode", "Status", "Slides", "Audio", "Skipped", "Size", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}
