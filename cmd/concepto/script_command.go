package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/concepto/concepto-av/internal/script"
	"github.com/concepto/concepto-av/internal/timecode"
)

func newScriptCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Inspect episode AV scripts",
	}
	cmd.AddCommand(newScriptShowCommand(ctx))
	return cmd
}

func newScriptShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <episode-id>",
		Short: "Print an episode's segments and shots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			sc, err := script.NewRepository(database.Conn()).GetScript(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load script: %w", err)
			}
			if sc == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "No script for episode %s.\n", args[0])
				return nil
			}
			printScript(cmd.OutOrStdout(), sc)
			return nil
		},
	}
}

func printScript(w io.Writer, sc *script.Script) {
	fmt.Fprintf(w, "Episode %s (%s)  %d words  %s\n",
		sc.EpisodeID, sc.Version, sc.TotalWords, runtimeTimecode(sc.TotalRuntimeSeconds))

	for _, seg := range sc.Segments {
		fmt.Fprintf(w, "\nSegment %d: %s\n", seg.SegmentNumber, seg.Title)
		if len(seg.Shots) == 0 {
			fmt.Fprintln(w, "  (no shots)")
			continue
		}
		rows := make([][]string, 0, len(seg.Shots)+1)
		for _, shot := range seg.Shots {
			rows = append(rows, []string{
				strconv.Itoa(shot.ShotNumber),
				truncate(shot.Visual, 32),
				truncate(shot.Audio, 48),
				strconv.Itoa(shot.WordCount),
				runtimeTimecode(shot.RuntimeSeconds),
			})
		}
		rows = append(rows, []string{"", "", "Total", strconv.Itoa(seg.TotalWords), runtimeTimecode(seg.TotalRuntimeSeconds)})
		fmt.Fprintln(w, renderTable(
			[]string{"Shot", "Visual", "Audio", "Words", "Runtime"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
		))
	}
}

func runtimeTimecode(seconds int) string {
	return timecode.Timecode(float64(seconds), timecode.FPS)
}
