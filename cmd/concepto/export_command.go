package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/concepto/concepto-av/internal/export"
	"github.com/concepto/concepto-av/internal/logging"
	"github.com/concepto/concepto-av/internal/media"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var requestPath string
	var outDir string
	var record bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Build an AV editing archive from an export request file",
		Long: "Reads an export request (the JSON body of POST /export/av-editing), fetches its media\n" +
			"and writes the zip archive into the output directory. Use --request - to read stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := checkOutputDir(outDir); err != nil {
				return err
			}

			req, err := readExportRequest(cmd.InOrStdin(), requestPath)
			if err != nil {
				return err
			}

			logger := ctx.logger()
			client := media.NewHTTPClient(media.Options{
				UserAgent: cfg.UserAgent(),
				Timeout:   cfg.FetchTimeout(),
				MaxBytes:  cfg.MaxMediaBytes(),
			}, logging.WithComponent(logger, "media"))

			var history export.HistoryStore
			if record {
				database, err := ctx.openDB()
				if err != nil {
					return err
				}
				defer database.Close()
				history = export.NewHistory(database.Conn())
			}

			exporter := export.NewExporter(
				export.NewFetcher(client, cfg.FetchConcurrency(), logger),
				history,
				logging.WithComponent(logger, "export"),
			)
			result, err := exporter.Export(cmd.Context(), req)
			if err != nil {
				return err
			}

			target, err := saveArchive(outDir, result.Filename, result.Archive)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderExportSummary(result.Summary, target))
			if len(result.Summary.FailedURLs) > 0 {
				rows := make([][]string, len(result.Summary.FailedURLs))
				for i, u := range result.Summary.FailedURLs {
					rows[i] = []string{strconv.Itoa(i + 1), u}
				}
				fmt.Fprintln(out, "Skipped media:")
				fmt.Fprintln(out, renderTable([]string{"#", "URL"}, rows, []columnAlignment{alignRight, alignLeft}))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&requestPath, "request", "r", "", "Export request JSON file, or - for stdin")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory the archive is written to")
	cmd.Flags().BoolVar(&record, "record", false, "Record the run in the export history")
	_ = cmd.MarkFlagRequired("request")

	return cmd
}

func readExportRequest(stdin io.Reader, path string) (*export.Request, error) {
	var r io.Reader
	if strings.TrimSpace(path) == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open request: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req export.Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &req, nil
}

func renderExportSummary(s export.Summary, path string) string {
	return renderKeyValues([][2]string{
		{"Export ID", s.ExportID},
		{"Episode", s.EpisodeID},
		{"Archive", path},
		{"Size", humanize.Bytes(uint64(s.ArchiveBytes))},
		{"Slides", strconv.Itoa(s.SlideCount)},
		{"Audio Tracks", strconv.Itoa(s.AudioCount)},
		{"Media Files", strconv.Itoa(s.MediaFiles)},
		{"Skipped", strconv.Itoa(len(s.FailedURLs))},
	})
}
