package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/archeus/mt940-merger/internal/export"
	"github.com/archeus/mt940-merger/internal/registry"
	"github.com/archeus/mt940-merger/internal/writer"
)

func newConvertCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "convert <file.sta> [file2.sta ...]",
		Short: "Merge local statement files into one deduplicated CSV",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := loadRuntime()
			if err != nil {
				return err
			}

			reg := registry.New(log)
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					log.WithError(err).WithField("file", path).Error("skipping unreadable file")
					continue
				}
				if _, err := reg.AddFile(path, data); err != nil {
					log.WithError(err).WithField("file", path).Error("skipping invalid file")
				}
			}
			if reg.Len() == 0 {
				return fmt.Errorf("no statement files could be processed")
			}

			files := reg.Files()
			rows := export.Rows(files)
			if len(rows) == 0 {
				return fmt.Errorf("no transactions found; refusing to write an empty export")
			}

			outPath := outputPath
			if outPath == "" {
				outPath = export.FileName(files, rows)
			}
			w := &writer.CSVWriter{}
			if err := w.WriteToFile(outPath, rows); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d transaction(s) from %d file(s) to %s\n",
				len(rows), reg.Len(), outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output CSV path (defaults to derived name)")
	return cmd
}
