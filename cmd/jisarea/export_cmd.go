package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/jisarea/internal/export"
)

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-jis DB OUT.csv",
		Short: "Write the jis_code to sub_area_id mapping as CSV",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd.Context(), configFrom(cmd), args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := export.WriteJISMappingFile(cmd.Context(), args[1], db)
			if err != nil {
				return err
			}
			slog.Info("export finished", "rows", n, "path", args[1])
			return nil
		},
	}
}
