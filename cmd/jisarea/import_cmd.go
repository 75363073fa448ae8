package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/jisarea/internal/importer"
)

func newImportCmd() *cobra.Command {
	var encoding string

	cmd := &cobra.Command{
		Use:   "import DB FILE...",
		Short: "Import R2KA CSV or DBF files into DB",
		Long: `Import R2KA CSV or DBF files into DB, creating the schema if needed.

FILE arguments may be glob patterns. A pattern that matches nothing is
passed through as a literal path. Re-importing the same files inserts
nothing new.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			if !cmd.Flags().Changed("encoding") {
				encoding = cfg.Import.Encoding
			}

			dsn := args[0]
			paths, err := expandPatterns(args[1:])
			if err != nil {
				return err
			}

			db, err := openDB(cmd.Context(), cfg, dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := importer.New(importer.WithEncoding(encoding)).Import(cmd.Context(), db, paths)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processed %d rows, inserted %d new records.\n", res.Attempted, res.Inserted)
			fmt.Fprintf(out, "Database saved to %s\n", dsn)
			return nil
		},
	}

	cmd.Flags().StringVar(&encoding, "encoding", "cp932", "File encoding for input CSV/DBF")
	return cmd
}

// expandPatterns expands each glob in order. Matches of one pattern are
// sorted; a pattern with no matches is kept as given.
func expandPatterns(patterns []string) ([]string, error) {
	var paths []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			paths = append(paths, p)
			continue
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}
