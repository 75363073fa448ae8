package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/jisarea/internal/jiscode"
	"github.com/JonMunkholm/jisarea/internal/lookup"
)

func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Resolve natural codes to surrogate ids",
	}
	cmd.AddCommand(newLookupCityCmd(), newLookupSubAreaCmd())
	return cmd
}

func newLookupCityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "city DB PREF CITY",
		Short: "Print the city id for a prefecture and city code",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pref, err := jiscode.Parse(args[1], jiscode.PrefectureWidth)
			if err != nil {
				return fmt.Errorf("PREF: %w", err)
			}
			city, err := jiscode.Parse(args[2], jiscode.CityWidth)
			if err != nil {
				return fmt.Errorf("CITY: %w", err)
			}

			db, err := openDB(cmd.Context(), configFrom(cmd), args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			id, found, err := lookup.NewCityIDSelector(db).CityID(cmd.Context(), pref, city)
			if err != nil {
				return err
			}
			printID(cmd, id, found)
			return nil
		},
	}
}

func newLookupSubAreaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sub-area DB PREF CITY LEAF",
		Short: "Print the sub-area id for a prefecture, city and 6-digit sub-area code",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			pref, err := jiscode.Parse(args[1], jiscode.PrefectureWidth)
			if err != nil {
				return fmt.Errorf("PREF: %w", err)
			}
			city, err := jiscode.Parse(args[2], jiscode.CityWidth)
			if err != nil {
				return fmt.Errorf("CITY: %w", err)
			}
			leaf, err := jiscode.Parse(args[3], jiscode.SubAreaWidth)
			if err != nil {
				return fmt.Errorf("LEAF: %w", err)
			}

			db, err := openDB(cmd.Context(), configFrom(cmd), args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			id, found, err := lookup.NewSubAreaIDSelector(db).SubAreaID(cmd.Context(), pref, city, leaf)
			if err != nil {
				return err
			}
			printID(cmd, id, found)
			return nil
		},
	}
}

func printID(cmd *cobra.Command, id int64, found bool) {
	if !found {
		fmt.Fprintln(cmd.OutOrStdout(), "Not found")
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
}
