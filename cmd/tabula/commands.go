package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func validateCommand(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "validate <shape> <file.csv>",
		Short: "Check that every row of a CSV file matches a shape",
		Long: `Validate loads the file through the shape and reports the record count.
With --watch it keeps running and validates again whenever the file or the
shapes file changes.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			validate := func() error {
				svc, done, err := a.newService(cmd.OutOrStdout(), needShapes)
				if err != nil {
					return err
				}
				defer done()

				_, err = svc.Validate(args[0], args[1])
				return err
			}

			if !watch {
				return validate()
			}
			return a.watch(cmd.Context(), cmd.ErrOrStderr(), validate, args[1], a.cfg.ShapesFile)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Validate again whenever the file or shapes change")
	return cmd
}

func convertCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "convert <shape> <src.csv> <dst>",
		Short: "Validate a CSV file and write it as CSV, JSON or YAML",
		Long: `Convert loads the source file through the shape and writes the validated
records to dst. The format defaults to the extension of dst.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.newService(cmd.OutOrStdout(), needShapes)
			if err != nil {
				return err
			}
			defer done()

			_, err = svc.Convert(args[0], args[1], args[2], format)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: csv, json or yaml")
	return cmd
}

func snapshotCommand(a *app) *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "snapshot <shape> <file.csv>",
		Short: "Validate a CSV file and store it in the snapshot database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.newService(cmd.OutOrStdout(), needShapes|needStore)
			if err != nil {
				return err
			}
			defer done()

			_, err = svc.Snapshot(cmd.Context(), args[0], args[1], table)
			return err
		},
	}

	cmd.Flags().StringVarP(&table, "table", "t", "", "Table name (default: shape name)")
	return cmd
}

func restoreCommand(a *app) *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "restore <shape> <dst.csv>",
		Short: "Validate a stored table and export it to a CSV file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.newService(cmd.OutOrStdout(), needShapes|needStore)
			if err != nil {
				return err
			}
			defer done()

			_, err = svc.Restore(cmd.Context(), args[0], table, args[1])
			return err
		},
	}

	cmd.Flags().StringVarP(&table, "table", "t", "", "Table name (default: shape name)")
	return cmd
}

func tablesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables in the snapshot database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.newService(cmd.OutOrStdout(), needStore)
			if err != nil {
				return err
			}
			defer done()

			tables, err := svc.Tables(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tROWS\tUPDATED\tCOLUMNS")
			for _, t := range tables {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", t.Name, t.Rows, t.UpdatedAt.Format(time.RFC3339), strings.Join(t.Columns, ","))
			}
			return tw.Flush()
		},
	}
}

func dropCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <table>",
		Short: "Remove a table from the snapshot database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.newService(cmd.OutOrStdout(), needStore)
			if err != nil {
				return err
			}
			defer done()

			return svc.Drop(cmd.Context(), args[0])
		},
	}
}
