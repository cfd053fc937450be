package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jetblue/mdb"
	"github.com/spf13/cobra"
)

var (
	jsonOut bool
	table   string
)

func main() {
	root := &cobra.Command{
		Use:   "mdbcat <file.mdb>",
		Short: "Inspect a Jet Blue (MDB/ACCDB) database file",
	}

	tablesCmd := &cobra.Command{
		Use:   "tables <file.mdb>",
		Short: "List the visible user tables",
		Args:  cobra.ExactArgs(1),
		RunE:  runTables,
	}

	dumpCmd := &cobra.Command{
		Use:   "dump <file.mdb>",
		Short: "Dump table rows",
		Args:  cobra.ExactArgs(1),
		RunE:  runDump,
	}
	dumpCmd.Flags().StringVar(&table, "table", "", "dump only this table")
	dumpCmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON instead of a tab-aligned dump")

	root.AddCommand(tablesCmd, dumpCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB(path string) (*mdb.Database, error) {
	return mdb.Open(path, nil)
}

func runTables(cmd *cobra.Command, args []string) error {
	db, err := openDB(args[0])
	if err != nil {
		return err
	}
	defer db.Close()

	for _, name := range db.Tables() {
		fmt.Println(name)
	}
	for _, a := range db.Anomalies {
		fmt.Fprintln(os.Stderr, "warning:", a)
	}
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	db, err := openDB(args[0])
	if err != nil {
		return err
	}
	defer db.Close()

	names := db.Tables()
	if table != "" {
		names = []string{table}
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		for _, name := range names {
			t, err := db.ParseTable(name)
			if err != nil {
				fmt.Fprintln(os.Stderr, "warning:", name, err)
				continue
			}
			if err := enc.Encode(t); err != nil {
				return err
			}
		}
		return nil
	}

	if table == "" {
		return db.PrintDatabase(os.Stdout)
	}
	h, err := db.Table(table)
	if err != nil {
		return err
	}
	data, err := h.Parse()
	if err != nil {
		return err
	}
	cols := h.Columns()
	rowCount := 0
	if len(cols) > 0 {
		rowCount = len(data[cols[0]])
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(cols, "\t"))
	for i := 0; i < rowCount; i++ {
		vals := make([]string, len(cols))
		for j, c := range cols {
			vals[j] = fmt.Sprintf("%v", data[c][i])
		}
		fmt.Fprintln(w, strings.Join(vals, "\t"))
	}
	return w.Flush()
}
