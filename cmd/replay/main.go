// Command replay runs a YAML command script through the tournament engine
// and prints the resulting report.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/AdamBeresnev/bracket-engine/internal/db"
	"github.com/AdamBeresnev/bracket-engine/internal/engine"
	"github.com/AdamBeresnev/bracket-engine/internal/replay"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
)

func main() {
	var (
		strict  bool
		summary bool
		dbPath  string
	)
	flag.BoolVar(&strict, "strict", false, "stop at the first rejected command")
	flag.BoolVar(&summary, "summary", false, "print the audit log instead of the JSON report")
	flag.StringVar(&dbPath, "db", "", "save the final state into this SQLite database")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] script.yaml\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), strict, summary, dbPath, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, strict, summary bool, dbPath string, out io.Writer) error {
	script, err := replay.Load(path)
	if err != nil {
		return err
	}

	report, runErr := replay.Run(engine.New(nil), script, strict)
	if runErr != nil && !errors.Is(runErr, replay.ErrRejected) {
		return runErr
	}

	if dbPath != "" && report.State != nil {
		if err := save(dbPath, report); err != nil {
			return err
		}
	}

	if summary {
		if report.State == nil {
			return runErr
		}
		for _, entry := range engine.SortAudit(report.State.Audit) {
			fmt.Fprintln(out, engine.FormatAuditLine(entry))
		}
	} else {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	}
	return runErr
}

func save(dbPath string, report *replay.Report) error {
	database, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		return err
	}
	return store.NewSnapshotStore(database).Save(context.Background(), report.State, 0)
}
