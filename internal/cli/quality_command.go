package cli

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/cesargomez89/quarry/internal/domain"
	"github.com/cesargomez89/quarry/internal/export"
	"github.com/cesargomez89/quarry/internal/quality"
)

func runQuality(args []string) error {
	fs := flag.NewFlagSet("quality", flag.ContinueOnError)
	normalize := fs.Bool("normalize", false, "normalize phone numbers and websites before scoring")
	csvPath := fs.String("csv", "", "also write the records as CSV to this path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: quarry quality [--normalize] [--csv out.csv] [--json] <businesses.json>")
	}

	records, err := readBusinesses(fs.Arg(0))
	if err != nil {
		return err
	}
	if *normalize {
		for i := range records {
			quality.Normalize(&records[i])
		}
	}

	if *csvPath != "" {
		if err := writeCSVFile(*csvPath, records); err != nil {
			return err
		}
	}

	report := quality.Score(records)
	if *jsonOut {
		return printJSON(report)
	}
	printReport(report)
	if *csvPath != "" {
		fmt.Fprintf(stdout, "\nwrote %d records to %s\n", len(records), *csvPath)
	}
	return nil
}

func readBusinesses(path string) ([]domain.Business, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []domain.Business
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

func writeCSVFile(path string, records []domain.Business) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printReport(r quality.Report) {
	fmt.Fprintln(stdout, titleStyle.Render("Quality report"))
	fmt.Fprintf(stdout, "records:        %d\n", r.TotalRecords)
	fmt.Fprintf(stdout, "overall score:  %s\n", scoreStyle(r.OverallScore).Render(fmt.Sprintf("%.2f", r.OverallScore)))
	fmt.Fprintf(stdout, "complete:       %d (incomplete %d)\n", r.Complete, r.Incomplete)
	fmt.Fprintf(stdout, "distribution:   excellent %d, good %d, fair %d, poor %d\n",
		r.Distribution.Excellent, r.Distribution.Good, r.Distribution.Fair, r.Distribution.Poor)

	fmt.Fprintln(stdout, "field completion:")
	for _, f := range quality.Checklist {
		fmt.Fprintf(stdout, "  %-14s %6.2f%%  (%d missing)\n", f, r.FieldCompletion[f]*100, r.MissingFields[f])
	}

	if len(r.Duplicates) > 0 {
		fmt.Fprintf(stdout, "duplicates:     %d place ids, %d records\n", len(r.Duplicates), r.DuplicateRecords)
		for _, d := range r.Duplicates {
			fmt.Fprintf(stdout, "  %s x%d\n", d.PlaceID, d.Count)
		}
	}
}
