// Command tocsv flattens a JSON export into a Goodreads-import CSV.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/aluiziolira/go-scrape-shelf/pipeline"
)

func main() {
	input := flag.String("in", "output/books.json", "JSON export to convert")
	output := flag.String("out", "", "CSV destination (defaults to the input path with a .csv extension)")
	flag.Parse()

	csvPath := *output
	if csvPath == "" {
		csvPath = strings.TrimSuffix(*input, ".json") + ".csv"
	}

	count, err := pipeline.ConvertJSONToCSV(*input, csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "convert: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d records to %s\n", count, csvPath)
}
