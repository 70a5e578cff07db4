package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aluiziolira/go-scrape-shelf/models"
)

// ConvertJSONToCSV flattens a previously exported JSON document into a
// Goodreads-import CSV. The input may be an array of records or a
// single record object.
func ConvertJSONToCSV(jsonPath, csvPath string) (int, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", jsonPath, err)
	}

	var records []*models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		var single models.Record
		if err := json.Unmarshal(data, &single); err != nil {
			return 0, fmt.Errorf("parse %s: %w", jsonPath, err)
		}
		records = []*models.Record{&single}
	}

	writer, err := NewCSVWriter(csvPath)
	if err != nil {
		return 0, err
	}

	if err := writer.Write(records); err != nil {
		writer.Close()
		return 0, err
	}
	if err := writer.Close(); err != nil {
		return 0, err
	}
	return len(records), nil
}
