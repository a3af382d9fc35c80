package extractor

import (
	"encoding/csv"
	"os"
	"strings"
)

// CSV flattens each record into one comma-joined line so cell values stay
// retrievable as text.
type CSV struct{}

func (c *CSV) Extract(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows are common in the wild

	records, err := reader.ReadAll()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, record := range records {
		b.WriteString(strings.Join(record, ", "))
		b.WriteString("\n")
	}

	return sanitizeUTF8(strings.TrimSpace(b.String())), nil
}
