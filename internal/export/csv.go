package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/angelmondragon/clientpulse/internal/rfm/types"
)

// WriteCSV writes the master table to path, creating parent directories as
// needed. The file is written atomically enough for a batch tool: a partial
// write surfaces as an error, never as a silently truncated file.
func WriteCSV(path string, rows []types.CustomerMasterRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(Header()); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(Record(row)); err != nil {
			return fmt.Errorf("writing csv row for customer %s: %w", row.CustomerID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return file.Close()
}
