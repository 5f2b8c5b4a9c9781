package store

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"factorlab/internal/domain"
	"factorlab/internal/util"
)

// ReadIndexCSV parses an index close series. Each line is "date,close"; a
// header line, blank lines and '#' comments are skipped.
func ReadIndexCSV(r io.Reader) ([]domain.IndexClose, error) {
	var out []domain.IndexClose
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("line %d: want date,close", lineNo)
		}
		date, err := util.ParseDate(strings.TrimSpace(parts[0]))
		if err != nil {
			if len(out) == 0 && lineNo == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		px, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: close: %w", lineNo, err)
		}
		out = append(out, domain.IndexClose{Date: date, Close: px})
	}
	return out, scanner.Err()
}
