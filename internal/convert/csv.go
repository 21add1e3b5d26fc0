package convert

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const utf8BOM = "\ufeff"

func csvToText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return emptyCSVLine, nil
	}
	if err != nil {
		return "", fmt.Errorf("read csv header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	var sb strings.Builder
	sb.WriteString("CSV Headers: ")
	sb.WriteString(strings.Join(header, cellSeparator))
	sb.WriteByte('\n')

	rows := 0
	values := make([]string, len(header))
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read csv row %d: %w", rows+1, err)
		}
		rows++
		for i := range header {
			if i < len(record) {
				values[i] = record[i]
			} else {
				values[i] = ""
			}
		}
		sb.WriteString(strconv.Itoa(rows))
		sb.WriteString(": ")
		sb.WriteString(strings.Join(values, cellSeparator))
		sb.WriteByte('\n')
	}
	if rows == 0 {
		return emptyCSVLine, nil
	}
	return sb.String(), nil
}
