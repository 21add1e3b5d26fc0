// Package convert flattens spreadsheet and CSV files into the plain-text transcript used as
// question-answering context.
package convert

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is matched by every *UnsupportedFormatError.
var ErrUnsupportedFormat = errors.New("unsupported file type")

// UnsupportedFormatError reports an extension the converter does not read.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type %q: please upload .xlsx, .xls, or .csv", e.Ext)
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

const (
	cellSeparator = " | "
	emptyCSVLine  = "CSV file appears empty."
)

// Supported reports whether ext (with or without the leading dot) can be converted.
func Supported(ext string) bool {
	switch normalizeExt(ext) {
	case ".xlsx", ".xls", ".csv":
		return true
	default:
		return false
	}
}

// Convert reads the file at path and returns its textual transcript. ext, not the file
// contents, decides the reader.
func Convert(path, ext string) (string, error) {
	if !Supported(ext) {
		return "", &UnsupportedFormatError{Ext: ext}
	}
	var (
		text string
		err  error
	)
	if normalizeExt(ext) == ".csv" {
		text, err = csvToText(path)
	} else {
		text, err = workbookToText(path)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
