package distmat

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseFile reads a labeled square distance matrix from disk.
func ParseFile(path string) (*DistanceMatrix, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open distance matrix file %s: %w", path, err)
	}
	defer file.Close()

	dm, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return dm, nil
}

// Parse reads the labeled square matrix format: a header line carrying the n
// sample identifiers, then n rows of a row identifier followed by n values.
// Blank lines and lines starting with '#' are skipped. Row order must match
// the header order.
func Parse(r io.Reader) (*DistanceMatrix, error) {
	scanner := bufio.NewScanner(r)
	// Wide matrices exceed the default token limit.
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var header []string
	var ids []string
	var rows [][]float64

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if header == nil {
			header = fields
			continue
		}

		if len(fields) != len(header)+1 {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", lineNum, len(header)+1, len(fields))
		}
		if len(rows) == len(header) {
			return nil, fmt.Errorf("line %d: more rows than the %d declared samples", lineNum, len(header))
		}

		ids = append(ids, fields[0])
		row := make([]float64, len(header))
		for j, field := range fields[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid value %q in column %d: %w", lineNum, field, j+1, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read distance matrix: %w", err)
	}

	if header == nil {
		return nil, fmt.Errorf("empty distance matrix")
	}
	if len(ids) != len(header) {
		return nil, fmt.Errorf("expected %d rows, got %d", len(header), len(ids))
	}
	for i := range ids {
		if ids[i] != header[i] {
			return nil, fmt.Errorf("row %d is labeled %q but column %d is labeled %q", i+1, ids[i], i+1, header[i])
		}
	}

	return NewDistanceMatrix(ids, rows)
}
