package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/vitaliisemenov/configserver/internal/property"
)

// ParseProperties decodes a flat key=value (or key: value) properties file.
// Each literal line becomes one leaf string entry; keys are not flattened
// further even when they contain dots, since the file's own convention of
// dotted keys is already the storage convention.
func ParseProperties(path string, data []byte) (*property.Document, error) {
	doc := property.New()

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}

		key, value, ok := splitPropertyLine(line)
		if !ok {
			return nil, &ParseError{
				Path:     path,
				Format:   "properties",
				Position: fmt.Sprintf("line %d", lineNo),
				Detail:   "expected key=value or key: value",
			}
		}
		doc.Set(strings.TrimSpace(key), property.String(strings.TrimSpace(value)))
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Path: path, Format: "properties", Detail: err.Error()}
	}

	return doc, nil
}

func splitPropertyLine(line string) (key, value string, ok bool) {
	if i := strings.IndexAny(line, "=:"); i >= 0 {
		return line[:i], line[i+1:], true
	}
	return "", "", false
}
