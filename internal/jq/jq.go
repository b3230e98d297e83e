// Package jq filters JSON output with jq expressions.
package jq

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// Apply runs the jq expression over the JSON document and returns the
// results, one JSON value per line.
func Apply(jsonContent []byte, expr string) ([]byte, error) {
	if expr == "" {
		return nil, fmt.Errorf("jq expression is empty")
	}

	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parsing jq expression: %w", err)
	}

	var input any
	if err := json.Unmarshal(jsonContent, &input); err != nil {
		return nil, fmt.Errorf("parsing JSON input: %w", err)
	}

	var buf bytes.Buffer
	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("evaluating jq expression: %w", err)
		}
		line, err := gojq.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
