package internal

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/itchyny/gojq"
)

// RunQuery runs a jq query against res and writes every result to w as a
// JSON line.
func RunQuery(query string, res *Response, w io.Writer) error {
	q, err := gojq.Parse(query)
	if err != nil {
		return fmt.Errorf("failed to parse query: %s: %s", query, err)
	}
	return runQuery(q, res.AsObject(), w)
}

func runQuery(q *gojq.Query, input any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	iter := q.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			if err, ok := err.(*gojq.HaltError); ok && err.Value() == nil {
				break
			}
			return fmt.Errorf("failed to process query: %s", err)
		}

		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to marshal query result: %s", err)
		}
	}
	return nil
}
