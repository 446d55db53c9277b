package connect

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/joshua-takyi/bashbay-client/internal/models"
)

// Page is the one list shape used past the network boundary.
type Page[T any] struct {
	Items []T
	Next  string
	Count int
}

// listKeys are the envelope keys the backend wraps lists in.
var listKeys = []string{"results", "conversations", "data"}

// DecodeList accepts a bare JSON array, a paginated {results, next, count}
// object, or a {conversations: [...]} frame and normalises them into a Page.
func DecodeList[T any](raw []byte) (Page[T], error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Page[T]{Items: []T{}}, nil
	}

	if raw[0] == '[' {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return Page[T]{}, &models.DataError{Field: "list", Value: preview(raw), Err: err}
		}
		return Page[T]{Items: items, Count: len(items)}, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Page[T]{}, &models.DataError{Field: "list", Value: preview(raw), Err: err}
	}

	page := Page[T]{Items: []T{}}
	found := false
	for _, key := range listKeys {
		body, ok := envelope[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(body, &page.Items); err != nil {
			return Page[T]{}, &models.DataError{Field: key, Value: preview(body), Err: err}
		}
		if page.Items == nil {
			page.Items = []T{}
		}
		found = true
		break
	}
	if !found {
		return Page[T]{}, &models.DataError{Field: "list", Value: preview(raw), Err: fmt.Errorf("no list in response")}
	}

	if next, ok := envelope["next"]; ok {
		// null decodes to the empty string
		_ = json.Unmarshal(next, &page.Next)
	}
	page.Count = len(page.Items)
	if count, ok := envelope["count"]; ok {
		_ = json.Unmarshal(count, &page.Count)
	}
	return page, nil
}

func preview(raw []byte) string {
	const max = 120
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
