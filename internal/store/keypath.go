package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/PaesslerAG/jsonpath"
)

// keyPaths holds the compiled JSONPath expressions of the schema.
type keyPaths struct {
	compiled map[string]evaluable
}

type evaluable func(ctx context.Context, doc any) (any, error)

func compileKeyPaths(schema []CollectionSpec) (*keyPaths, error) {
	kp := &keyPaths{compiled: make(map[string]evaluable)}
	add := func(path string) error {
		if _, ok := kp.compiled[path]; ok {
			return nil
		}
		eval, err := jsonpath.New(path)
		if err != nil {
			return fmt.Errorf("compiling key path %q: %w", path, err)
		}
		kp.compiled[path] = evaluable(eval)
		return nil
	}
	for _, c := range schema {
		if err := add(c.KeyPath); err != nil {
			return nil, err
		}
		for _, idx := range c.Indexes {
			if err := add(idx.Path); err != nil {
				return nil, err
			}
		}
	}
	return kp, nil
}

// extract evaluates path against doc and converts the result to a key.
// ok is false when the path is missing or does not hold a string or number,
// which mirrors how a keyed store skips records lacking an index value.
func (kp *keyPaths) extract(ctx context.Context, path string, doc any) (string, bool) {
	eval, found := kp.compiled[path]
	if !found {
		return "", false
	}
	val, err := eval(ctx, doc)
	if err != nil {
		return "", false
	}
	// jsonpath may wrap a single match in a list
	if list, isList := val.([]any); isList {
		if len(list) != 1 {
			return "", false
		}
		val = list[0]
	}
	return keyString(val)
}

func keyString(val any) (string, bool) {
	switch v := val.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}

// encodeDocument marshals record and decodes it into a generic JSON object
// for key path evaluation.
func encodeDocument(record any) ([]byte, map[string]any, error) {
	var data []byte
	switch r := record.(type) {
	case json.RawMessage:
		data = r
	case []byte:
		data = r
	default:
		var err error
		data, err = json.Marshal(record)
		if err != nil {
			return nil, nil, err
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return nil, nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(compact.Bytes(), &doc); err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, ErrMissingKey
	}
	return compact.Bytes(), doc, nil
}
