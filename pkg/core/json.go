package core

import (
	"encoding/json"
	"fmt"
)

// JSONEncode encodes v as JSON, the default wire format of the event bus and the APIs
func JSONEncode(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	return data, nil
}

// JSONDecode decodes JSON data into v
func JSONDecode(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	return nil
}
