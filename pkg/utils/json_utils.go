package utils

import (
	"encoding/json"
	"fmt"
)

// ToRawMessage encodes v into the raw JSON form the queue publisher carries.
func ToRawMessage(v interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal publish payload: %w", err)
	}
	return json.RawMessage(data), nil
}
