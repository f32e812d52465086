package core

import "encoding/json"

// JSONEncode marshals v to JSON. Centralized so the encoder can be swapped
// (e.g. for a faster codec) without touching every call site.
func JSONEncode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// JSONDecode unmarshals data into v.
func JSONDecode(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
