package output

import "encoding/json"

// FormatJSONValue marshals any result with indentation for terminal
// display.
func FormatJSONValue(value any) (string, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
