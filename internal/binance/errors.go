package binance

import (
	"encoding/json"
	"fmt"

	"github.com/tradelens/tradelens/internal/connector"
)

// APIError is a structured rejection decoded from the exchange's error
// payload. Convenience wrappers return it when the underlying response
// was unsuccessful; prepared queries instead hand back the raw failed
// response for the caller to decode.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("exchange error %d (http %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("exchange rejected request with http %d", e.StatusCode)
}

// apiError decodes the error body of a failed response. An undecodable
// body still yields an APIError carrying the HTTP status.
func apiError(resp *connector.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(resp.Content, &payload); err == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Msg
	}
	return apiErr
}
