package testrail

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized is matched by API errors caused by invalid credentials or missing permissions.
var ErrUnauthorized = errors.New("TestRail authentication failed")

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("TestRail API request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("TestRail API request failed with status %d: %s", e.StatusCode, e.Message)
}

// Is ...
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && (e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

func newAPIError(statusCode int, body []byte) *APIError {
	var response struct {
		Error string `json:"error"`
	}
	message := ""
	if err := json.Unmarshal(body, &response); err == nil {
		message = response.Error
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	return &APIError{StatusCode: statusCode, Message: message}
}
