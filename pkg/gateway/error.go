package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-client/internal/serviceerr"
)

const genericServerMessage = "Unexpected server error"

// Error is a non-success response of the credential service.
type Error struct {
	Status  int
	Message string
	URL     string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the failure class, so callers can match it with errors.Is.
func (e *Error) Unwrap() error {
	return serviceerr.ForStatus(e.Status)
}

// Unauthorized reports whether the credential was rejected (401 or 403),
// the signal to attempt a renewal.
func (e *Error) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

type errorBody struct {
	Message string `json:"message"`
}

func classify(ctx context.Context, resp *http.Response, body []byte, url, capability string) *Error {
	gerr := &Error{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("Request failed (%d)", resp.StatusCode),
		URL:     url,
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))

	var fromBody bool
	switch mediaType {
	case mediaTypeJSON:
		var eb errorBody
		if err := json.Unmarshal(body, &eb); err == nil && eb.Message != "" {
			gerr.Message = eb.Message
			fromBody = true
		}
	case "text/html":
		// never show markup or stack traces to the user
		gerr.Message = genericServerMessage
	}

	if resp.StatusCode == http.StatusNotFound && capability != "" && !fromBody {
		gerr.Message = fmt.Sprintf(
			"The %s endpoint %s does not exist on the server. Add the route on the server or update endpoints.%s in the configuration",
			capability, url, capability,
		)
		slogctx.Error(ctx, "Endpoint not found", "capability", capability, "url", url)
	}

	return gerr
}
