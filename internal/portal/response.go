package portal

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/validation-portal/portal-client/internal/types"
)

// failure bodies are short JSON documents
const maxErrorBody = 1 << 20

// Suggested filename from a Content-Disposition style header, quotes stripped
func filenameFromDisposition(header, fallback string) string {
	if header == "" {
		return fallback
	}

	if _, params, err := mime.ParseMediaType(header); err == nil {
		if name := params["filename"]; name != "" {
			return name
		}
	}

	_, rest, found := strings.Cut(header, "filename=")
	if !found {
		return fallback
	}
	rest, _, _ = strings.Cut(rest, ";")
	name := strings.TrimSpace(strings.ReplaceAll(rest, `"`, ""))
	if name == "" {
		return fallback
	}

	return name
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}

// Classifies a non 2xx response. The body is only parsed when it is declared JSON.
func classifyFailure(resp *http.Response) error {
	transport := &TransportError{
		Err:        fmt.Errorf("request failed with status code %d", resp.StatusCode),
		StatusCode: resp.StatusCode,
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		return transport
	}

	var body types.Error
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&body); err != nil {
		return transport
	}

	if body.Message == nil || *body.Message == "" {
		return &ServiceError{Message: genericServiceMessage, StatusCode: resp.StatusCode}
	}

	return &ServiceError{Message: *body.Message, StatusCode: resp.StatusCode}
}
