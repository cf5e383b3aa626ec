package oracle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	acperrors "github.com/agentcommerce/acp-core/internal/errors"
)

// httpTimeout matches spec.md §4.5's "10-second timeout" for the HTTP
// oracle reader.
const httpTimeout = 10 * time.Second

// fallbackPaths are tried, in order, when jsonPath is empty or absent from
// the response (spec.md §4.5).
var fallbackPaths = []string{"price", "result", "value", "data.price"}

// HTTPReader fetches a numeric value from a JSON HTTP endpoint.
type HTTPReader struct {
	Client *http.Client
}

// NewHTTPReader constructs an HTTPReader with the spec's 10-second timeout.
func NewHTTPReader() *HTTPReader {
	return &HTTPReader{Client: &http.Client{Timeout: httpTimeout}}
}

// Read issues a GET to url and walks the response for jsonPath, falling
// back to price|result|value|data.price when jsonPath is empty or absent.
func (h *HTTPReader) Read(ctx context.Context, url, jsonPath string) (float64, error) {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: httpTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, acperrors.External("http-oracle", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, acperrors.External("http-oracle", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, acperrors.External("http-oracle", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, acperrors.External("http-oracle", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	paths := fallbackPaths
	if jsonPath != "" {
		paths = append([]string{jsonPath}, fallbackPaths...)
	}

	for _, p := range paths {
		result := gjson.GetBytes(body, p)
		if result.Exists() && result.Type == gjson.Number {
			return result.Float(), nil
		}
	}
	return 0, acperrors.External("http-oracle", fmt.Errorf("no numeric value found at %q or fallback paths", jsonPath))
}
