// Package fetcher issues the single Guardian search request of an
// invocation. Upstream error statuses come back as data; only transport
// failures are returned as errors.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/stream"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/httpclient"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/logger"
)

const (
	// DefaultBaseURL is the Guardian content search endpoint.
	DefaultBaseURL = "https://content.guardianapis.com/search"

	maxBodyBytes      = 16 << 20
	maxRawMessageSize = 512
)

// Fetcher performs the outbound search call.
type Fetcher struct {
	baseURL string
	client  *httpclient.Client
	logger  *slog.Logger
}

// New creates a Fetcher. An empty baseURL selects DefaultBaseURL and a nil
// client selects one without a timeout.
func New(baseURL string, client *httpclient.Client) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = httpclient.New(httpclient.Config{})
	}
	return &Fetcher{
		baseURL: baseURL,
		client:  client,
		logger:  logger.WithComponent("fetcher"),
	}
}

// BuildURL renders the search URL with its parameters in wire order.
func BuildURL(baseURL, apiKey, searchTerm, fromDate, toDate string) string {
	params := [][2]string{
		{"q", searchTerm},
		{"from-date", fromDate},
		{"to-date", toDate},
		{"show-fields", "wordcount"},
		{"show-blocks", "body"},
		{"api-key", apiKey},
	}
	var b strings.Builder
	b.WriteString(baseURL)
	for i, p := range params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	return b.String()
}

// Fetch sends one GET and captures its status and decoded body. It never
// retries.
func (f *Fetcher) Fetch(ctx context.Context, apiKey, searchTerm, fromDate, toDate string) (*stream.FetchResult, error) {
	start := time.Now()
	resp, err := f.client.Get(ctx, BuildURL(f.baseURL, apiKey, searchTerm, fromDate, toDate))
	if err != nil {
		return nil, fmt.Errorf("requesting guardian search: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading guardian response: %w", err)
	}

	result := &stream.FetchResult{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(raw, &result.Body); err != nil {
		if resp.StatusCode == http.StatusOK {
			return nil, fmt.Errorf("decoding guardian response: %w", err)
		}
		// A type mismatch still leaves the decodable fields, message included.
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			result.Body = stream.SearchResponse{Message: rawMessage(raw, resp.StatusCode)}
		} else if result.Body.ErrorMessage() == "" {
			result.Body.Message = rawMessage(raw, resp.StatusCode)
		}
	}

	f.logger.Debug("guardian search completed",
		"status_code", resp.StatusCode,
		"results", result.Body.ResultCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// rawMessage turns a non-JSON error body into a short explanation.
func rawMessage(raw []byte, status int) string {
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return http.StatusText(status)
	}
	return truncateRunes(msg, maxRawMessageSize)
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
