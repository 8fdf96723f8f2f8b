// Package stream defines the values that flow through one invocation: the
// validated request, the upstream search payload, the messages prepared for
// the queue, and the envelope returned to the invoker.
package stream

import (
	"encoding/json"
	"time"
)

// DateLayout is the calendar-date format of FromDate and ToDate.
const DateLayout = time.DateOnly

// Envelope bodies with fixed text.
const (
	BodyZeroResults       = "Search yielded 0 articles"
	BodyCriticalFailure   = "Critical error experienced while processing request."
	UpstreamFailurePrefix = "Guardian API failure: "
)

// InvocationRequest is a validated invocation event.
type InvocationRequest struct {
	SearchTerm string
	FromDate   string
	ToDate     string
	Queue      string
}

// SearchResponse is the decoded body of a Guardian search call. Error
// responses carry response.message; key failures use a top-level message.
// Response is nil when the body has no response object.
type SearchResponse struct {
	Response *SearchPayload `json:"response"`
	Message  string        `json:"message,omitempty"`
}

// SearchPayload holds the result items undecoded so that the preparer can
// reject malformed items instead of zero-filling them. Results is nil when
// the field is absent or null and non-nil for an empty JSON array.
type SearchPayload struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Total   int               `json:"total"`
	Results []json.RawMessage `json:"results"`
}

// ErrorMessage returns the upstream's explanation for a non-200 response.
func (r *SearchResponse) ErrorMessage() string {
	if r.Response != nil && r.Response.Message != "" {
		return r.Response.Message
	}
	return r.Message
}

// ResultCount returns the number of result items, zero when absent.
func (r *SearchResponse) ResultCount() int {
	if r.Response == nil {
		return 0
	}
	return len(r.Response.Results)
}

// HasResultList reports whether the body carries a results array, even an
// empty one.
func (r *SearchResponse) HasResultList() bool {
	return r.Response != nil && r.Response.Results != nil
}

// FetchResult is the transport-level outcome of the search call.
type FetchResult struct {
	StatusCode int
	Body       SearchResponse
}

// PreparedMessage is the queue payload for one search result.
type PreparedMessage struct {
	ID                 string `json:"id"`
	WebTitle           string `json:"web_title"`
	WebURL             string `json:"web_url"`
	WebPublicationDate string `json:"web_publication_date"`
	SectionName        string `json:"section_name,omitempty"`
	WordCount          int    `json:"word_count"`
	ContentPreview     string `json:"content_preview"`
	SearchTerm         string `json:"search_term"`
}

// Envelope is the sole output of an invocation.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}
