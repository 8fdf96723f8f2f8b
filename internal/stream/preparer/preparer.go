// Package preparer maps Guardian search results onto queue messages. Every
// result must match the expected shape; one bad item fails the batch.
package preparer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/stream"
	"github.com/PuerkitoBio/goquery"
)

// PreviewRunes caps the length of PreparedMessage.ContentPreview.
const PreviewRunes = 1000

// ShapeError reports a result item that does not match the expected schema.
type ShapeError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Index < 0 {
		if e.Field == "" {
			return "response: " + e.Reason
		}
		return fmt.Sprintf("response: %s: %s", e.Field, e.Reason)
	}
	if e.Field == "" {
		return fmt.Sprintf("result %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("result %d: %s: %s", e.Index, e.Field, e.Reason)
}

type resultItem struct {
	ID                 *string     `json:"id"`
	WebTitle           *string     `json:"webTitle"`
	WebURL             *string     `json:"webUrl"`
	WebPublicationDate *string     `json:"webPublicationDate"`
	SectionName        string      `json:"sectionName"`
	Fields             *itemFields `json:"fields"`
	Blocks             *itemBlocks `json:"blocks"`
}

type itemFields struct {
	WordCount json.RawMessage `json:"wordcount"`
}

type itemBlocks struct {
	Body []bodyBlock `json:"body"`
}

type bodyBlock struct {
	BodyHTML        string `json:"bodyHtml"`
	BodyTextSummary string `json:"bodyTextSummary"`
}

// Prepare returns one message per result, in result order.
func Prepare(body *stream.SearchResponse, searchTerm string) ([]stream.PreparedMessage, error) {
	if body == nil {
		return nil, &ShapeError{Index: -1, Reason: "missing response body"}
	}
	if body.Response == nil {
		return nil, &ShapeError{Index: -1, Field: "response", Reason: "field required"}
	}
	if body.Response.Results == nil {
		return nil, &ShapeError{Index: -1, Field: "response.results", Reason: "field required"}
	}
	messages := make([]stream.PreparedMessage, 0, len(body.Response.Results))
	for i, raw := range body.Response.Results {
		msg, err := prepareOne(i, raw)
		if err != nil {
			return nil, err
		}
		msg.SearchTerm = searchTerm
		messages = append(messages, msg)
	}
	return messages, nil
}

func prepareOne(i int, raw json.RawMessage) (stream.PreparedMessage, error) {
	var item resultItem
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&item); err != nil {
		return stream.PreparedMessage{}, &ShapeError{Index: i, Reason: "not a result object: " + err.Error()}
	}

	id, err := requireText(i, "id", item.ID)
	if err != nil {
		return stream.PreparedMessage{}, err
	}
	title, err := requireText(i, "webTitle", item.WebTitle)
	if err != nil {
		return stream.PreparedMessage{}, err
	}
	webURL, err := requireText(i, "webUrl", item.WebURL)
	if err != nil {
		return stream.PreparedMessage{}, err
	}
	published, err := requireText(i, "webPublicationDate", item.WebPublicationDate)
	if err != nil {
		return stream.PreparedMessage{}, err
	}
	if _, err := time.Parse(time.RFC3339, published); err != nil {
		return stream.PreparedMessage{}, &ShapeError{Index: i, Field: "webPublicationDate", Reason: "not an RFC 3339 timestamp"}
	}
	if item.Fields == nil {
		return stream.PreparedMessage{}, &ShapeError{Index: i, Field: "fields", Reason: "missing"}
	}
	words, err := parseWordCount(item.Fields.WordCount)
	if err != nil {
		return stream.PreparedMessage{}, &ShapeError{Index: i, Field: "fields.wordcount", Reason: err.Error()}
	}

	preview, err := contentPreview(item.Blocks)
	if err != nil {
		return stream.PreparedMessage{}, &ShapeError{Index: i, Field: "blocks.body", Reason: err.Error()}
	}

	return stream.PreparedMessage{
		ID:                 id,
		WebTitle:           title,
		WebURL:             webURL,
		WebPublicationDate: published,
		SectionName:        item.SectionName,
		WordCount:          words,
		ContentPreview:     preview,
	}, nil
}

func requireText(i int, field string, v *string) (string, error) {
	if v == nil {
		return "", &ShapeError{Index: i, Field: field, Reason: "missing"}
	}
	if strings.TrimSpace(*v) == "" {
		return "", &ShapeError{Index: i, Field: field, Reason: "empty"}
	}
	return *v, nil
}

// parseWordCount accepts the API's quoted integer as well as a bare number.
func parseWordCount(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("missing")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("not a non-negative integer: %q", s)
		}
		return n, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil || n < 0 {
		return 0, fmt.Errorf("not a non-negative integer: %s", raw)
	}
	return n, nil
}

// contentPreview prefers the API's plain-text summary of the first body
// block and falls back to the text content of its HTML.
func contentPreview(blocks *itemBlocks) (string, error) {
	if blocks == nil || len(blocks.Body) == 0 {
		return "", nil
	}
	first := blocks.Body[0]
	text := first.BodyTextSummary
	if strings.TrimSpace(text) == "" && first.BodyHTML != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(first.BodyHTML))
		if err != nil {
			return "", fmt.Errorf("parsing bodyHtml: %w", err)
		}
		text = doc.Text()
	}
	return truncateRunes(strings.Join(strings.Fields(text), " "), PreviewRunes), nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
