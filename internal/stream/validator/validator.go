// Package validator turns a raw invocation event into a typed
// InvocationRequest, reporting every offending field at once.
package validator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/stream"
)

// Event keys.
const (
	FieldSearchTerm = "SearchTerm"
	FieldFromDate   = "FromDate"
	FieldToDate     = "ToDate"
	FieldQueue      = "queue"
)

const (
	msgRequired = "field required"
	msgString   = "must be a string"
	msgEmpty    = "must not be empty"
	msgDate     = "must be a date in YYYY-MM-DD format"
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, field := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return "invalid event: " + strings.Join(parts, "; ")
}

// Validate checks event and returns the request it describes. An absent or
// null ToDate defaults to the UTC calendar date of now. Unknown keys are
// ignored.
func Validate(event map[string]any, now time.Time) (*stream.InvocationRequest, error) {
	errs := make(map[string]string)

	searchTerm, ok := requiredString(event, FieldSearchTerm, errs)
	if ok {
		searchTerm = strings.TrimSpace(searchTerm)
		if searchTerm == "" {
			errs[FieldSearchTerm] = msgEmpty
		}
	}

	queue, ok := requiredString(event, FieldQueue, errs)
	if ok {
		queue = strings.TrimSpace(queue)
		if queue == "" {
			errs[FieldQueue] = msgEmpty
		}
	}

	var from, to time.Time
	fromOK := false
	if raw, ok := requiredString(event, FieldFromDate, errs); ok {
		from, fromOK = parseDate(raw, FieldFromDate, errs)
	}

	toOK := true
	if v, present := event[FieldToDate]; present && v != nil {
		raw, isString := v.(string)
		if !isString {
			errs[FieldToDate] = msgString
			toOK = false
		} else {
			to, toOK = parseDate(raw, FieldToDate, errs)
		}
	} else {
		y, m, d := now.UTC().Date()
		to = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	if fromOK && toOK && to.Before(from) {
		errs[FieldToDate] = "must not be before FromDate"
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return &stream.InvocationRequest{
		SearchTerm: searchTerm,
		FromDate:   from.Format(stream.DateLayout),
		ToDate:     to.Format(stream.DateLayout),
		Queue:      queue,
	}, nil
}

func requiredString(event map[string]any, field string, errs map[string]string) (string, bool) {
	v, present := event[field]
	if !present || v == nil {
		errs[field] = msgRequired
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		errs[field] = msgString
		return "", false
	}
	return s, true
}

func parseDate(raw, field string, errs map[string]string) (time.Time, bool) {
	t, err := time.Parse(stream.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		errs[field] = msgDate
		return time.Time{}, false
	}
	return t, true
}
