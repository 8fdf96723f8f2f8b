package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/stream"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const item = `{
	"id": "science/2025/jan/02/futuristic-egg",
	"webPublicationDate": "2025-01-02T09:30:00Z",
	"webTitle": "The futuristic egg",
	"webUrl": "https://www.theguardian.com/science/2025/jan/02/futuristic-egg",
	"fields": {"wordcount": "812"},
	"blocks": {"body": [{"bodyTextSummary": "An egg from the future."}]}
}`

type fakeCredentials struct {
	key   string
	err   error
	calls int
}

func (f *fakeCredentials) APIKey(context.Context) (string, error) {
	f.calls++
	return f.key, f.err
}

type fakeFetcher struct {
	result *stream.FetchResult
	err    error
	calls  int
	args   []string
	panics bool
}

func (f *fakeFetcher) Fetch(_ context.Context, apiKey, searchTerm, fromDate, toDate string) (*stream.FetchResult, error) {
	f.calls++
	f.args = []string{apiKey, searchTerm, fromDate, toDate}
	if f.panics {
		panic("fetcher exploded")
	}
	return f.result, f.err
}

type fakePublisher struct {
	err   error
	calls int
	queue string
	msgs  []stream.PreparedMessage
}

func (f *fakePublisher) Publish(_ context.Context, queue string, msgs []stream.PreparedMessage) error {
	f.calls++
	f.queue = queue
	f.msgs = msgs
	return f.err
}

type harness struct {
	creds *fakeCredentials
	fetch *fakeFetcher
	pub   *fakePublisher
	logs  *bytes.Buffer
	reg   *prometheus.Registry
	orch  *Orchestrator
}

func newHarness(t *testing.T, result *stream.FetchResult, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		creds: &fakeCredentials{key: "test-key"},
		fetch: &fakeFetcher{result: result},
		pub:   &fakePublisher{},
		logs:  &bytes.Buffer{},
		reg:   prometheus.NewRegistry(),
	}
	base := []Option{
		WithLogger(logger.New(h.logs, "debug", "json")),
		WithMetrics(metrics.New(h.reg)),
		WithClock(func() time.Time { return time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC) }),
		WithInvocationIDs(func() string { return "inv-1" }),
	}
	h.orch = New(h.creds, h.fetch, h.pub, append(base, opts...)...)
	return h
}

func ok(items ...string) *stream.FetchResult {
	results := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		results = append(results, json.RawMessage(it))
	}
	return &stream.FetchResult{
		StatusCode: 200,
		Body:       stream.SearchResponse{Response: &stream.SearchPayload{Status: "ok", Total: len(items), Results: results}},
	}
}

func failed(status int, message string) *stream.FetchResult {
	return &stream.FetchResult{
		StatusCode: status,
		Body:       stream.SearchResponse{Response: &stream.SearchPayload{Status: "error", Message: message}},
	}
}

func validEvent() map[string]any {
	return map[string]any{
		"SearchTerm": "futuristic egg",
		"FromDate":   "2025-01-01",
		"queue":      "guardian_content",
	}
}

func TestInvokeEndToEnd(t *testing.T) {
	h := newHarness(t, ok(item))

	env := h.orch.Invoke(context.Background(), validEvent())

	want := stream.Envelope{StatusCode: 200, Body: "1 messages uploaded to SQS"}
	if env != want {
		t.Fatalf("envelope = %+v, want %+v", env, want)
	}
	if got := strings.Join(h.fetch.args, "|"); got != "test-key|futuristic egg|2025-01-01|2025-03-04" {
		t.Errorf("fetch args = %s", got)
	}
	if h.pub.calls != 1 || h.pub.queue != "guardian_content" {
		t.Errorf("publish calls=%d queue=%q", h.pub.calls, h.pub.queue)
	}
	if len(h.pub.msgs) != 1 || h.pub.msgs[0].SearchTerm != "futuristic egg" {
		t.Errorf("published = %+v", h.pub.msgs)
	}
	if v := testutil.ToFloat64(h.orch.metrics.MessagesPublishedTotal.WithLabelValues("guardian_content")); v != 1 {
		t.Errorf("messages_published_total = %v", v)
	}
	if v := testutil.ToFloat64(h.orch.metrics.InvocationsTotal.WithLabelValues("200")); v != 1 {
		t.Errorf("invocations_total{200} = %v", v)
	}
}

func TestInvokeCountIsNotPluralised(t *testing.T) {
	second := strings.Replace(item, "futuristic-egg\"", "futuristic-egg-2\"", 1)
	h := newHarness(t, ok(item, second))

	env := h.orch.Invoke(context.Background(), validEvent())
	if env.Body != "2 messages uploaded to SQS" {
		t.Errorf("body = %q", env.Body)
	}
}

func TestInvokeInvalidEventMakesNoCalls(t *testing.T) {
	events := map[string]map[string]any{
		"missing search term": {"FromDate": "2025-01-01", "queue": "q"},
		"missing from date":   {"SearchTerm": "x", "queue": "q"},
		"missing queue":       {"SearchTerm": "x", "FromDate": "2025-01-01"},
		"bad date":            {"SearchTerm": "x", "FromDate": "01/01/2025", "queue": "q"},
		"nil event":           nil,
	}
	for name, event := range events {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, ok(item))
			env := h.orch.Invoke(context.Background(), event)
			if env.StatusCode != 400 {
				t.Errorf("status = %d, want 400", env.StatusCode)
			}
			if h.creds.calls+h.fetch.calls+h.pub.calls != 0 {
				t.Errorf("expected no collaborator calls, got creds=%d fetch=%d publish=%d",
					h.creds.calls, h.fetch.calls, h.pub.calls)
			}
			if !strings.Contains(h.logs.String(), `"msg":"invalid event"`) {
				t.Errorf("expected invalid event log, got %s", h.logs.String())
			}
		})
	}
}

func TestInvokeInvalidEventLogsRawEvent(t *testing.T) {
	h := newHarness(t, ok(item))
	h.orch.Invoke(context.Background(), map[string]any{"SearchTerm": 42, "queue": "q"})
	if !strings.Contains(h.logs.String(), `"SearchTerm":42`) {
		t.Errorf("expected raw event in log, got %s", h.logs.String())
	}
}

func TestInvokeZeroResults(t *testing.T) {
	h := newHarness(t, ok())

	env := h.orch.Invoke(context.Background(), validEvent())

	want := stream.Envelope{StatusCode: 200, Body: "Search yielded 0 articles"}
	if env != want {
		t.Errorf("envelope = %+v, want %+v", env, want)
	}
	if h.pub.calls != 0 {
		t.Errorf("publisher called %d times", h.pub.calls)
	}
}

func TestInvokeUpstreamRejection(t *testing.T) {
	h := newHarness(t, failed(400, "Invalid date format: 2025-13-01"))

	env := h.orch.Invoke(context.Background(), validEvent())

	want := stream.Envelope{StatusCode: 400, Body: "Invalid date format: 2025-13-01"}
	if env != want {
		t.Errorf("envelope = %+v, want %+v", env, want)
	}
	if h.pub.calls != 0 {
		t.Errorf("publisher called %d times", h.pub.calls)
	}
	if !strings.Contains(h.logs.String(), `"level":"WARN"`) {
		t.Errorf("expected warn log, got %s", h.logs.String())
	}
}

func TestInvokeUpstreamFailures(t *testing.T) {
	tests := []struct {
		name   string
		result *stream.FetchResult
		body   string
	}{
		{"500", failed(500, "backend unavailable"), "Guardian API failure: backend unavailable"},
		{"503", failed(503, "maintenance"), "Guardian API failure: maintenance"},
		{"401 top-level message", &stream.FetchResult{
			StatusCode: 401,
			Body:       stream.SearchResponse{Message: "Unauthorized"},
		}, "Guardian API failure: Unauthorized"},
		{"302", failed(302, ""), "Guardian API failure: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.result)
			env := h.orch.Invoke(context.Background(), validEvent())
			want := stream.Envelope{StatusCode: 424, Body: tt.body}
			if env != want {
				t.Errorf("envelope = %+v, want %+v", env, want)
			}
			if h.pub.calls != 0 {
				t.Errorf("publisher called %d times", h.pub.calls)
			}
			if !strings.Contains(h.logs.String(), `"level":"ERROR"`) {
				t.Errorf("expected error log, got %s", h.logs.String())
			}
		})
	}
}

func TestInvokeCredentialFailure(t *testing.T) {
	h := newHarness(t, ok(item))
	h.creds.err = errors.New("access denied")

	env := h.orch.Invoke(context.Background(), validEvent())

	want := stream.Envelope{StatusCode: 500, Body: "Critical error experienced while processing request."}
	if env != want {
		t.Errorf("envelope = %+v, want %+v", env, want)
	}
	if h.fetch.calls != 0 {
		t.Errorf("fetcher called %d times", h.fetch.calls)
	}
	logs := h.logs.String()
	if !strings.Contains(logs, `"level":"CRITICAL"`) || !strings.Contains(logs, "access denied") {
		t.Errorf("expected critical log with cause, got %s", logs)
	}
}

func TestInvokeTransportFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.fetch.err = errors.New("dial tcp: connection refused")

	env := h.orch.Invoke(context.Background(), validEvent())

	if env.StatusCode != 500 || env.Body != stream.BodyCriticalFailure {
		t.Errorf("envelope = %+v", env)
	}
	if strings.Contains(env.Body, "connection refused") {
		t.Error("cause leaked into envelope")
	}
	if h.pub.calls != 0 {
		t.Errorf("publisher called %d times", h.pub.calls)
	}
}

func TestInvokeMalformedPayload(t *testing.T) {
	h := newHarness(t, ok(`{"id": "no-title"}`))

	env := h.orch.Invoke(context.Background(), validEvent())

	if env.StatusCode != 500 || env.Body != stream.BodyCriticalFailure {
		t.Errorf("envelope = %+v", env)
	}
	if h.pub.calls != 0 {
		t.Errorf("publisher called %d times", h.pub.calls)
	}
}

func TestInvokeOKWithoutResultListIsCritical(t *testing.T) {
	bodies := map[string]stream.SearchResponse{
		"no response":  {},
		"no results":   {Response: &stream.SearchPayload{Status: "ok"}},
		"only message": {Message: "x"},
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, &stream.FetchResult{StatusCode: 200, Body: body})
			env := h.orch.Invoke(context.Background(), validEvent())
			if env.StatusCode != 500 || env.Body != stream.BodyCriticalFailure {
				t.Errorf("envelope = %+v", env)
			}
			if h.pub.calls != 0 {
				t.Errorf("publisher called %d times", h.pub.calls)
			}
			if !strings.Contains(h.logs.String(), `"level":"CRITICAL"`) {
				t.Errorf("expected critical log, got %s", h.logs.String())
			}
		})
	}
}

func TestInvokeMalformedItemFailsWholeBatch(t *testing.T) {
	h := newHarness(t, ok(item, `{"id": "broken"}`))

	env := h.orch.Invoke(context.Background(), validEvent())
	if env.StatusCode != 500 {
		t.Errorf("status = %d, want 500", env.StatusCode)
	}
	if h.pub.calls != 0 {
		t.Errorf("publisher called %d times", h.pub.calls)
	}
}

func TestInvokePublishFailureLogsQueue(t *testing.T) {
	h := newHarness(t, ok(item))
	h.pub.err = errors.New("broker unreachable")

	env := h.orch.Invoke(context.Background(), validEvent())

	if env.StatusCode != 500 || env.Body != stream.BodyCriticalFailure {
		t.Errorf("envelope = %+v", env)
	}
	logs := h.logs.String()
	if !strings.Contains(logs, `"target_queue":"guardian_content"`) {
		t.Errorf("expected queue in log, got %s", logs)
	}
	if !strings.Contains(logs, "broker unreachable") {
		t.Errorf("expected cause in log, got %s", logs)
	}
}

func TestInvokeRecoversFromPanic(t *testing.T) {
	h := newHarness(t, ok(item))
	h.fetch.panics = true

	env := h.orch.Invoke(context.Background(), validEvent())

	if env.StatusCode != 500 || env.Body != stream.BodyCriticalFailure {
		t.Errorf("envelope = %+v", env)
	}
	if !strings.Contains(h.logs.String(), "fetcher exploded") {
		t.Errorf("expected panic value in log, got %s", h.logs.String())
	}
	if v := testutil.ToFloat64(h.orch.metrics.InvocationsTotal.WithLabelValues("500")); v != 1 {
		t.Errorf("invocations_total{500} = %v", v)
	}
}

func TestInvokeNilFetchResult(t *testing.T) {
	h := newHarness(t, nil)

	env := h.orch.Invoke(context.Background(), validEvent())
	if env.StatusCode != 500 {
		t.Errorf("status = %d, want 500", env.StatusCode)
	}
}

func TestInvokeCustomPreparer(t *testing.T) {
	h := newHarness(t, ok(item), WithPreparer(func(*stream.SearchResponse, string) ([]stream.PreparedMessage, error) {
		return nil, errors.New("schema drift")
	}))

	env := h.orch.Invoke(context.Background(), validEvent())
	if env.StatusCode != 500 {
		t.Errorf("status = %d, want 500", env.StatusCode)
	}
	if !strings.Contains(h.logs.String(), "schema drift") {
		t.Errorf("expected preparer error in log, got %s", h.logs.String())
	}
}

func TestInvokeTagsLogsWithInvocationID(t *testing.T) {
	h := newHarness(t, ok())
	h.orch.Invoke(context.Background(), validEvent())

	for _, line := range strings.Split(strings.TrimSpace(h.logs.String()), "\n") {
		if !strings.Contains(line, `"invocation_id":"inv-1"`) {
			t.Errorf("log line missing invocation id: %s", line)
		}
	}
}

func TestInvokeSpanLogging(t *testing.T) {
	h := newHarness(t, ok(item), WithSpanLogging(true))
	h.orch.Invoke(context.Background(), validEvent())

	logs := h.logs.String()
	for _, stage := range []string{StageValidate, StageAPIKey, StageFetch, StagePrepare, StagePublish} {
		if !strings.Contains(logs, `"span":"`+stage+`"`) {
			t.Errorf("missing span for %s", stage)
		}
	}
}

func TestInvokeWithoutMetrics(t *testing.T) {
	creds := &fakeCredentials{key: "k"}
	o := New(creds, &fakeFetcher{result: ok(item)}, &fakePublisher{},
		WithLogger(logger.New(&bytes.Buffer{}, "info", "text")))

	env := o.Invoke(context.Background(), validEvent())
	if env.StatusCode != 200 {
		t.Errorf("envelope = %+v", env)
	}
}

func TestClassifyOrder(t *testing.T) {
	tests := []struct {
		result *stream.FetchResult
		want   Verdict
	}{
		{ok(item), VerdictProceed},
		{ok(), VerdictNoResults},
		{failed(400, "bad"), VerdictRejected},
		{failed(500, "down"), VerdictUpstreamFailure},
		{failed(404, "gone"), VerdictUnexpectedStatus},
		{&stream.FetchResult{StatusCode: 500, Body: ok(item).Body}, VerdictUpstreamFailure},
		{&stream.FetchResult{StatusCode: 200}, VerdictProceed},
		{&stream.FetchResult{StatusCode: 200, Body: stream.SearchResponse{Response: &stream.SearchPayload{Status: "ok"}}}, VerdictProceed},
	}
	for _, tt := range tests {
		if got := Classify(tt.result); got != tt.want {
			t.Errorf("Classify(%d) = %s, want %s", tt.result.StatusCode, got, tt.want)
		}
	}
}

func TestEnvelopeForBareErrors(t *testing.T) {
	env := EnvelopeFor(errors.New("surprise"))
	if env.StatusCode != 500 || env.Body != stream.BodyCriticalFailure {
		t.Errorf("envelope = %+v", env)
	}
}
