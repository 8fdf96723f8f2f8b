// Package orchestrator runs one invocation: validate, acquire the API key,
// fetch, classify, prepare and publish. Every stage is terminal on failure
// and every failure becomes an envelope; nothing escapes Invoke.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/stream"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/stream/preparer"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/stream/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/tracing"
	"github.com/google/uuid"
)

// Stage names used in logs, spans and metrics.
const (
	StageValidate = "validate"
	StageAPIKey   = "get_api_key"
	StageFetch    = "request_content"
	StagePrepare  = "prepare_messages"
	StagePublish  = "publish"
)

// CredentialProvider supplies the upstream API key.
type CredentialProvider interface {
	APIKey(ctx context.Context) (string, error)
}

// ContentFetcher performs the upstream search.
type ContentFetcher interface {
	Fetch(ctx context.Context, apiKey, searchTerm, fromDate, toDate string) (*stream.FetchResult, error)
}

// QueuePublisher delivers a non-empty batch to queue.
type QueuePublisher interface {
	Publish(ctx context.Context, queue string, msgs []stream.PreparedMessage) error
}

// PrepareFunc maps a search payload to queue messages.
type PrepareFunc func(body *stream.SearchResponse, searchTerm string) ([]stream.PreparedMessage, error)

type Orchestrator struct {
	credentials CredentialProvider
	fetcher     ContentFetcher
	publisher   QueuePublisher
	prepare     PrepareFunc
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
	logSpans    bool
}

type Option func(*Orchestrator)

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock overrides the clock used to default ToDate.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithPreparer(fn PrepareFunc) Option {
	return func(o *Orchestrator) { o.prepare = fn }
}

// WithSpanLogging writes each invocation's span tree at debug level.
func WithSpanLogging(enabled bool) Option {
	return func(o *Orchestrator) { o.logSpans = enabled }
}

func WithInvocationIDs(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

func New(credentials CredentialProvider, fetcher ContentFetcher, publisher QueuePublisher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		credentials: credentials,
		fetcher:     fetcher,
		publisher:   publisher,
		prepare:     preparer.Prepare,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", "orchestrator")
	return o
}

// Invoke runs one invocation and returns its envelope.
func (o *Orchestrator) Invoke(ctx context.Context, event map[string]any) (env stream.Envelope) {
	id := o.newID()
	ctx = logger.WithInvocationID(ctx, o.logger, id)
	log := logger.FromContext(ctx)
	ctx, span := tracing.StartSpan(ctx, "invoke", id)

	defer func() {
		if r := recover(); r != nil {
			logger.Critical(ctx, log, "unhandled failure during invocation",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			env = EnvelopeFor(apperrors.Internal("invoke", fmt.Errorf("panic: %v", r)))
		}
		span.SetAttr("status_code", env.StatusCode)
		span.End()
		if o.logSpans {
			span.Log(ctx, log)
		}
		o.metrics.RecordInvocation(env.StatusCode)
		log.Info("invocation finished", "status_code", env.StatusCode)
	}()

	log.Info("guardian data streaming invoked")
	body, err := o.run(ctx, log, event)
	if err != nil {
		return EnvelopeFor(err)
	}
	return stream.Envelope{StatusCode: 200, Body: body}
}

func (o *Orchestrator) run(ctx context.Context, log *slog.Logger, event map[string]any) (string, error) {
	req, err := timed(ctx, o, StageValidate, func(context.Context) (*stream.InvocationRequest, error) {
		return validator.Validate(event, o.now())
	})
	if err != nil {
		log.Error("invalid event", "event", event, "error", err)
		return "", apperrors.ClientInput(err.Error())
	}
	log = log.With("search_term", req.SearchTerm, "queue", req.Queue)
	log.Info("event validated", "from_date", req.FromDate, "to_date", req.ToDate)

	apiKey, err := timed(ctx, o, StageAPIKey, o.credentials.APIKey)
	if err != nil {
		logger.Critical(ctx, log, "critical error during get_api_key execution", "error", err)
		return "", apperrors.Internal(StageAPIKey, err)
	}

	res, err := timed(ctx, o, StageFetch, func(ctx context.Context) (*stream.FetchResult, error) {
		return o.fetcher.Fetch(ctx, apiKey, req.SearchTerm, req.FromDate, req.ToDate)
	})
	if err != nil {
		logger.Critical(ctx, log, "critical error during request_content execution", "error", err)
		return "", apperrors.Internal(StageFetch, err)
	}
	if res == nil {
		err := errors.New("fetcher returned no result")
		logger.Critical(ctx, log, "critical error during request_content execution", "error", err)
		return "", apperrors.Internal(StageFetch, err)
	}
	o.metrics.RecordUpstream(res.StatusCode)

	switch Classify(res) {
	case VerdictRejected:
		msg := res.Body.ErrorMessage()
		log.Warn("guardian API rejected the query", "status_code", res.StatusCode, "message", msg)
		return "", apperrors.ClientInput(msg)
	case VerdictUpstreamFailure:
		msg := res.Body.ErrorMessage()
		log.Error("guardian API failure", "status_code", res.StatusCode, "message", msg)
		return "", apperrors.UpstreamDegraded(stream.UpstreamFailurePrefix + msg)
	case VerdictUnexpectedStatus:
		msg := res.Body.ErrorMessage()
		log.Error("unexpected API response", "status_code", res.StatusCode, "message", msg)
		return "", apperrors.UpstreamDegraded(stream.UpstreamFailurePrefix + msg)
	case VerdictNoResults:
		log.Info("search yielded no articles")
		return stream.BodyZeroResults, nil
	}

	msgs, err := timed(ctx, o, StagePrepare, func(context.Context) ([]stream.PreparedMessage, error) {
		return o.prepare(&res.Body, req.SearchTerm)
	})
	if err != nil {
		logger.Critical(ctx, log, "critical error during prepare_messages execution", "error", err)
		return "", apperrors.Internal(StagePrepare, err)
	}

	_, err = timed(ctx, o, StagePublish, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.publisher.Publish(ctx, req.Queue, msgs)
	})
	if err != nil {
		logger.Critical(ctx, log, "critical error during publish execution",
			"target_queue", req.Queue,
			"count", len(msgs),
			"error", err,
		)
		return "", apperrors.Internal(StagePublish, err)
	}
	o.metrics.RecordPublished(req.Queue, len(msgs))
	log.Info("messages published", "count", len(msgs))

	return fmt.Sprintf("%d messages uploaded to SQS", len(msgs)), nil
}

// timed runs fn as a child span of the invocation and records its duration.
func timed[T any](ctx context.Context, o *Orchestrator, stage string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracing.StartChildSpan(ctx, stage)
	v, err := fn(ctx)
	if err != nil {
		span.SetAttr("error", err.Error())
	}
	o.metrics.ObserveStage(stage, span.End())
	return v, err
}

// EnvelopeFor converts a stage failure into the envelope shown to the
// invoker. Internal failures never leak their cause.
func EnvelopeFor(err error) stream.Envelope {
	var appErr *apperrors.AppError
	switch apperrors.Kind(err) {
	case apperrors.ErrClientInput, apperrors.ErrUpstreamDegraded:
		msg := err.Error()
		if errors.As(err, &appErr) {
			msg = appErr.Message
		}
		return stream.Envelope{StatusCode: apperrors.StatusCode(err), Body: msg}
	default:
		return stream.Envelope{StatusCode: apperrors.StatusCode(err), Body: stream.BodyCriticalFailure}
	}
}
