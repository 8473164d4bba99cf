// Package engine dispatches request entities to the Brein API.
//
// Invoke validates the request, builds and signs its document on the calling
// goroutine and hands the network I/O to a bounded worker pool. Errors found
// before that hand-off are returned synchronously and never reach the
// callback; everything after it is reported through the callback, exactly
// once.
//
//	eng, err := engine.New(config.New(apiKey, secret))
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	activity := request.NewActivity(request.NewUserWithEmail("john@example.com")).SetType("login")
//	_, err = eng.Activity(ctx, activity, func(res *result.Result, err error) {
//	    ...
//	})
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"brein.evalgo.org/brerr"
	"brein.evalgo.org/common"
	"brein.evalgo.org/config"
	"brein.evalgo.org/document"
	bhttp "brein.evalgo.org/http"
	"brein.evalgo.org/provider"
	"brein.evalgo.org/request"
	"brein.evalgo.org/result"
	"brein.evalgo.org/signature"
	"brein.evalgo.org/worker"
)

// Engine dispatches requests. It is safe for concurrent use. The
// configuration passed to New must not be mutated afterwards.
type Engine struct {
	cfg      *config.Config
	client   *bhttp.Client
	pool     *worker.Pool
	limiter  *rate.Limiter
	location provider.LocationProvider
	network  provider.NetworkProvider
	logger   *common.ContextLogger
	rawLog   *logrus.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closed    atomic.Bool
	closeOnce sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. By default one is created from cfg.Logging.
func WithLogger(logger *logrus.Logger) Option {
	return func(e *Engine) {
		e.rawLog = logger
	}
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(client *bhttp.Client) Option {
	return func(e *Engine) {
		e.client = client
	}
}

// WithLocationProvider merges the device location into every request.
func WithLocationProvider(p provider.LocationProvider) Option {
	return func(e *Engine) {
		e.location = p
	}
}

// WithNetworkProvider merges the device network into every request.
func WithNetworkProvider(p provider.NetworkProvider) Option {
	return func(e *Engine) {
		e.network = p
	}
}

// WithRateLimiter overrides the limiter built from cfg.Dispatch.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(e *Engine) {
		e.limiter = limiter
	}
}

// New creates an engine and starts its workers.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, brerr.Validation("engine.New", "configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}

	if e.rawLog == nil {
		logCfg := common.DefaultLoggerConfig()
		logCfg.Level = common.LogLevel(cfg.Logging.Level)
		logCfg.Format = cfg.Logging.Format
		e.rawLog = common.NewLogger(logCfg)
	}
	e.logger = common.SDKLogger(e.rawLog, "engine")

	if e.client == nil {
		e.client = bhttp.NewClient(cfg.ConnectionTimeout, cfg.SocketTimeout)
	}
	if e.limiter == nil && cfg.Dispatch.RateLimit > 0 {
		burst := cfg.Dispatch.Burst
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.Dispatch.RateLimit), burst)
	}

	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.pool = worker.NewPool(worker.Config{
		Workers:   cfg.Dispatch.Workers,
		QueueSize: cfg.Dispatch.QueueSize,
	}, common.SDKLogger(e.rawLog, "worker"))
	e.pool.Start(e.ctx)

	e.logger.WithFields(map[string]interface{}{
		"base_url": cfg.BaseURL,
		"api_key":  common.MaskSecret(cfg.APIKey),
		"signed":   cfg.SignRequests(),
	}).Debug("Engine started")

	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Invoke dispatches entity. cb may be nil; the outcome is then only
// available through the returned Call.
//
// Validation, configuration, request body, signature and queue-full errors
// are returned here and cb is not invoked. Once a Call is returned, cb is
// invoked exactly once. Cancelling ctx cancels the request.
func (e *Engine) Invoke(ctx context.Context, entity request.Entity, cb Callback) (*Call, error) {
	const op = "engine.Invoke"

	if ctx == nil {
		ctx = context.Background()
	}
	if entity == nil {
		return nil, brerr.Validation(op, "request entity is required")
	}
	if e.closed.Load() {
		return nil, brerr.Configuration(op, "engine is closed")
	}
	if e.cfg.APIKey == "" {
		return nil, brerr.Configuration(op, "API key is not set")
	}
	if e.cfg.BaseURL == "" {
		return nil, brerr.Configuration(op, "base URL is not set")
	}

	endpoint := entity.Endpoint(e.cfg)
	if endpoint == "" {
		return nil, brerr.Configuration(op, "no endpoint configured for %s", entity.Kind())
	}
	url := e.cfg.BaseURL + endpoint

	doc, err := entity.BuildDocument(e.cfg)
	if err != nil {
		return nil, err
	}

	e.enrich(ctx, doc)

	if e.cfg.SignRequests() {
		if err := signature.Sign(doc, entity, e.cfg.Secret); err != nil {
			return nil, err
		}
	}

	body, err := doc.Marshal()
	if err != nil {
		return nil, brerr.Wrap(brerr.KindRequestBody, op, err, "failed to encode %s request", entity.Kind())
	}
	if len(body) == 0 || string(body) == "null" || string(body) == "{}" {
		return nil, brerr.New(brerr.KindRequestBody, op, "%s request body is empty", entity.Kind())
	}

	call := newCall(ctx, uuid.NewString(), entity.Kind(), url, doc, cb)
	stop := context.AfterFunc(e.ctx, call.cancel)

	job := &dispatchJob{engine: e, call: call, request: bhttp.NewJSONRequest(url, body), stop: stop}
	if err := e.pool.Submit(worker.JobFunc{Name: call.id, Fn: job.Process}); err != nil {
		stop()
		call.cancel()
		if errors.Is(err, worker.ErrPoolStopped) {
			return nil, brerr.Wrap(brerr.KindConfiguration, op, err, "engine is closed")
		}
		return nil, err
	}

	e.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"call_id":      call.id,
		"request_kind": call.kind.String(),
		"http_url":     url,
		"pending":      e.pool.Pending(),
		"active":       e.pool.Active(),
	}).Debug("Request queued")

	return call, nil
}

// Do dispatches entity and waits for the outcome.
func (e *Engine) Do(ctx context.Context, entity request.Entity) (*result.Result, error) {
	call, err := e.Invoke(ctx, entity, nil)
	if err != nil {
		return nil, err
	}
	return call.Wait(context.Background())
}

// Activity dispatches an activity request.
func (e *Engine) Activity(ctx context.Context, activity *request.Activity, cb Callback) (*Call, error) {
	if activity == nil {
		return nil, brerr.Validation("engine.Activity", "activity is required")
	}
	return e.Invoke(ctx, activity, cb)
}

// Lookup dispatches a lookup request.
func (e *Engine) Lookup(ctx context.Context, lookup *request.Lookup, cb Callback) (*Call, error) {
	if lookup == nil {
		return nil, brerr.Validation("engine.Lookup", "lookup is required")
	}
	return e.Invoke(ctx, lookup, cb)
}

// TemporalData dispatches a temporal data request.
func (e *Engine) TemporalData(ctx context.Context, temporal *request.TemporalData, cb Callback) (*Call, error) {
	if temporal == nil {
		return nil, brerr.Validation("engine.TemporalData", "temporal data is required")
	}
	return e.Invoke(ctx, temporal, cb)
}

// Recommendation dispatches a recommendation request.
func (e *Engine) Recommendation(ctx context.Context, rec *request.Recommendation, cb Callback) (*Call, error) {
	if rec == nil {
		return nil, brerr.Validation("engine.Recommendation", "recommendation is required")
	}
	return e.Invoke(ctx, rec, cb)
}

// Pending returns the number of queued requests not yet sent.
func (e *Engine) Pending() int {
	return e.pool.Pending()
}

// Close refuses new requests and waits until every accepted request has
// completed and its callback has returned.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.pool.Stop()
		e.cancel()
		e.logger.Debugf("Engine closed after %d requests", e.pool.Processed())
	})
	return nil
}

// enrich merges provider output into user.additional unless the request
// already carries it. Provider failures are logged and otherwise ignored.
func (e *Engine) enrich(ctx context.Context, doc document.Document) {
	if e.location != nil && !doc.Has(request.UserKey, request.AdditionalKey, request.AdditionalLocation) {
		loc, err := e.location.Location(ctx)
		switch {
		case err != nil:
			e.logger.WithContext(ctx).WithError(err).Warn("Location provider failed")
		case loc != nil:
			e.setAdditional(doc, request.AdditionalLocation, loc.Document())
		}
	}

	if e.network != nil && !doc.Has(request.UserKey, request.AdditionalKey, request.AdditionalNetwork) {
		network, err := e.network.Network(ctx)
		switch {
		case err != nil:
			e.logger.WithContext(ctx).WithError(err).Warn("Network provider failed")
		case network != nil:
			e.setAdditional(doc, request.AdditionalNetwork, network.Document())
		}
	}
}

func (e *Engine) setAdditional(doc document.Document, key string, value document.Document) {
	if len(value) == 0 {
		return
	}
	if err := doc.SetPath([]string{request.UserKey, request.AdditionalKey, key}, value); err != nil {
		e.logger.WithError(err).Warnf("Cannot add %s to request", key)
	}
}

// dispatchJob performs the network I/O of one call on a worker.
type dispatchJob struct {
	engine  *Engine
	call    *Call
	request *bhttp.Request
	stop    func() bool
}

// Process sends the request and completes the call.
func (j *dispatchJob) Process(_ context.Context) {
	const op = "engine.dispatch"

	e, call := j.engine, j.call
	defer j.stop()

	// A panicking callback must still leave the call completed
	defer call.complete(nil, brerr.New(brerr.KindNetwork, op, "dispatch aborted"))

	logger := e.logger.WithContext(call.ctx).WithField("call_id", call.id)
	start := time.Now()

	if e.limiter != nil {
		if err := e.limiter.Wait(call.ctx); err != nil {
			logger.WithFields(common.ErrorFields(err, op)).Warn("Request not sent")
			call.complete(nil, brerr.Wrap(brerr.KindNetwork, op, err, "rate limiter"))
			return
		}
	}

	resp, err := e.client.Execute(call.ctx, j.request)
	if resp == nil {
		if err == nil {
			err = brerr.New(brerr.KindNetwork, op, "no response")
		}
		logger.WithFields(common.DispatchFields(call.kind.String(), call.url, 0, time.Since(start))).
			WithFields(common.ErrorFields(err, op)).Error("Request failed")
		call.complete(nil, err)
		return
	}

	logger = logger.WithFields(common.DispatchFields(call.kind.String(), call.url, resp.StatusCode, resp.Duration))

	res, parseErr := result.Parse(resp.Body, resp.StatusCode, resp.Status)

	if err != nil {
		var httpErr *brerr.Error
		if errors.As(err, &httpErr) && httpErr.Kind == brerr.KindHTTP {
			rejected := brerr.New(brerr.KindHTTP, op, "status %d: %s", resp.StatusCode, res.Message())
			rejected.StatusCode = resp.StatusCode
			err = rejected
		}
		logger = logger.WithFields(common.ErrorFields(err, op))
		switch {
		case resp.IsServerError():
			logger.Error("Request rejected by server")
		case resp.IsClientError():
			logger.Warn("Request rejected")
		default:
			logger.Warn("Unexpected response status")
		}
		call.complete(res, err)
		return
	}

	if parseErr != nil {
		err = brerr.Wrap(brerr.KindNetwork, op, parseErr, "invalid response body")
		logger.WithFields(common.ErrorFields(err, op)).
			WithField("body", resp.BodyString()).Warn("Response not decodable")
		call.complete(res, err)
		return
	}

	logger.Debug("Request completed")
	call.complete(res, nil)
}
