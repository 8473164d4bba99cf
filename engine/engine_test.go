package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"brein.evalgo.org/brerr"
	"brein.evalgo.org/config"
	"brein.evalgo.org/document"
	"brein.evalgo.org/provider"
	"brein.evalgo.org/request"
	"brein.evalgo.org/result"
	"brein.evalgo.org/signature"
)

// recorder captures what the test server received.
type recorder struct {
	mu      sync.Mutex
	paths   []string
	bodies  []document.Document
	headers []http.Header
}

func (r *recorder) record(req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	doc, _ := document.Parse(body)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, req.URL.Path)
	r.bodies = append(r.bodies, doc)
	r.headers = append(r.headers, req.Header.Clone())
}

func (r *recorder) last() (string, document.Document, http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.paths) - 1
	return r.paths[n], r.bodies[n], r.headers[n]
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestEngine(t *testing.T, cfg *config.Config, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	eng, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func okServer(t *testing.T, rec *recorder, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

// countingCallback counts invocations and keeps the last outcome.
type countingCallback struct {
	mu    sync.Mutex
	count atomic.Int32
	res   *result.Result
	err   error
}

func (c *countingCallback) fn(res *result.Result, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count.Add(1)
	c.res = res
	c.err = err
}

func (c *countingCallback) result() *result.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.res
}

func (c *countingCallback) error() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func waitCall(t *testing.T, call *Call) (*result.Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := call.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "call did not complete")
	return res, err
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, brerr.ErrValidation)

	cfg := config.Default()
	cfg.BaseURL = "ftp://example.com"
	_, err = New(cfg)
	assert.ErrorIs(t, err, brerr.ErrConfiguration)
}

func TestActivityEndToEnd(t *testing.T) {
	rec := &recorder{}
	server := okServer(t, rec, `{"message":"done"}`)

	cfg := config.New("api-key", "s3cr3t")
	cfg.BaseURL = server.URL
	cfg.DefaultCategory = "services"
	eng := newTestEngine(t, cfg)

	activity := request.NewActivity(request.NewUserWithEmail("john@example.com")).
		SetType("login").
		SetCategory("")

	cb := &countingCallback{}
	call, err := eng.Activity(context.Background(), activity, cb.fn)
	require.NoError(t, err)
	assert.Equal(t, request.KindActivity, call.Kind())
	assert.Equal(t, server.URL+"/activity", call.URL())
	assert.NotEmpty(t, call.ID())

	res, err := waitCall(t, call)
	require.NoError(t, err)
	assert.Equal(t, int32(1), cb.count.Load())
	assert.Equal(t, "done", res.Message())
	assert.Equal(t, 200, res.StatusCode)

	path, body, headers := rec.last()
	assert.Equal(t, "/activity", path)
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "application/json", headers.Get("Accept"))

	assert.Equal(t, "api-key", body.GetString("apiKey"))
	assert.Equal(t, "services", body.GetString("activity", "category"))
	assert.Equal(t, "john@example.com", body.GetString("user", "email"))

	ts, ok := body.GetInt64("unixTimestamp")
	require.True(t, ok)
	expected, err := signature.Generate("login"+strconv.FormatInt(ts, 10)+"1", "s3cr3t")
	require.NoError(t, err)
	assert.Equal(t, expected, body.GetString("signature"))
	assert.Equal(t, "HmacSHA256", body.GetString("signatureType"))
	assert.Equal(t, body.GetString("signature"), call.Document().GetString("signature"))
}

func TestUnsignedWithoutSecret(t *testing.T) {
	rec := &recorder{}
	server := okServer(t, rec, `{}`)

	cfg := config.New("api-key", "")
	cfg.BaseURL = server.URL
	eng := newTestEngine(t, cfg)

	_, err := eng.Do(context.Background(), request.NewLookup(request.NewUserWithEmail("a@b.c"), "age"))
	require.NoError(t, err)

	_, body, _ := rec.last()
	assert.False(t, body.Has("signature"))
	assert.False(t, body.Has("signatureType"))
}

func TestEndpointsPerKind(t *testing.T) {
	rec := &recorder{}
	server := okServer(t, rec, `{}`)

	cfg := config.New("api-key", "s3cr3t")
	cfg.BaseURL = server.URL
	eng := newTestEngine(t, cfg)
	user := request.NewUserWithEmail("a@b.c")
	ctx := context.Background()

	call, err := eng.Lookup(ctx, request.NewLookup(user, "firstname"), nil)
	require.NoError(t, err)
	_, err = waitCall(t, call)
	require.NoError(t, err)
	path, _, _ := rec.last()
	assert.Equal(t, "/lookup", path)

	call, err = eng.TemporalData(ctx, request.NewTemporalData(nil).SetLocation("Paris"), nil)
	require.NoError(t, err)
	_, err = waitCall(t, call)
	require.NoError(t, err)
	path, body, _ := rec.last()
	assert.Equal(t, "/temporaldata", path)
	assert.Equal(t, "Paris", body.GetString("user", "additional", "location", "text"))

	call, err = eng.Recommendation(ctx, request.NewRecommendation(user).SetNumRecommendations(2), nil)
	require.NoError(t, err)
	_, err = waitCall(t, call)
	require.NoError(t, err)
	path, body, _ = rec.last()
	assert.Equal(t, "/recommendation", path)
	n, _ := body.GetInt64("recommendation", "numRecommendations")
	assert.Equal(t, int64(2), n)
}

func TestSynchronousErrorsSkipCallback(t *testing.T) {
	cfg := config.New("api-key", "s3cr3t")
	cfg.BaseURL = "http://127.0.0.1:1"
	eng := newTestEngine(t, cfg)

	cb := &countingCallback{}
	ctx := context.Background()

	_, err := eng.Invoke(ctx, nil, cb.fn)
	assert.ErrorIs(t, err, brerr.ErrValidation)

	_, err = eng.Activity(ctx, nil, cb.fn)
	assert.ErrorIs(t, err, brerr.ErrValidation)

	_, err = eng.Activity(ctx, request.NewActivity(nil).SetType("login"), cb.fn)
	assert.ErrorIs(t, err, brerr.ErrValidation)

	_, err = eng.Recommendation(ctx, request.NewRecommendation(request.NewUser()).SetNumRecommendations(-1), cb.fn)
	assert.ErrorIs(t, err, brerr.ErrValidation)

	noKey := config.New("", "")
	noKey.BaseURL = "http://127.0.0.1:1"
	_, err = newTestEngine(t, noKey).Invoke(ctx, request.NewActivity(request.NewUser()), cb.fn)
	assert.ErrorIs(t, err, brerr.ErrConfiguration)

	noBase := config.New("api-key", "")
	noBase.BaseURL = ""
	_, err = newTestEngine(t, noBase).Invoke(ctx, request.NewActivity(request.NewUser()), cb.fn)
	assert.ErrorIs(t, err, brerr.ErrConfiguration)

	noEndpoint := config.New("api-key", "")
	noEndpoint.Endpoints.Lookup = ""
	_, err = newTestEngine(t, noEndpoint).Invoke(ctx, request.NewLookup(request.NewUser()), cb.fn)
	assert.ErrorIs(t, err, brerr.ErrConfiguration)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), cb.count.Load())
}

func TestNon2xxReachesCallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"invalid signature"}`))
	}))
	defer server.Close()

	cfg := config.New("api-key", "wrong")
	cfg.BaseURL = server.URL
	eng := newTestEngine(t, cfg)

	cb := &countingCallback{}
	call, err := eng.Activity(context.Background(), request.NewActivity(request.NewUser()).SetType("login"), cb.fn)
	require.NoError(t, err)

	res, err := waitCall(t, call)
	require.Error(t, err)
	assert.ErrorIs(t, err, brerr.ErrHTTP)
	assert.Contains(t, err.Error(), "invalid signature")

	var e *brerr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, http.StatusForbidden, e.StatusCode)

	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, "invalid signature", res.Message())
	assert.Equal(t, int32(1), cb.count.Load())
	assert.Same(t, res, cb.result())
}

func TestTransportFailureReachesCallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	cfg := config.New("api-key", "")
	cfg.BaseURL = url
	eng := newTestEngine(t, cfg)

	cb := &countingCallback{}
	call, err := eng.Activity(context.Background(), request.NewActivity(request.NewUser()).SetType("login"), cb.fn)
	require.NoError(t, err)

	res, err := waitCall(t, call)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, brerr.ErrNetwork)
	assert.Equal(t, int32(1), cb.count.Load())
	assert.ErrorIs(t, cb.error(), brerr.ErrNetwork)
}

func TestInvalidResponseBody(t *testing.T) {
	rec := &recorder{}
	server := okServer(t, rec, `not json`)

	cfg := config.New("api-key", "")
	cfg.BaseURL = server.URL
	eng := newTestEngine(t, cfg)

	res, err := eng.Do(context.Background(), request.NewActivity(request.NewUser()).SetType("login"))
	assert.ErrorIs(t, err, brerr.ErrNetwork)
	require.NotNil(t, res)
	assert.Equal(t, "not json", string(res.Raw()))
}

func jsonLogger(buf *bytes.Buffer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.DebugLevel)
	return logger
}

func TestDispatchFailureLogging(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		level    string
		message  string
		expected []string
	}{
		{"ServerError", http.StatusServiceUnavailable, `{"message":"down"}`, "error", "Request rejected by server", nil},
		{"ClientError", http.StatusBadRequest, `{"message":"bad"}`, "warning", "Request rejected", nil},
		{"InvalidBody", http.StatusOK, `not json`, "warning", "Response not decodable", []string{`"body":"not json"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			var buf bytes.Buffer
			cfg := config.New("api-key", "")
			cfg.BaseURL = server.URL
			eng := newTestEngine(t, cfg, WithLogger(jsonLogger(&buf)))

			_, err := eng.Do(context.Background(), request.NewActivity(request.NewUser()).SetType("login"))
			require.Error(t, err)
			require.NoError(t, eng.Close())

			out := buf.String()
			assert.Contains(t, out, `"level":"`+tt.level+`"`)
			assert.Contains(t, out, tt.message)
			assert.Contains(t, out, `"context":"engine.dispatch"`)
			assert.Contains(t, out, `"error_type":"*brerr.Error"`)
			assert.Contains(t, out, `"http_status_code":`+strconv.Itoa(tt.status))
			for _, e := range tt.expected {
				assert.Contains(t, out, e)
			}
		})
	}
}

func TestQueuedLogReportsPoolState(t *testing.T) {
	rec := &recorder{}
	server := okServer(t, rec, `{}`)

	var buf bytes.Buffer
	cfg := config.New("api-key", "")
	cfg.BaseURL = server.URL
	eng := newTestEngine(t, cfg, WithLogger(jsonLogger(&buf)))

	_, err := eng.Do(context.Background(), request.NewActivity(request.NewUser()).SetType("login"))
	require.NoError(t, err)
	require.NoError(t, eng.Close())

	out := buf.String()
	assert.Contains(t, out, "Request queued")
	assert.Contains(t, out, `"active":`)
	assert.Contains(t, out, `"pending":`)
}

func blockingServer(t *testing.T) (*httptest.Server, chan struct{}, chan struct{}) {
	t.Helper()
	received := make(chan struct{}, 16)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
		select {
		case <-release:
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)
	return server, received, release
}

func TestCancelReachesCallback(t *testing.T) {
	server, received, release := blockingServer(t)
	defer close(release)

	cfg := config.New("api-key", "")
	cfg.BaseURL = server.URL
	eng := newTestEngine(t, cfg)

	cb := &countingCallback{}
	call, err := eng.Activity(context.Background(), request.NewActivity(request.NewUser()).SetType("login"), cb.fn)
	require.NoError(t, err)

	<-received
	call.Cancel()

	res, err := waitCall(t, call)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, brerr.ErrNetwork)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), cb.count.Load())

	// cancelling again is harmless
	call.Cancel()
	<-call.Done()
	assert.Equal(t, int32(1), cb.count.Load())
}

func TestContextCancellation(t *testing.T) {
	server, received, release := blockingServer(t)
	defer close(release)

	cfg := config.New("api-key", "")
	cfg.BaseURL = server.URL
	eng := newTestEngine(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	call, err := eng.Invoke(ctx, request.NewActivity(request.NewUser()).SetType("login"), nil)
	require.NoError(t, err)

	<-received
	cancel()

	_, err = waitCall(t, call)
	assert.ErrorIs(t, err, brerr.ErrNetwork)
}

func TestQueueFullIsSynchronous(t *testing.T) {
	server, received, release := blockingServer(t)

	cfg := config.New("api-key", "")
	cfg.BaseURL = server.URL
	cfg.Dispatch.Workers = 1
	cfg.Dispatch.QueueSize = 1
	eng := newTestEngine(t, cfg)

	activity := func() *request.Activity {
		return request.NewActivity(request.NewUser()).SetType("login")
	}

	first := &countingCallback{}
	_, err := eng.Activity(context.Background(), activity(), first.fn)
	require.NoError(t, err)
	<-received

	second := &countingCallback{}
	_, err = eng.Activity(context.Background(), activity(), second.fn)
	require.NoError(t, err)
	assert.Equal(t, 1, eng.Pending())

	refused := &countingCallback{}
	call, err := eng.Activity(context.Background(), activity(), refused.fn)
	assert.Nil(t, call)
	assert.ErrorIs(t, err, brerr.ErrQueueFull)

	close(release)
	require.NoError(t, eng.Close())

	assert.Equal(t, int32(1), first.count.Load())
	assert.Equal(t, int32(1), second.count.Load())
	assert.Equal(t, int32(0), refused.count.Load())
}

func TestCloseDrainsAndRefuses(t *testing.T) {
	rec := &recorder{}
	server := okServer(t, rec, `{}`)

	cfg := config.New("api-key", "")
	cfg.BaseURL = server.URL
	eng := newTestEngine(t, cfg)

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		_, err := eng.Activity(context.Background(), request.NewActivity(request.NewUser()).SetType("login"),
			func(res *result.Result, err error) { count.Add(1) })
		require.NoError(t, err)
	}

	require.NoError(t, eng.Close())
	assert.Equal(t, int32(10), count.Load())

	_, err := eng.Activity(context.Background(), request.NewActivity(request.NewUser()).SetType("login"), nil)
	assert.ErrorIs(t, err, brerr.ErrConfiguration)

	// closing twice is fine
	assert.NoError(t, eng.Close())
}

func TestRateLimiterCancellation(t *testing.T) {
	rec := &recorder{}
	server := okServer(t, rec, `{}`)

	cfg := config.New("api-key", "")
	cfg.BaseURL = server.URL
	cfg.Dispatch.Workers = 2
	eng := newTestEngine(t, cfg, WithRateLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))

	_, err := eng.Do(context.Background(), request.NewActivity(request.NewUser()).SetType("login"))
	require.NoError(t, err)

	call, err := eng.Activity(context.Background(), request.NewActivity(request.NewUser()).SetType("login"), nil)
	require.NoError(t, err)

	select {
	case <-call.Done():
		t.Fatal("second request should wait for the limiter")
	case <-time.After(50 * time.Millisecond):
	}

	call.Cancel()
	_, err = waitCall(t, call)
	assert.ErrorIs(t, err, brerr.ErrNetwork)
}

func TestProvidersEnrichDocument(t *testing.T) {
	rec := &recorder{}
	server := okServer(t, rec, `{}`)

	cfg := config.New("api-key", "")
	cfg.BaseURL = server.URL
	eng := newTestEngine(t, cfg,
		WithLocationProvider(provider.StaticLocation{Value: &provider.Location{Latitude: 37.77, Longitude: -122.42, Accuracy: 5}}),
		WithNetworkProvider(provider.StaticNetwork{Value: &provider.Network{SSID: `"office"`, State: "CONNECTED"}}),
	)

	user := request.NewUserWithEmail("a@b.c")
	_, err := eng.Do(context.Background(), request.NewActivity(user).SetType("login"))
	require.NoError(t, err)

	_, body, _ := rec.last()
	lat, ok := body.Get("user", "additional", "location", "latitude")
	require.True(t, ok)
	assert.Equal(t, 37.77, lat)
	assert.Equal(t, "office", body.GetString("user", "additional", "network", "ssid"))

	// the shared user is not modified
	assert.Nil(t, user.Additional(request.AdditionalLocation))

	// request-supplied location wins
	_, err = eng.Do(context.Background(), request.NewTemporalData(user).SetLocation("Paris"))
	require.NoError(t, err)
	_, body, _ = rec.last()
	assert.Equal(t, "Paris", body.GetString("user", "additional", "location", "text"))
	assert.False(t, body.Has("user", "additional", "location", "latitude"))
}

func TestProviderFailureIsIgnored(t *testing.T) {
	rec := &recorder{}
	server := okServer(t, rec, `{}`)

	cfg := config.New("api-key", "")
	cfg.BaseURL = server.URL
	eng := newTestEngine(t, cfg,
		WithLocationProvider(provider.LocationFunc(func(ctx context.Context) (*provider.Location, error) {
			return nil, errors.New("gps off")
		})),
	)

	_, err := eng.Do(context.Background(), request.NewActivity(request.NewUser()).SetType("login"))
	require.NoError(t, err)

	_, body, _ := rec.last()
	assert.False(t, body.Has("user", "additional", "location"))
}

func TestConcurrentInvokes(t *testing.T) {
	rec := &recorder{}
	server := okServer(t, rec, `{}`)

	cfg := config.New("api-key", "s3cr3t")
	cfg.BaseURL = server.URL
	cfg.Dispatch.QueueSize = 256
	eng := newTestEngine(t, cfg)

	user := request.NewUserWithEmail("shared@example.com")

	var wg sync.WaitGroup
	var count atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			call, err := eng.Activity(context.Background(), request.NewActivity(user).SetType("login"),
				func(res *result.Result, err error) { count.Add(1) })
			if assert.NoError(t, err) {
				<-call.Done()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(50), count.Load())
}
