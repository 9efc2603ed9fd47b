package dispatcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shofin-islam/qahelper/internal/logger"
	"github.com/shofin-islam/qahelper/pkg/curl"
	"github.com/shofin-islam/qahelper/pkg/request"
	"golang.org/x/sync/errgroup"
)

const defaultContentType = "application/json"

// Dispatcher executes request descriptors and cURL text over HTTP. Every
// failure is recorded in the returned capture.
type Dispatcher struct {
	client        *http.Client
	logger        logger.Logger
	retries       int
	maxConcurrent int
	mu            sync.Mutex
	cond          *sync.Cond
	closed        bool
	activeCalls   int
}

// Options dispatcher configuration
type Options struct {
	Timeout               time.Duration
	Retries               int
	MaxConcurrent         int
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	TLSInsecureSkipVerify bool
	MaxRedirects          int
}

// ErrDispatcherClosed indicates the dispatcher has been shut down.
var ErrDispatcherClosed = errors.New("dispatcher is closed")

// New creates a dispatcher.
func New(log logger.Logger, opts Options) *Dispatcher {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	maxRedirects := positiveOrDefault(opts.MaxRedirects, 10)

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        positiveOrDefault(opts.MaxIdleConns, 100),
		MaxIdleConnsPerHost: positiveOrDefault(opts.MaxIdleConnsPerHost, opts.MaxConcurrent),
		IdleConnTimeout:     durationOrDefault(opts.IdleConnTimeout, 90*time.Second),
		TLSHandshakeTimeout: durationOrDefault(opts.TLSHandshakeTimeout, 10*time.Second),
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: opts.TLSInsecureSkipVerify,
		},
	}

	d := &Dispatcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		logger:        log,
		retries:       opts.Retries,
		maxConcurrent: opts.MaxConcurrent,
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Execute parses curlText and dispatches it. Text that is not a valid cURL
// command yields the invalid sentinel capture without any network I/O.
func (d *Dispatcher) Execute(ctx context.Context, curlText string) request.Capture {
	desc, err := curl.Parse(curlText)
	if err != nil {
		d.logger.Warn("Invalid cURL command", "error", err)
		return request.InvalidCapture(err.Error())
	}
	return d.Dispatch(ctx, desc)
}

// ExecuteAll executes every command and returns the captures in input order.
func (d *Dispatcher) ExecuteAll(ctx context.Context, curlTexts []string) []request.Capture {
	results := make([]request.Capture, len(curlTexts))
	if d.maxConcurrent <= 1 || len(curlTexts) <= 1 {
		for i, text := range curlTexts {
			results[i] = d.Execute(ctx, text)
		}
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.maxConcurrent)
	for i, text := range curlTexts {
		i, text := i, text
		g.Go(func() error {
			results[i] = d.Execute(gctx, text)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Dispatch sends desc and records the response.
func (d *Dispatcher) Dispatch(ctx context.Context, desc request.Descriptor) request.Capture {
	capture := request.NewCapture()
	capture.Method = request.ResolveMethod(desc.Method)
	capture.URL = desc.URL
	capture.RequestHeaders = append([]request.Header(nil), desc.Headers...)

	if requested := request.NormalizeMethod(desc.Method); requested != capture.Method {
		d.logger.Warn("Unsupported method, falling back to GET", "method", requested, "url", desc.URL)
	}

	sendBody := request.AllowsBody(capture.Method) && desc.Body != ""
	if sendBody {
		capture.RequestBody = desc.Body
		if !desc.HasHeader("Content-Type") {
			capture.RequestHeaders = append(capture.RequestHeaders, request.Header{Name: "Content-Type", Value: defaultContentType})
		}
	}

	d.logger.Debug("Dispatching request",
		"method", capture.Method,
		"url", capture.URL,
		"headers", headerPairs(capture.RequestHeaders),
	)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return networkFailure(capture, ErrDispatcherClosed, 0)
	}
	d.activeCalls++
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.activeCalls--
		if d.activeCalls == 0 {
			d.cond.Broadcast()
		}
		d.mu.Unlock()
	}()

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
			select {
			case <-ctx.Done():
				return networkFailure(capture, ctx.Err(), time.Since(start))
			case <-time.After(backoff):
			}
		}

		err := d.do(ctx, &capture, sendBody)
		if err == nil {
			capture.DurationMs = time.Since(start).Milliseconds()
			d.logger.Info("Request executed",
				"method", capture.Method,
				"url", capture.URL,
				"status", capture.StatusCode,
				"duration_ms", capture.DurationMs,
			)
			return capture
		}
		lastErr = err
		d.logger.Warn("Request attempt failed",
			"url", capture.URL,
			"error", err.Error(),
			"attempt", attempt+1,
		)
	}

	return networkFailure(capture, lastErr, time.Since(start))
}

func (d *Dispatcher) do(ctx context.Context, capture *request.Capture, sendBody bool) error {
	var body io.Reader
	if sendBody {
		body = strings.NewReader(capture.RequestBody)
	}

	req, err := http.NewRequestWithContext(ctx, capture.Method, capture.URL, body)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	for _, h := range capture.RequestHeaders {
		if strings.EqualFold(h.Name, "Host") {
			req.Host = h.Value
			continue
		}
		req.Header.Add(h.Name, h.Value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			d.logger.Warn("Failed to close response body", "error", cerr)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response failed: %w", err)
	}

	capture.StatusCode = resp.StatusCode
	capture.StatusText = statusText(resp)
	capture.Headers = resp.Header.Clone()
	capture.Body = string(data)
	return nil
}

// Close waits for in-flight requests and releases idle connections.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for d.activeCalls > 0 {
		d.cond.Wait()
	}
	d.mu.Unlock()

	if transport, ok := d.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

func networkFailure(capture request.Capture, err error, elapsed time.Duration) request.Capture {
	capture.Outcome = request.OutcomeNetworkFailure
	capture.Error = err.Error()
	capture.Body = "Execution Error: " + err.Error()
	capture.DurationMs = elapsed.Milliseconds()
	return capture
}

func statusText(resp *http.Response) string {
	prefix := fmt.Sprintf("%d ", resp.StatusCode)
	if text := strings.TrimPrefix(resp.Status, prefix); text != "" && text != resp.Status {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func headerPairs(headers []request.Header) []string {
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		out = append(out, h.Name+": "+h.Value)
	}
	return out
}

func positiveOrDefault(value, def int) int {
	if value > 0 {
		return value
	}
	return def
}

func durationOrDefault(value, def time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return def
}
