package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tryfix/errors"
	"github.com/tryfix/log"
	"github.com/tryfix/metrics"
)

// maxResponseSize caps how much of an upstream body is read.
const maxResponseSize = 1 << 20

type numbersResponse struct {
	Numbers []int `json:"numbers"`
}

// Client fetches number batches from the upstream test API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	onError func(ctx context.Context, category Category, err error)
	logger  log.Logger
	metrics struct {
		fetchLatency metrics.Observer
		failures     metrics.Counter
	}
}

func NewClient(conf *Config) (*Client, error) {
	if err := conf.validate(); err != nil {
		return nil, err
	}

	c := &Client{
		baseURL: strings.TrimSuffix(conf.BaseURL, `/`),
		token:   conf.Token,
		http:    &http.Client{Timeout: conf.Timeout},
		onError: conf.OnError,
		logger:  conf.Logger.NewLog(log.Prefixed(`upstream`)),
	}

	c.metrics.fetchLatency = conf.MetricsReporter.Observer(metrics.MetricConf{
		Path:   `upstream_fetch_latency_microseconds`,
		Labels: []string{`category`},
	})
	c.metrics.failures = conf.MetricsReporter.Counter(metrics.MetricConf{
		Path:   `upstream_fetch_failures`,
		Labels: []string{`category`},
	})

	return c, nil
}

// Fetch returns the numbers served for category. Non 2xx responses,
// timeouts and malformed bodies are errors.
func (c *Client) Fetch(ctx context.Context, category Category) ([]int, error) {
	path := category.Path()
	if path == `` {
		return nil, errors.WithPrevious(ErrInvalidCategory, fmt.Sprintf(`[%s]`, category))
	}

	defer func(begin time.Time) {
		c.metrics.fetchLatency.Observe(float64(time.Since(begin).Nanoseconds()/1e3), map[string]string{`category`: category.String()})
	}(time.Now())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.WithPrevious(err, `cannot build request`)
	}

	req.Header.Set(`Accept`, `application/json`)
	if c.token != `` {
		req.Header.Set(`Authorization`, `Bearer `+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WithPrevious(err, fmt.Sprintf(`request to %s failed`, req.URL))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug(`upstream.Fetch`, `response body close`, err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errors.Errorf(`upstream responded with status %d`, resp.StatusCode)
	}

	body := numbersResponse{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return nil, errors.WithPrevious(err, `malformed upstream response`)
	}

	if body.Numbers == nil {
		return []int{}, nil
	}

	return body.Numbers, nil
}

// Numbers is Fetch that never fails: errors are logged, counted, passed to
// the OnError hook and turned into an empty batch.
func (c *Client) Numbers(ctx context.Context, category Category) []int {
	numbers, err := c.Fetch(ctx, category)
	if err != nil {
		c.metrics.failures.Count(1, map[string]string{`category`: category.String()})
		c.logger.ErrorContext(ctx, fmt.Sprintf(`error fetching numbers for [%s]: %s`, category, err))
		if c.onError != nil {
			c.onError(ctx, category, err)
		}

		return []int{}
	}

	c.logger.DebugContext(ctx, fmt.Sprintf(`fetched %d numbers for [%s]`, len(numbers), category))

	return numbers
}
