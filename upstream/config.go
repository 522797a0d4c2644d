package upstream

import (
	"context"
	"net/url"
	"time"

	"github.com/tryfix/errors"
	"github.com/tryfix/log"
	"github.com/tryfix/metrics"
)

const (
	DefaultBaseURL = `http://20.244.56.144/test`
	DefaultTimeout = 500 * time.Millisecond
)

type Config struct {
	BaseURL         string
	Timeout         time.Duration
	Token           string
	Logger          log.Logger
	MetricsReporter metrics.Reporter
	// OnError is notified of every failed fetch swallowed by Client.Numbers
	OnError func(ctx context.Context, category Category, err error)
}

func NewConfig() *Config {
	return &Config{
		BaseURL:         DefaultBaseURL,
		Timeout:         DefaultTimeout,
		Logger:          log.NewNoopLogger(),
		MetricsReporter: metrics.NoopReporter(),
	}
}

func (c *Config) validate() error {
	if c.BaseURL == `` {
		return errors.New(`[BaseURL] cannot be empty`)
	}

	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return errors.WithPrevious(err, `[BaseURL] invalid`)
	}

	if c.Timeout <= 0 {
		return errors.New(`[Timeout] should be greater than zero`)
	}

	if c.Logger == nil {
		c.Logger = log.NewNoopLogger()
	}

	if c.MetricsReporter == nil {
		c.MetricsReporter = metrics.NoopReporter()
	}

	return nil
}
