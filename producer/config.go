package producer

import (
	"github.com/Shopify/sarama"
	"github.com/tryfix/errors"
	"github.com/tryfix/log"
	"github.com/tryfix/metrics"
)

type Config struct {
	Id string
	*sarama.Config
	BootstrapServers []string
	RequiredAcks     RequiredAcks
	Logger           log.Logger
	MetricsReporter  metrics.Reporter
}

func NewConfig() *Config {
	c := new(Config)
	c.setDefaults()
	return c
}

func (c *Config) validate() error {
	if len(c.BootstrapServers) < 1 {
		return errors.New(`[BootstrapServers] cannot be empty`)
	}

	c.Producer.RequiredAcks = sarama.RequiredAcks(c.RequiredAcks)

	if err := c.Config.Validate(); err != nil {
		return errors.WithPrevious(err, `invalid producer config`)
	}

	return nil
}

func (c *Config) setDefaults() {
	c.Id = `averager`
	c.Config = sarama.NewConfig()
	c.RequiredAcks = WaitForAll
	c.Producer.Return.Errors = true
	c.Producer.Return.Successes = true
	c.Producer.Partitioner = sarama.NewHashPartitioner
	c.Producer.Compression = sarama.CompressionSnappy
	c.Logger = log.NewNoopLogger()
	c.MetricsReporter = metrics.NoopReporter()
}
