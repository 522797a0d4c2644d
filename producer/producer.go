/**
 * Copyright 2020 TryFix Engineering.
 * All rights reserved.
 * Authors:
 *    Gayan Yapa (gmbyapa@gmail.com)
 */

package producer

import (
	"context"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	saramaMetrics "github.com/rcrowley/go-metrics"
	"github.com/tryfix/averager/data"
	"github.com/tryfix/errors"
	"github.com/tryfix/log"
	"github.com/tryfix/metrics"
)

func init() {
	saramaMetrics.UseNilMetrics = true
}

type RequiredAcks int

const (
	// NoResponse doesn't send any response, the TCP ACK is all you get.
	NoResponse RequiredAcks = 0

	// WaitForLeader waits for only the local commit to succeed before responding.
	WaitForLeader RequiredAcks = 1

	// WaitForAll waits for all in-sync replicas to commit before responding.
	WaitForAll RequiredAcks = -1
)

func (ack RequiredAcks) String() string {
	a := `NoResponse`

	if ack == WaitForLeader {
		a = `WaitForLeader`
	}

	if ack == WaitForAll {
		a = `WaitForAll`
	}

	return a
}

type Producer interface {
	Produce(ctx context.Context, message *data.Record) (partition int32, offset int64, err error)
	Close() error
}

type saramaProducer struct {
	id             string
	saramaProducer sarama.SyncProducer
	logger         log.Logger
	metrics        struct {
		produceLatency metrics.Observer
	}
}

func NewProducer(configs *Config) (Producer, error) {
	if err := configs.validate(); err != nil {
		return nil, err
	}

	configs.Logger.Info(`producer [` + configs.Id + `] initiating...`)
	prd, err := sarama.NewSyncProducer(configs.BootstrapServers, configs.Config)
	if err != nil {
		return nil, errors.WithPrevious(err, fmt.Sprintf(`[%s] init failed`, configs.Id))
	}

	defer configs.Logger.Info(`producer [` + configs.Id + `] initiated`)

	return newSaramaProducer(configs, prd), nil
}

func newSaramaProducer(configs *Config, prd sarama.SyncProducer) *saramaProducer {
	p := &saramaProducer{
		id:             configs.Id,
		saramaProducer: prd,
		logger:         configs.Logger.NewLog(log.Prefixed(`producer`)),
	}

	p.metrics.produceLatency = configs.MetricsReporter.Observer(metrics.MetricConf{
		Path:        `averager_producer_produced_latency_microseconds`,
		Labels:      []string{`topic`, `partition`},
		ConstLabels: map[string]string{`producer_id`: configs.Id},
	})

	return p
}

func (p *saramaProducer) Close() error {
	defer p.logger.Info(fmt.Sprintf(`producer [%s] closed`, p.id))
	return p.saramaProducer.Close()
}

func (p *saramaProducer) Produce(ctx context.Context, message *data.Record) (partition int32, offset int64, err error) {
	t := time.Now()

	m := &sarama.ProducerMessage{
		Topic:     message.Topic,
		Key:       sarama.ByteEncoder(message.Key),
		Value:     sarama.ByteEncoder(message.Value),
		Timestamp: t,
	}

	for _, header := range message.Headers {
		m.Headers = append(m.Headers, sarama.RecordHeader{Key: header.Key, Value: header.Value})
	}

	if !message.Timestamp.IsZero() {
		m.Timestamp = message.Timestamp
	}

	if message.Partition > 0 {
		m.Partition = message.Partition
	}

	pr, o, err := p.saramaProducer.SendMessage(m)
	if err != nil {
		return 0, 0, errors.WithPrevious(err, `cannot send message`)
	}

	p.metrics.produceLatency.Observe(float64(time.Since(t).Nanoseconds()/1e3), map[string]string{
		`topic`:     message.Topic,
		`partition`: fmt.Sprint(pr),
	})

	p.logger.TraceContext(ctx, fmt.Sprintf("Delivered message to topic %s [%d] at offset %d",
		message.Topic, pr, o))

	return pr, o, nil
}
