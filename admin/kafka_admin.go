/**
 * Copyright 2020 TryFix Engineering.
 * All rights reserved.
 * Authors:
 *    Gayan Yapa (gmbyapa@gmail.com)
 */

// Package admin creates the kafka topics the service publishes to
package admin

import (
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/tryfix/errors"
	"github.com/tryfix/log"
)

type Topic struct {
	Name              string
	NumPartitions     int32
	ReplicationFactor int16
	ConfigEntries     map[string]string
}

type KafkaAdmin interface {
	CreateTopics(topics ...*Topic) error
	Close()
}

// clusterAdmin is the subset of sarama.ClusterAdmin used here
type clusterAdmin interface {
	CreateTopic(topic string, detail *sarama.TopicDetail, validateOnly bool) error
	Close() error
}

type kafkaAdminOptions struct {
	KafkaVersion sarama.KafkaVersion
	Logger       log.Logger
}

func (opts *kafkaAdminOptions) apply(options ...KafkaAdminOption) {
	opts.KafkaVersion = sarama.V2_4_0_0
	opts.Logger = log.NewNoopLogger()
	for _, opt := range options {
		opt(opts)
	}
}

type KafkaAdminOption func(*kafkaAdminOptions)

func WithKafkaVersion(version sarama.KafkaVersion) KafkaAdminOption {
	return func(options *kafkaAdminOptions) {
		options.KafkaVersion = version
	}
}

func WithLogger(logger log.Logger) KafkaAdminOption {
	return func(options *kafkaAdminOptions) {
		options.Logger = logger
	}
}

type kafkaAdmin struct {
	admin  clusterAdmin
	logger log.Logger
}

func NewKafkaAdmin(bootstrapServers []string, options ...KafkaAdminOption) (KafkaAdmin, error) {
	opts := new(kafkaAdminOptions)
	opts.apply(options...)
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = opts.KafkaVersion

	admin, err := sarama.NewClusterAdmin(bootstrapServers, saramaConfig)
	if err != nil {
		return nil, errors.WithPrevious(err, `cannot get controller`)
	}

	return newKafkaAdmin(admin, opts.Logger), nil
}

func newKafkaAdmin(admin clusterAdmin, logger log.Logger) *kafkaAdmin {
	return &kafkaAdmin{
		admin:  admin,
		logger: logger.NewLog(log.Prefixed(`kafka-admin`)),
	}
}

// CreateTopics creates the given topics, existing topics are left as they are.
func (c *kafkaAdmin) CreateTopics(topics ...*Topic) error {
	for _, info := range topics {
		details := &sarama.TopicDetail{
			NumPartitions:     info.NumPartitions,
			ReplicationFactor: info.ReplicationFactor,
		}
		details.ConfigEntries = map[string]*string{}
		for cName, config := range info.ConfigEntries {
			configCpy := config
			details.ConfigEntries[cName] = &configCpy
		}

		err := c.admin.CreateTopic(info.Name, details, false)
		if err != nil {
			if e, ok := err.(*sarama.TopicError); ok && (e.Err == sarama.ErrTopicAlreadyExists || e.Err == sarama.ErrNoError) {
				c.logger.Debug(fmt.Sprintf(`topic [%s] already exists`, info.Name))
				continue
			}
			return errors.WithPrevious(err, fmt.Sprintf(`could not create topic [%s]`, info.Name))
		}

		c.logger.Info(fmt.Sprintf(`topic [%s] created with %d partitions`, info.Name, info.NumPartitions))
	}

	return nil
}

func (c *kafkaAdmin) Close() {
	if err := c.admin.Close(); err != nil {
		c.logger.Warn(fmt.Sprintf(`kafkaAdmin cannot close broker : %+v`, err))
	}
}
