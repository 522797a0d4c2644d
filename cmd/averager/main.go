package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tryfix/averager/admin"
	"github.com/tryfix/averager/calculator"
	"github.com/tryfix/averager/config"
	"github.com/tryfix/averager/events"
	"github.com/tryfix/averager/producer"
	"github.com/tryfix/averager/server"
	"github.com/tryfix/averager/upstream"
	"github.com/tryfix/averager/window"
	"github.com/tryfix/errors"
	"github.com/tryfix/log"
	"github.com/tryfix/metrics"
)

var rootCmd = &cobra.Command{
	Use:   "averager",
	Short: "Sliding window average calculator over the numbers test API",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the calculator HTTP API",
	RunE:  runServe,
}

var (
	flagConfig          string
	flagListen          string
	flagWindowSize      int
	flagDedupBatch      bool
	flagUpstreamURL     string
	flagUpstreamTimeout time.Duration
	flagToken           string
	flagLogLevel        string
	flagKafkaBrokers    []string
	flagKafkaTopic      string
)

func init() {
	defaults := config.NewConfig()

	flags := serveCmd.Flags()
	flags.StringVar(&flagConfig, "config", "", "toml config file")
	flags.StringVar(&flagListen, "listen", defaults.Http.Host, "HTTP listen address")
	flags.IntVar(&flagWindowSize, "window-size", defaults.Window.Size, "number of values kept in the window")
	flags.BoolVar(&flagDedupBatch, "dedup-batch", defaults.Window.DedupBatch, "drop repeated values within a single batch")
	flags.StringVar(&flagUpstreamURL, "upstream-url", defaults.Upstream.BaseURL, "numbers API base url")
	flags.DurationVar(&flagUpstreamTimeout, "upstream-timeout", defaults.Upstream.Timeout.Duration, "numbers API request timeout")
	flags.StringVar(&flagToken, "token", "", "bearer token for the numbers API")
	flags.StringVar(&flagLogLevel, "log-level", defaults.Log.Level, "TRACE, DEBUG, INFO, WARN, ERROR")
	flags.StringSliceVar(&flagKafkaBrokers, "kafka-brokers", nil, "publish window updates to these kafka brokers")
	flags.StringVar(&flagKafkaTopic, "kafka-topic", defaults.Events.Topic, "window update topic")

	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(log.WithPrefix(`averager`, `exited with error`), err)
	}
}

// loadConfig reads the config file when given, explicitly set flags win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	conf := config.NewConfig()
	if flagConfig != `` {
		c, err := config.LoadFile(flagConfig)
		if err != nil {
			return nil, err
		}
		conf = c
	}

	flags := cmd.Flags()
	if flags.Changed(`listen`) {
		conf.Http.Host = flagListen
	}
	if flags.Changed(`window-size`) {
		conf.Window.Size = flagWindowSize
	}
	if flags.Changed(`dedup-batch`) {
		conf.Window.DedupBatch = flagDedupBatch
	}
	if flags.Changed(`upstream-url`) {
		conf.Upstream.BaseURL = flagUpstreamURL
	}
	if flags.Changed(`upstream-timeout`) {
		conf.Upstream.Timeout = config.Duration{Duration: flagUpstreamTimeout}
	}
	if flags.Changed(`token`) {
		conf.Upstream.Token = flagToken
	}
	if flags.Changed(`log-level`) {
		conf.Log.Level = flagLogLevel
	}
	if flags.Changed(`kafka-brokers`) {
		conf.Events.Enabled = true
		conf.Events.BootstrapServers = flagKafkaBrokers
	}
	if flags.Changed(`kafka-topic`) {
		conf.Events.Topic = flagKafkaTopic
	}

	return conf, conf.Validate()
}

func runServe(cmd *cobra.Command, _ []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := conf.Logger()
	logger.Info("\n" + conf.String())

	reporter := metrics.PrometheusReporter(metrics.ReporterConf{System: conf.Metrics.System, Subsystem: conf.Metrics.Subsystem, ConstLabels: nil})

	win, err := window.New(conf.Window.Size,
		window.WithLogger(logger),
		window.WithMetricsReporter(reporter),
		window.WithBatchDedup(conf.Window.DedupBatch),
	)
	if err != nil {
		return err
	}

	upstreamConf := upstream.NewConfig()
	upstreamConf.BaseURL = conf.Upstream.BaseURL
	upstreamConf.Timeout = conf.Upstream.Timeout.Duration
	upstreamConf.Token = conf.Upstream.Token
	upstreamConf.Logger = logger
	upstreamConf.MetricsReporter = reporter
	source, err := upstream.NewClient(upstreamConf)
	if err != nil {
		return err
	}

	publisher := events.NewNoopPublisher()
	if conf.Events.Enabled {
		prdConf := producer.NewConfig()
		prdConf.BootstrapServers = conf.Events.BootstrapServers
		prdConf.Logger = logger
		prdConf.MetricsReporter = reporter
		prd, err := producer.NewProducer(prdConf)
		if err != nil {
			return errors.WithPrevious(err, `cannot init window update producer`)
		}
		publisher = events.NewKafkaPublisher(conf.Events.Topic, prd, logger)

		if conf.Events.CreateTopic {
			if err := createTopic(conf, logger); err != nil {
				return err
			}
		}
	}

	srv := server.New(conf.Http.Host, calculator.New(win, source, publisher, logger), logger)
	srvErrs := srv.Start()

	// trap SIGINT to trigger a shutdown.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-srvErrs:
		if err != nil {
			return err
		}
	case <-signals:
		logger.Info(`shutting down...`)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error(`averager.shutdown`, err)
	}

	return publisher.Close()
}

func createTopic(conf *config.Config, logger log.Logger) error {
	kAdmin, err := admin.NewKafkaAdmin(conf.Events.BootstrapServers, admin.WithLogger(logger))
	if err != nil {
		return err
	}
	defer kAdmin.Close()

	return kAdmin.CreateTopics(&admin.Topic{
		Name:              conf.Events.Topic,
		NumPartitions:     conf.Events.Partitions,
		ReplicationFactor: conf.Events.ReplicationFactor,
	})
}
