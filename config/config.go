/**
 * Copyright 2020 TryFix Engineering.
 * All rights reserved.
 * Authors:
 *    Gayan Yapa (gmbyapa@gmail.com)
 */

package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/olekukonko/tablewriter"
	"github.com/tryfix/averager/upstream"
	"github.com/tryfix/averager/window"
	"github.com/tryfix/errors"
	"github.com/tryfix/log"
)

// Duration is a time.Duration read from strings like `500ms` in toml files.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	Http struct {
		Host string `toml:"host"`
	} `toml:"http"`
	Window struct {
		Size       int  `toml:"size"`
		DedupBatch bool `toml:"dedup-batch"`
	} `toml:"window"`
	Upstream struct {
		BaseURL string   `toml:"base-url"`
		Timeout Duration `toml:"timeout"`
		Token   string   `toml:"token"`
	} `toml:"upstream"`
	Events struct {
		Enabled           bool     `toml:"enabled"`
		Topic             string   `toml:"topic"`
		BootstrapServers  []string `toml:"bootstrap-servers"`
		CreateTopic       bool     `toml:"create-topic"`
		Partitions        int32    `toml:"partitions"`
		ReplicationFactor int16    `toml:"replication-factor"`
	} `toml:"events"`
	Log struct {
		Level    string `toml:"level"`
		Colors   bool   `toml:"colors"`
		FilePath bool   `toml:"file-path"`
	} `toml:"log"`
	Metrics struct {
		System    string `toml:"system"`
		Subsystem string `toml:"subsystem"`
	} `toml:"metrics"`
}

var levels = []string{`TRACE`, `DEBUG`, `INFO`, `WARN`, `ERROR`, `FATAL`}

func NewConfig() *Config {
	c := new(Config)
	c.Http.Host = `:9876`
	c.Window.Size = window.DefaultSize
	c.Upstream.BaseURL = upstream.DefaultBaseURL
	c.Upstream.Timeout = Duration{upstream.DefaultTimeout}
	c.Events.Topic = `averager.window_updates`
	c.Events.Partitions = 1
	c.Events.ReplicationFactor = 1
	c.Log.Level = `INFO`
	c.Log.Colors = true
	c.Metrics.System = `averager`
	c.Metrics.Subsystem = `window`

	return c
}

// LoadFile overrides the defaults with the values set in a toml file.
func LoadFile(path string) (*Config, error) {
	c := NewConfig()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, errors.WithPrevious(err, fmt.Sprintf(`cannot load config file [%s]`, path))
	}

	return c, nil
}

func (c *Config) Validate() error {
	if c.Http.Host == `` {
		return errors.New(`[Http.Host] cannot be empty`)
	}

	if c.Window.Size < 1 {
		return errors.New(`[Window.Size] should be greater than zero`)
	}

	if c.Upstream.BaseURL == `` {
		return errors.New(`[Upstream.BaseURL] cannot be empty`)
	}

	if c.Upstream.Timeout.Duration <= 0 {
		return errors.New(`[Upstream.Timeout] should be greater than zero`)
	}

	if c.Events.Enabled {
		if c.Events.Topic == `` {
			return errors.New(`[Events.Topic] cannot be empty`)
		}

		if len(c.Events.BootstrapServers) < 1 {
			return errors.New(`[Events.BootstrapServers] cannot be empty`)
		}

		if c.Events.CreateTopic && (c.Events.Partitions < 1 || c.Events.ReplicationFactor < 1) {
			return errors.New(`[Events.Partitions] and [Events.ReplicationFactor] should be greater than zero`)
		}
	}

	if !validLevel(c.Log.Level) {
		return errors.Errorf(`[Log.Level] invalid level [%s], expected one of %v`, c.Log.Level, levels)
	}

	return nil
}

func validLevel(level string) bool {
	for _, l := range levels {
		if strings.EqualFold(l, level) {
			return true
		}
	}

	return false
}

// Logger builds the root logger described by the Log section.
func (c *Config) Logger() log.Logger {
	return log.NewLog(
		log.WithLevel(log.Level(strings.ToUpper(c.Log.Level))),
		log.WithColors(c.Log.Colors),
		log.WithFilePath(c.Log.FilePath),
		log.Prefixed(`averager`),
	).Log()
}

func (c *Config) String() string {
	token := ``
	if c.Upstream.Token != `` {
		token = `********`
	}

	data := [][]string{
		{`http.host`, c.Http.Host},
		{`window.size`, fmt.Sprint(c.Window.Size)},
		{`window.dedup-batch`, fmt.Sprint(c.Window.DedupBatch)},
		{`upstream.base-url`, c.Upstream.BaseURL},
		{`upstream.timeout`, c.Upstream.Timeout.String()},
		{`upstream.token`, token},
		{`events.enabled`, fmt.Sprint(c.Events.Enabled)},
	}

	if c.Events.Enabled {
		data = append(data,
			[]string{`events.topic`, c.Events.Topic},
			[]string{`events.bootstrap-servers`, strings.Join(c.Events.BootstrapServers, `,`)},
			[]string{`events.create-topic`, fmt.Sprint(c.Events.CreateTopic)},
		)
	}

	data = append(data,
		[]string{`log.level`, c.Log.Level},
		[]string{`metrics.system`, c.Metrics.System},
		[]string{`metrics.subsystem`, c.Metrics.Subsystem},
	)

	out := new(bytes.Buffer)
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Config", "Value"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})
	table.AppendBulk(data)
	table.Render()

	return out.String()
}
