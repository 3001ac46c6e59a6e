package config

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/mosaicnetworks/ledgersim/src/proxy"
	"github.com/sirupsen/logrus"
)

func TestDefaults(t *testing.T) {
	c := NewDefaultConfig()

	if err := c.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if c.MinInterval() != time.Millisecond {
		t.Fatalf("MinInterval should be 1ms, not %v", c.MinInterval())
	}
	if c.Latency() != 100*time.Millisecond {
		t.Fatalf("Latency should be 100ms, not %v", c.Latency())
	}
	if c.EpochDuration() != time.Minute {
		t.Fatalf("EpochDuration should be 1m, not %v", c.EpochDuration())
	}
	if _, ok := c.AppProxy().(proxy.NullProxy); !ok {
		t.Fatalf("default AppProxy should be a NullProxy")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero throughput", func(c *Config) { c.Throughput = 0 }},
		{"negative throughput", func(c *Config) { c.Throughput = -5 }},
		{"tiny throughput", func(c *Config) { c.Throughput = 1e-12 }},
		{"negative latency", func(c *Config) { c.LatencyMs = -1 }},
		{"zero epoch length", func(c *Config) { c.EpochLength = 0 }},
		{"unknown store", func(c *Config) { c.Store = "postgres" }},
		{"inmem bootstrap", func(c *Config) { c.Bootstrap = true }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewTestConfig(t, logrus.DebugLevel)
			tc.modify(c)
			if err := c.Validate(); err == nil {
				t.Fatalf("config should be invalid")
			}
		})
	}
}

func TestMinInterval(t *testing.T) {
	cases := []struct {
		throughput float64
		expected   time.Duration
	}{
		{1000, time.Millisecond},
		{0.5, 2 * time.Second},
		{1e-12, time.Duration(math.MaxInt64)},
	}

	for _, tc := range cases {
		c := NewTestConfig(t, logrus.DebugLevel)
		c.Throughput = tc.throughput
		if got := c.MinInterval(); got != tc.expected {
			t.Fatalf("MinInterval at %v tx/s should be %v, not %v", tc.throughput, tc.expected, got)
		}
	}

	c := NewTestConfig(t, logrus.DebugLevel)
	c.Throughput = MinThroughput
	if err := c.Validate(); err != nil {
		t.Fatalf("MinThroughput should be valid: %v", err)
	}
	if c.MinInterval() <= 0 {
		t.Fatalf("MinInterval at MinThroughput should be positive, not %v", c.MinInterval())
	}
}

func TestDatabasePath(t *testing.T) {
	c := NewTestConfig(t, logrus.DebugLevel)
	c.SetDataDir("/tmp/ledgersim")

	c.Store = "badger"
	if c.DatabasePath() != filepath.Join("/tmp/ledgersim", DefaultBadgerFile) {
		t.Fatalf("unexpected badger path %s", c.DatabasePath())
	}

	c.Store = "bolt"
	if c.DatabasePath() != filepath.Join("/tmp/ledgersim", DefaultBoltFile) {
		t.Fatalf("unexpected bolt path %s", c.DatabasePath())
	}

	c.DatabaseDir = "/elsewhere"
	if c.DatabasePath() != "/elsewhere" {
		t.Fatalf("explicit database path should win")
	}
}

func TestLogLevel(t *testing.T) {
	if LogLevel("warn") != logrus.WarnLevel {
		t.Fatalf("warn should parse as WarnLevel")
	}
	if LogLevel("nonsense") != logrus.DebugLevel {
		t.Fatalf("unknown levels should default to DebugLevel")
	}
}
