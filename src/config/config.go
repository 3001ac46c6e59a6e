package config

import (
	"fmt"
	"math"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/ledgersim/src/common"
	"github.com/mosaicnetworks/ledgersim/src/proxy"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing a private key
	DefaultKeyfile = "priv_key"

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultBoltFile is the default name of the bbolt database file
	DefaultBoltFile = "ledger.db"
)

// Default configuration values.
const (
	DefaultLogLevel      = "info"
	DefaultListenAddress = "0.0.0.0"
	DefaultPort          = "8080"
	DefaultThroughput    = 1000.0
	DefaultLatencyMs     = 100
	DefaultEpochLength   = 60
	DefaultStore         = "inmem"
	DefaultBootstrap     = false
	DefaultServiceAddr   = ""
)

// MinThroughput is the smallest throughput whose interval fits a
// time.Duration.
const MinThroughput = float64(time.Second) / math.MaxInt64

// Config contains all the configuration properties of a sequencer.
type Config struct {
	// DataDir is the top-level directory containing configuration and data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, if set, additionally writes every log level to this file.
	LogFile string `mapstructure:"log-file"`

	// ListenAddress is the host, or host:port, where peers connect. The port
	// defaults to 8080.
	ListenAddress string `mapstructure:"listen-address"`

	// Throughput is the maximum number of transactions accepted per second,
	// across all peers. It must be strictly positive.
	Throughput float64 `mapstructure:"throughput"`

	// LatencyMs is the artificial delay, in milliseconds, between accepting a
	// transaction and broadcasting it.
	LatencyMs int `mapstructure:"latency"`

	// EpochLength is the duration of an epoch, in seconds.
	EpochLength int `mapstructure:"epoch-length"`

	// Store selects the persistence backend: inmem, badger or bolt.
	Store string `mapstructure:"store"`

	// DatabaseDir is the path of the database. Defaults to a file or folder
	// in DataDir, depending on Store.
	DatabaseDir string `mapstructure:"db"`

	// Bootstrap loads the ledger from an existing database before accepting
	// peers. It only makes sense with a persistent Store.
	Bootstrap bool `mapstructure:"bootstrap"`

	// ServiceAddr is the address:port of the HTTP service. Empty disables it.
	ServiceAddr string `mapstructure:"service-listen"`

	// Proxy is the application hook. Defaults to proxy.NullProxy.
	Proxy proxy.AppProxy

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:       DefaultDataDir(),
		LogLevel:      DefaultLogLevel,
		ListenAddress: DefaultListenAddress,
		Throughput:    DefaultThroughput,
		LatencyMs:     DefaultLatencyMs,
		EpochLength:   DefaultEpochLength,
		Store:         DefaultStore,
		Bootstrap:     DefaultBootstrap,
		ServiceAddr:   DefaultServiceAddr,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.DataDir = ""
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level directory.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// DatabasePath returns DatabaseDir if it is set, or the default location of
// the selected Store inside DataDir.
func (c *Config) DatabasePath() string {
	if c.DatabaseDir != "" {
		return c.DatabaseDir
	}
	if c.Store == "bolt" {
		return filepath.Join(c.DataDir, DefaultBoltFile)
	}
	return filepath.Join(c.DataDir, DefaultBadgerFile)
}

// MinInterval is the minimum time between two accepted transactions.
// It saturates at the longest time.Duration.
func (c *Config) MinInterval() time.Duration {
	interval := float64(time.Second) / c.Throughput
	if interval >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(interval)
}

// Latency is the delay before an accepted transaction is broadcast.
func (c *Config) Latency() time.Duration {
	return time.Duration(c.LatencyMs) * time.Millisecond
}

// EpochDuration is the time between two epoch rotations.
func (c *Config) EpochDuration() time.Duration {
	return time.Duration(c.EpochLength) * time.Second
}

// AppProxy returns the configured application hook, or a NullProxy.
func (c *Config) AppProxy() proxy.AppProxy {
	if c.Proxy == nil {
		return proxy.NullProxy{}
	}
	return c.Proxy
}

// Validate checks the values that can not be fixed with a default.
func (c *Config) Validate() error {
	if !(c.Throughput > 0) {
		return fmt.Errorf("throughput must be strictly positive, got %v", c.Throughput)
	}
	if c.Throughput < MinThroughput {
		return fmt.Errorf("throughput must be at least %v, got %v", MinThroughput, c.Throughput)
	}
	if c.LatencyMs < 0 {
		return fmt.Errorf("latency must not be negative, got %d", c.LatencyMs)
	}
	if c.EpochLength <= 0 {
		return fmt.Errorf("epoch-length must be strictly positive, got %d", c.EpochLength)
	}
	switch c.Store {
	case "inmem", "badger", "bolt":
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Bootstrap && c.Store == "inmem" {
		return fmt.Errorf("bootstrap requires a persistent store")
	}
	return nil
}

// Logger returns a formatted logrus Entry, with prefix set to "ledgersim".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			c.logger.AddHook(lfshook.NewHook(
				lfshook.PathMap{
					logrus.DebugLevel: c.LogFile,
					logrus.InfoLevel:  c.LogFile,
					logrus.WarnLevel:  c.LogFile,
					logrus.ErrorLevel: c.LogFile,
					logrus.FatalLevel: c.LogFile,
					logrus.PanicLevel: c.LogFile,
				},
				&logrus.JSONFormatter{},
			))
		}
	}
	return c.logger.WithField("prefix", "ledgersim")
}

// DefaultDataDir return the default directory name for top-level config based
// on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Ledgersim")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Ledgersim")
		} else {
			return filepath.Join(home, ".ledgersim")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
