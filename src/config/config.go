package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/razeblock/raze/src/common"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the node's
	// voting key seed.
	DefaultKeyfile = "vote_key"

	// DefaultBadgerFile is the default name of the folder containing the
	// Badger database.
	DefaultBadgerFile = "badger_db"

	// DefaultLogFile is the default name of the debug log written next to
	// the database.
	DefaultLogFile = "raze.log"
)

// Default configuration values.
const (
	DefaultLogLevel          = "debug"
	DefaultNetwork           = "live"
	DefaultBindAddr          = "0.0.0.0:7075"
	DefaultEnableVoting      = false
	DefaultBootstrapFraction = 1
	DefaultWorkThreads       = 0
)

// Config contains all the configuration properties of a raze node.
type Config struct {
	// DataDir is the top-level directory containing raze configuration and
	// data.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogToFile mirrors the log into DataDir/raze.log.
	LogToFile bool `mapstructure:"log-file"`

	// Network selects the live, beta or test network. Networks differ in
	// magic, default port, genesis block and preconfigured
	// representatives.
	Network string `mapstructure:"network"`

	// BindAddr is the local address:port the UDP socket binds. The port
	// should match the selected network's port so peers can advertise it.
	BindAddr string `mapstructure:"listen"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// PreconfiguredPeers are host:port endpoints contacted at startup on
	// top of peers learned from keepalives.
	PreconfiguredPeers []string `mapstructure:"peers"`

	// EnableVoting makes the node vote on blocks with the key in the
	// keyfile. Pointless without delegated weight.
	EnableVoting bool `mapstructure:"enable-voting"`

	// WorkPeers are HTTP URLs of work servers raced against the local
	// generator.
	WorkPeers []string `mapstructure:"work-peers"`

	// CallbackURL receives a JSON POST for every accepted block when set.
	CallbackURL string `mapstructure:"callback"`

	// BootstrapFraction is the numerator over 256 of the total supply
	// that confirmed-but-missing blocks must accumulate before an
	// automatic bootstrap is scheduled.
	BootstrapFraction int `mapstructure:"bootstrap-fraction"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:           DefaultDataDir(),
		LogLevel:          DefaultLogLevel,
		Network:           DefaultNetwork,
		BindAddr:          DefaultBindAddr,
		DatabaseDir:       DefaultDatabaseDir(),
		EnableVoting:      DefaultEnableVoting,
		BootstrapFraction: DefaultBootstrapFraction,
	}
	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t)
	return config
}

// SetDataDir sets the top-level raze directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely
// set it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Keyfile returns the full path of the file containing the voting key seed.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// Logfile returns the full path of the debug log file.
func (c *Config) Logfile() string {
	return filepath.Join(c.DataDir, DefaultLogFile)
}

// Logger returns a formatted logrus Entry, with prefix set to "raze".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
		if c.LogToFile {
			c.logger.Hooks.Add(lfshook.NewHook(lfshook.PathMap{
				logrus.InfoLevel:  c.Logfile(),
				logrus.DebugLevel: c.Logfile(),
				logrus.WarnLevel:  c.Logfile(),
				logrus.ErrorLevel: c.Logfile(),
			}, c.logger.Formatter))
		}
	}
	return c.logger.WithField("prefix", "raze")
}

// DefaultDatabaseDir returns the default path for the badger database
// files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level raze
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Raze")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Raze")
		} else {
			return filepath.Join(home, ".raze")
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
