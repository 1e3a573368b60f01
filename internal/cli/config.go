package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultConfigFile is consulted when no --config flag is given.
// Unlike a file named explicitly, it is allowed to be absent.
const DefaultConfigFile = "subshell.toml"

// Config is the optional TOML config file, read before flags apply.
// A flag given on the command line overrides it field by field.
type Config struct {
	// Dialect picks the shell: "posix", "powershell" or "cmd".
	// Empty picks the host's natural dialect.
	Dialect string `toml:"dialect"`

	// WorkingDir is where the shells run; empty means here.
	WorkingDir string `toml:"working_dir"`

	// Env holds extra environment entries, "KEY=value" form.
	Env []string `toml:"env"`

	// PollInterval spaces the completion scans, e.g. "20ms".
	PollInterval duration `toml:"poll_interval"`

	// Timeout bounds each command; zero means wait forever.
	Timeout duration `toml:"timeout"`

	// LogFile turns on logging to this file.
	LogFile string `toml:"log_file"`

	// Debug lowers the log threshold to debug level.
	Debug bool `toml:"debug"`

	// Hub configures the hub command.
	Hub HubConfig `toml:"hub"`

	// Node configures the node command.
	Node NodeConfig `toml:"node"`
}

// HubConfig is the [hub] table.
type HubConfig struct {
	// Addr is the TCP listen address; empty means every interface
	// on the default port.
	Addr string `toml:"addr"`
}

// NodeConfig is the [node] table.  Zero fields fall back to the
// defaults in the remote package.
type NodeConfig struct {
	// Name is how clients address this node.
	Name string `toml:"name"`

	// Hub is the hub's "host:port".
	Hub string `toml:"hub"`

	// Password makes clients authenticate before commands run.
	Password string `toml:"password"`

	// AuthWindow bounds how long one authentication lasts.
	AuthWindow duration `toml:"auth_window"`

	// RunTimeout bounds each remote command.
	RunTimeout duration `toml:"run_timeout"`
}

// duration is a time.Duration that reads from TOML text, e.g. "1h30m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// LoadConfig reads the TOML file at path.  An empty path means
// DefaultConfigFile, whose absence is not an error; a path given
// explicitly must exist.  Keys the Config struct does not know are
// rejected, so a misspelled key cannot silently do nothing.
func LoadConfig(path string) (Config, error) {
	var c Config
	fallback := path == ""
	if fallback {
		path = DefaultConfigFile
	}
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		if fallback && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config %q; %w", path, err)
	}
	if bad := md.Undecoded(); len(bad) > 0 {
		return Config{}, fmt.Errorf(
			"unknown key %q in config %q", bad[0].String(), path)
	}
	return c, nil
}
