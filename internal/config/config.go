// Package config loads mcengine settings from defaults, a TOML file, a .env
// file and MCENGINE_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gstoney/mcengine/internal/logging"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    Server
	Login     Login
	Transport Transport
	Metrics   Metrics
	Log       logging.Config
}

type Server struct {
	Addr        string
	MOTD        string
	MaxPlayers  int
	Favicon     string // path to a 64x64 PNG
	AcceptRate  float64
	AcceptBurst int
	QueueSize   int
}

type Login struct {
	Encryption           bool
	CompressionThreshold int // negative disables compression
}

type Transport struct {
	MaxPacketLen       int32
	MaxDecompressedLen int32
}

type Metrics struct {
	Addr string // empty disables the /metrics listener
}

func Default() Config {
	return Config{
		Server: Server{
			Addr:        ":25565",
			MOTD:        "A Minecraft Server",
			MaxPlayers:  20,
			AcceptRate:  50,
			AcceptBurst: 100,
			QueueSize:   64,
		},
		Login: Login{
			Encryption:           false,
			CompressionThreshold: 256,
		},
		Transport: Transport{
			MaxPacketLen:       2 << 20,
			MaxDecompressedLen: 8 << 20,
		},
		Log: logging.DefaultConfig(),
	}
}

type fileConfig struct {
	Server struct {
		Addr        string  `toml:"addr"`
		MOTD        string  `toml:"motd"`
		MaxPlayers  int     `toml:"max_players"`
		Favicon     string  `toml:"favicon"`
		AcceptRate  float64 `toml:"accept_rate"`
		AcceptBurst int     `toml:"accept_burst"`
		QueueSize   int     `toml:"queue_size"`
	} `toml:"server"`
	Login struct {
		Encryption           bool `toml:"encryption"`
		CompressionThreshold int  `toml:"compression_threshold"`
	} `toml:"login"`
	Transport struct {
		MaxPacketLen       int32 `toml:"max_packet_len"`
		MaxDecompressedLen int32 `toml:"max_decompressed_len"`
	} `toml:"transport"`
	Metrics struct {
		Addr string `toml:"addr"`
	} `toml:"metrics"`
	Log struct {
		Level      string `toml:"level"`
		File       string `toml:"file"`
		MaxSizeMB  int    `toml:"max_size_mb"`
		MaxBackups int    `toml:"max_backups"`
		MaxAgeDays int    `toml:"max_age_days"`
		Console    bool   `toml:"console"`
	} `toml:"log"`
}

// Load builds a Config. path and envFile may be empty; a missing envFile is
// not an error.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) loadFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("server", "addr") {
		cfg.Server.Addr = strings.TrimSpace(raw.Server.Addr)
	}
	if meta.IsDefined("server", "motd") {
		cfg.Server.MOTD = raw.Server.MOTD
	}
	if meta.IsDefined("server", "max_players") {
		cfg.Server.MaxPlayers = raw.Server.MaxPlayers
	}
	if meta.IsDefined("server", "favicon") {
		cfg.Server.Favicon = strings.TrimSpace(raw.Server.Favicon)
	}
	if meta.IsDefined("server", "accept_rate") {
		cfg.Server.AcceptRate = raw.Server.AcceptRate
	}
	if meta.IsDefined("server", "accept_burst") {
		cfg.Server.AcceptBurst = raw.Server.AcceptBurst
	}
	if meta.IsDefined("server", "queue_size") {
		cfg.Server.QueueSize = raw.Server.QueueSize
	}

	if meta.IsDefined("login", "encryption") {
		cfg.Login.Encryption = raw.Login.Encryption
	}
	if meta.IsDefined("login", "compression_threshold") {
		cfg.Login.CompressionThreshold = raw.Login.CompressionThreshold
	}

	if meta.IsDefined("transport", "max_packet_len") {
		cfg.Transport.MaxPacketLen = raw.Transport.MaxPacketLen
	}
	if meta.IsDefined("transport", "max_decompressed_len") {
		cfg.Transport.MaxDecompressedLen = raw.Transport.MaxDecompressedLen
	}

	if meta.IsDefined("metrics", "addr") {
		cfg.Metrics.Addr = strings.TrimSpace(raw.Metrics.Addr)
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "file") {
		cfg.Log.File = strings.TrimSpace(raw.Log.File)
	}
	if meta.IsDefined("log", "max_size_mb") {
		cfg.Log.MaxSizeMB = raw.Log.MaxSizeMB
	}
	if meta.IsDefined("log", "max_backups") {
		cfg.Log.MaxBackups = raw.Log.MaxBackups
	}
	if meta.IsDefined("log", "max_age_days") {
		cfg.Log.MaxAgeDays = raw.Log.MaxAgeDays
	}
	if meta.IsDefined("log", "console") {
		cfg.Log.Console = raw.Log.Console
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func (cfg *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = n
		return nil
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("MCENGINE_ADDR", &cfg.Server.Addr)
	if v, ok := lookup("MCENGINE_MOTD"); ok {
		cfg.Server.MOTD = v
	}
	str("MCENGINE_FAVICON", &cfg.Server.Favicon)
	str("MCENGINE_METRICS_ADDR", &cfg.Metrics.Addr)
	str("MCENGINE_LOG_LEVEL", &cfg.Log.Level)
	str("MCENGINE_LOG_FILE", &cfg.Log.File)

	if err := integer("MCENGINE_MAX_PLAYERS", &cfg.Server.MaxPlayers); err != nil {
		return err
	}
	if err := integer("MCENGINE_QUEUE_SIZE", &cfg.Server.QueueSize); err != nil {
		return err
	}
	if err := integer("MCENGINE_COMPRESSION_THRESHOLD", &cfg.Login.CompressionThreshold); err != nil {
		return err
	}
	return boolean("MCENGINE_ENCRYPTION", &cfg.Login.Encryption)
}

// ValidationError names the setting that failed validation.
type ValidationError struct {
	Key    string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

func (cfg Config) Validate() error {
	if cfg.Server.Addr == "" {
		return ValidationError{"server.addr", "must not be empty"}
	}
	if _, port, err := net.SplitHostPort(cfg.Server.Addr); err != nil {
		return ValidationError{"server.addr", err.Error()}
	} else if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return ValidationError{"server.addr", fmt.Sprintf("invalid port %q", port)}
	}
	if cfg.Server.MaxPlayers < 0 {
		return ValidationError{"server.max_players", "must not be negative"}
	}
	if cfg.Server.AcceptRate <= 0 {
		return ValidationError{"server.accept_rate", "must be positive"}
	}
	if cfg.Server.AcceptBurst < 1 {
		return ValidationError{"server.accept_burst", "must be at least 1"}
	}
	if cfg.Server.QueueSize < 1 {
		return ValidationError{"server.queue_size", "must be at least 1"}
	}
	if cfg.Transport.MaxPacketLen < 1 || cfg.Transport.MaxPacketLen > 1<<21 {
		return ValidationError{"transport.max_packet_len", "must be between 1 and 2097152"}
	}
	if cfg.Transport.MaxDecompressedLen < 1 {
		return ValidationError{"transport.max_decompressed_len", "must be positive"}
	}
	if cfg.Login.CompressionThreshold > int(cfg.Transport.MaxDecompressedLen) {
		return ValidationError{"login.compression_threshold", "exceeds transport.max_decompressed_len"}
	}
	return nil
}
