package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/inmosttrail/server/internal/core/entity"
)

// MaxWorldCells caps width*height; each cell costs four bytes.
const MaxWorldCells = 1 << 24

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Network  NetworkConfig  `toml:"network"`
	World    WorldConfig    `toml:"world"`
	Client   ClientConfig   `toml:"client"`
	Data     DataConfig     `toml:"data"`
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Name            string `toml:"name"`
	ProtocolVersion uint32 `toml:"protocol_version"`
	StartTime       int64  // set at boot, not from config
}

type NetworkConfig struct {
	BindAddress     string        `toml:"bind_address"`
	TickRate        time.Duration `toml:"tick_rate"`
	MaxReadsPerTick int           `toml:"max_reads_per_tick"`
	IdleTimeout     time.Duration `toml:"idle_timeout"`    // 0 = never
	MaxConnections  int           `toml:"max_connections"` // 0 = unlimited
}

type WorldConfig struct {
	Width          uint32 `toml:"width"`
	Height         uint32 `toml:"height"`
	AvatarCapacity int    `toml:"avatar_capacity"`
	SpawnX         uint32 `toml:"spawn_x"`
	SpawnY         uint32 `toml:"spawn_y"`
	WanderInterval uint32 `toml:"wander_interval"` // ticks; 0 = server avatars stand still
	PlayerUnitType uint8  `toml:"player_unit_type"`
}

type ClientConfig struct {
	ServerAddress  string        `toml:"server_address"`
	ConnectTimeout time.Duration `toml:"connect_timeout"`
	BucketSize     int           `toml:"bucket_size"`
	BucketRefill   time.Duration `toml:"bucket_refill"`
	PingInterval   time.Duration `toml:"ping_interval"`
}

type DataConfig struct {
	UnitsPath   string `toml:"units_path"`
	SpawnsPath  string `toml:"spawns_path"`
	TerrainPath string `toml:"terrain_path"`
	ScriptsDir  string `toml:"scripts_dir"`
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty = persistence off
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	SaveInterval    time.Duration `toml:"save_interval"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads the TOML file at path over the defaults. A missing file yields
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.World.Width == 0 || c.World.Height == 0:
		return fmt.Errorf("world size %dx%d", c.World.Width, c.World.Height)
	case uint64(c.World.Width)*uint64(c.World.Height) > MaxWorldCells:
		return fmt.Errorf("world size %dx%d exceeds %d cells", c.World.Width, c.World.Height, MaxWorldCells)
	case c.World.AvatarCapacity <= 0 || c.World.AvatarCapacity > entity.MaxCapacity:
		return fmt.Errorf("avatar_capacity %d outside [1, %d]", c.World.AvatarCapacity, entity.MaxCapacity)
	case c.World.SpawnX >= c.World.Width || c.World.SpawnY >= c.World.Height:
		return fmt.Errorf("spawn point (%d,%d) outside the world", c.World.SpawnX, c.World.SpawnY)
	case c.Network.TickRate <= 0:
		return fmt.Errorf("tick_rate %s", c.Network.TickRate)
	}
	return nil
}

// SaveIntervalTicks converts the database save interval to ticks.
func (c *Config) SaveIntervalTicks() int {
	if c.Database.SaveInterval <= 0 {
		return 0
	}
	n := int(c.Database.SaveInterval / c.Network.TickRate)
	if n < 1 {
		n = 1
	}
	return n
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:            "The Inmost Trail",
			ProtocolVersion: 1,
		},
		Network: NetworkConfig{
			BindAddress:     "0.0.0.0:27000",
			TickRate:        50 * time.Millisecond,
			MaxReadsPerTick: 128,
			IdleTimeout:     60 * time.Second,
			MaxConnections:  64,
		},
		World: WorldConfig{
			Width:          64,
			Height:         64,
			AvatarCapacity: 1024,
			SpawnX:         32,
			SpawnY:         32,
			WanderInterval: 40,
			PlayerUnitType: 0,
		},
		Client: ClientConfig{
			ServerAddress:  "127.0.0.1:27000",
			ConnectTimeout: 5 * time.Second,
			BucketSize:     4,
			BucketRefill:   250 * time.Millisecond,
			PingInterval:   time.Second,
		},
		Data: DataConfig{
			UnitsPath:   "data/yaml/unit_list.yaml",
			SpawnsPath:  "data/yaml/spawn_list.yaml",
			TerrainPath: "data/yaml/terrain_list.yaml",
			ScriptsDir:  "scripts",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			SaveInterval:    time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
