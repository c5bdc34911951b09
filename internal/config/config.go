// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every knob of a game service process. Values come from the
// environment (and a local .env file when main imports godotenv/autoload).
type Config struct {
	Addr     string `env:"ADDR"      envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// GameKind selects the rules this process hosts; SiblingKind is the game
	// service consulted by the cross-service busy oracle.
	GameKind    string `env:"GAME_KIND"         envDefault:"grid"`
	SiblingKind string `env:"SIBLING_GAME_KIND" envDefault:"paddle"`

	Cooldown        time.Duration `env:"COOLDOWN"         envDefault:"30s"`
	MoveTimeout     time.Duration `env:"MOVE_TIMEOUT"     envDefault:"15s"`
	OutboundTimeout time.Duration `env:"OUTBOUND_TIMEOUT" envDefault:"2s"`
	SkipBlockCheck  bool          `env:"SKIP_BLOCK_CHECK" envDefault:"false"`

	GridSize     int `env:"GRID_SIZE"      envDefault:"3"`
	GridMaxMarks int `env:"GRID_MAX_MARKS" envDefault:"3"`

	PaddleWinScore int           `env:"PADDLE_WIN_SCORE" envDefault:"5"`
	PaddleTick     time.Duration `env:"PADDLE_TICK"      envDefault:"16ms"`

	TournamentMinParticipants int `env:"TOURNAMENT_MIN_PARTICIPANTS" envDefault:"2"`

	// RedisAddr is optional for the server; without it there are no
	// cross-service busy checks, notifications or match history.
	RedisAddr string        `env:"REDIS_ADDR"`
	RedisDB   int           `env:"REDIS_DB"   envDefault:"0"`
	BusyTTL   time.Duration `env:"BUSY_TTL"   envDefault:"2h"`

	// DatabaseURL is optional; without it usernames fall back to generated
	// names and no one is considered blocked.
	DatabaseURL string `env:"DATABASE_URL"`

	JWTPublicKeyPath string `env:"JWT_PUBLIC_KEY_PATH"`

	HistorianQueue      string        `env:"HISTORIAN_QUEUE_NAME" envDefault:"versus_results"`
	HistorianBatchSize  int           `env:"HISTORIAN_BATCH_SIZE" envDefault:"20"`
	HistorianFlushDelay time.Duration `env:"HISTORIAN_FLUSH"      envDefault:"500ms"`
	NotificationChannel string        `env:"NOTIFICATION_CHANNEL" envDefault:"versus_notifications"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch c.GameKind {
	case "grid", "paddle":
	default:
		return fmt.Errorf("unknown GAME_KIND %q", c.GameKind)
	}
	if c.GameKind == c.SiblingKind {
		return fmt.Errorf("SIBLING_GAME_KIND must differ from GAME_KIND (%q)", c.GameKind)
	}
	if c.Cooldown <= 0 || c.MoveTimeout <= 0 || c.OutboundTimeout <= 0 {
		return fmt.Errorf("COOLDOWN, MOVE_TIMEOUT and OUTBOUND_TIMEOUT must be positive")
	}
	if c.GridSize < 3 {
		return fmt.Errorf("GRID_SIZE must be at least 3, got %d", c.GridSize)
	}
	if c.GridMaxMarks < c.GridSize {
		return fmt.Errorf("GRID_MAX_MARKS must be at least GRID_SIZE so a line can be completed")
	}
	if 2*c.GridMaxMarks >= c.GridSize*c.GridSize {
		return fmt.Errorf("GRID_MAX_MARKS too large for a %dx%d board: it must never fill up", c.GridSize, c.GridSize)
	}
	if c.PaddleWinScore <= 0 || c.PaddleTick <= 0 {
		return fmt.Errorf("PADDLE_WIN_SCORE and PADDLE_TICK must be positive")
	}
	if c.TournamentMinParticipants < 1 {
		return fmt.Errorf("TOURNAMENT_MIN_PARTICIPANTS must be at least 1")
	}
	return nil
}
