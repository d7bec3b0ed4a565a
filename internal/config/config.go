package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/danmuck/instrctl/internal/catalog"
	"github.com/danmuck/instrctl/internal/persistence"
	"github.com/danmuck/instrctl/internal/protocol/hexcodec"
	"github.com/danmuck/instrctl/internal/send"
)

// EnvPrefix namespaces environment overrides, e.g. INSTRCTL_BOARD_ID.
const EnvPrefix = "INSTRCTL_"

// Config is the deployment configuration of one operator station.
type Config struct {
	Owner        string   `toml:"owner" env:"OWNER"`
	Head         string   `toml:"head" env:"HEAD"`
	Tail         string   `toml:"tail" env:"TAIL"`
	BoardID      int      `toml:"board_id" env:"BOARD_ID"`
	StoreDir     string   `toml:"store_dir" env:"STORE_DIR"`
	StoreFormat  string   `toml:"store_format" env:"STORE_FORMAT"`
	LengthPolicy string   `toml:"length_policy" env:"LENGTH_POLICY"`
	HTTPAddr     string   `toml:"http_addr" env:"HTTP_ADDR"`
	CorsOrigins  []string `toml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	JournalSize  int      `toml:"journal_size" env:"JOURNAL_SIZE"`

	// APIToken, when set, is required as a bearer token on mutating API calls.
	APIToken string `toml:"api_token" env:"API_TOKEN"`
}

func Default() Config {
	return Config{
		Owner:        "ControlDemoViewModel",
		Head:         catalog.DefaultHead,
		Tail:         catalog.DefaultTail,
		BoardID:      0,
		StoreDir:     ".",
		StoreFormat:  "xml",
		LengthPolicy: string(send.LengthPolicyDeclared),
		HTTPAddr:     "127.0.0.1:9080",
		CorsOrigins:  []string{"http://localhost:3000"},
		JournalSize:  500,
	}
}

// Load reads path over the defaults, applies INSTRCTL_* overrides and
// validates. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			return Config{}, fmt.Errorf("config parse failed (%s): unknown keys %s", path, strings.Join(keys, ", "))
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("config env overrides: %w", err)
	}
	cfg.StoreFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.StoreFormat), "."))
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Owner) == "" {
		return fmt.Errorf("config missing owner")
	}
	for field, marker := range map[string]string{"head": cfg.Head, "tail": cfg.Tail} {
		b, err := hexcodec.Decode(marker)
		if err != nil {
			return fmt.Errorf("config %s invalid: %w", field, err)
		}
		if len(b) == 0 {
			return fmt.Errorf("config %s is empty", field)
		}
	}
	if cfg.BoardID < 0 || cfg.BoardID > 0xFF {
		return fmt.Errorf("config board_id %d out of range [0, 255]", cfg.BoardID)
	}
	if _, err := persistence.CodecFor("x." + cfg.StoreFormat); err != nil {
		return fmt.Errorf("config store_format invalid: %w", err)
	}
	if _, err := send.ParseLengthPolicy(cfg.LengthPolicy); err != nil {
		return fmt.Errorf("config length_policy invalid: %w", err)
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		return fmt.Errorf("config missing http_addr")
	}
	if cfg.JournalSize < 0 {
		return fmt.Errorf("config journal_size must not be negative")
	}
	return nil
}

// StorePath is where the catalog snapshot lives.
func (c Config) StorePath() string {
	return filepath.Join(c.StoreDir, persistence.StoreName(c.Owner, "."+c.StoreFormat))
}

func (c Config) Markers() catalog.Markers {
	return catalog.Markers{Head: c.Head, Tail: c.Tail}
}

// SendConfig assumes a validated Config.
func (c Config) SendConfig() send.Config {
	policy, _ := send.ParseLengthPolicy(c.LengthPolicy)
	return send.Config{Board: byte(c.BoardID), LengthPolicy: policy}
}
