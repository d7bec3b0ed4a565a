package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/instrctl/internal/catalog"
	"github.com/danmuck/instrctl/internal/config"
	"github.com/danmuck/instrctl/internal/logging"
	"github.com/danmuck/instrctl/internal/persistence"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

// session is the application context one command runs against.
type session struct {
	cfg     config.Config
	store   *persistence.FileStore
	catalog *catalog.Catalog
	source  catalog.Source
	logger  zerolog.Logger
}

type commonFlags struct {
	configPath string
	board      int
}

func (f *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "station config file (TOML)")
	fs.IntVar(&f.board, "board", 0, "board address override, 0..255")
}

func openSession(fs *pflag.FlagSet, flags commonFlags) (*session, error) {
	logger := logging.InitRuntime(app)
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if fs.Changed("board") {
		cfg.BoardID = flags.board
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	store, err := persistence.NewFileStore(cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("open catalog store: %w", err)
	}
	cat, source := catalog.Load(store, cfg.Markers(), logger)
	return &session{cfg: cfg, store: store, catalog: cat, source: source, logger: logger}, nil
}

// resolveDefinition looks up the single positional argument, either a
// 1-based index or a 0x-prefixed command code.
func resolveDefinition(fs *pflag.FlagSet, cat *catalog.Catalog) (catalog.Definition, error) {
	if fs.NArg() != 1 {
		return catalog.Definition{}, fmt.Errorf("expected exactly one catalog index or command code")
	}
	arg := strings.TrimSpace(fs.Arg(0))
	if strings.HasPrefix(arg, "0x") || strings.HasPrefix(arg, "0X") {
		def, ok := cat.ByCommandCode(arg)
		if !ok {
			return catalog.Definition{}, fmt.Errorf("%w: command code %s", catalog.ErrUnknownIndex, arg)
		}
		return def, nil
	}
	index, err := strconv.Atoi(arg)
	if err != nil {
		return catalog.Definition{}, fmt.Errorf("invalid index %q", arg)
	}
	def, ok := cat.Get(index)
	if !ok {
		return catalog.Definition{}, fmt.Errorf("%w: %d", catalog.ErrUnknownIndex, index)
	}
	return def, nil
}
