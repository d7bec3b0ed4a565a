package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/danmuck/instrctl/internal/auth"
	"github.com/danmuck/instrctl/internal/catalog"
	"github.com/danmuck/instrctl/internal/config"
	"github.com/danmuck/instrctl/internal/journal"
	"github.com/danmuck/instrctl/internal/logging"
	"github.com/danmuck/instrctl/internal/persistence"
	"github.com/danmuck/instrctl/internal/protocol/frame"
	"github.com/danmuck/instrctl/internal/protocol/hexcodec"
	"github.com/danmuck/instrctl/internal/send"
	"github.com/danmuck/instrctl/internal/server"
	"github.com/spf13/pflag"
)

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	return fs
}

func runList(args []string, stdout io.Writer) error {
	var flags commonFlags
	fs := newFlagSet("list")
	flags.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := openSession(fs, flags)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "#\tCODE\tLEN\tEDIT\tNAME\tCONTENT\tREMARK\n")
	for _, d := range s.catalog.List() {
		edit := "-"
		if d.ContentEditable {
			edit = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\t%s\n", d.Index, d.CommandCode, d.Length, edit, d.Name, d.Content, d.Remark)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "source=%s store=%s\n", s.source, s.store.Path())
	return nil
}

type frameFlags struct {
	commonFlags
	content string
}

func (f *frameFlags) register(fs *pflag.FlagSet) {
	f.commonFlags.register(fs)
	fs.StringVar(&f.content, "content", "", "payload hex for editable commands (defaults to the stored content)")
}

// selectDefinition resolves the catalog entry and applies a --content override.
func selectDefinition(fs *pflag.FlagSet, s *session, content string) (catalog.Definition, error) {
	def, err := resolveDefinition(fs, s.catalog)
	if err != nil {
		return catalog.Definition{}, err
	}
	if fs.Changed("content") {
		content = strings.TrimSpace(content)
		if content != "" && !def.ContentEditable {
			return catalog.Definition{}, fmt.Errorf("%w: %s", catalog.ErrContentDisabled, def.CommandCode)
		}
		def.Content = content
	}
	return def, nil
}

func runEncode(args []string, stdout io.Writer) error {
	var flags frameFlags
	var out string
	fs := newFlagSet("encode")
	flags.register(fs)
	fs.StringVar(&out, "out", "", "also write the raw frame bytes to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := openSession(fs, flags.commonFlags)
	if err != nil {
		return err
	}
	def, err := selectDefinition(fs, s, flags.content)
	if err != nil {
		return err
	}
	p := send.New(s.cfg.SendConfig(), send.Deps{Logger: s.logger})
	f, err := p.Build(def)
	if err != nil {
		return err
	}
	raw, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	if out != "" {
		if err := writeFrameFile(out, f); err != nil {
			return err
		}
	}
	fmt.Fprintln(stdout, hexcodec.Spaced(raw))
	return nil
}

func writeFrameFile(path string, f frame.Frame) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open frame output: %w", err)
	}
	if err := frame.WriteFrame(file, f); err != nil {
		_ = file.Close()
		return fmt.Errorf("write frame output: %w", err)
	}
	return file.Close()
}

// stderrSink shows operator-facing send failures.
type stderrSink struct {
	w io.Writer
}

func (s stderrSink) Report(message string) {
	fmt.Fprintf(s.w, "%s: error: %s\n", app, message)
}

func runSend(args []string, stdout, stderr io.Writer) error {
	var flags frameFlags
	var framesOut string
	fs := newFlagSet("send")
	flags.register(fs)
	fs.StringVar(&framesOut, "frames-out", "", "append raw frame bytes to this file instead of printing hex")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := openSession(fs, flags.commonFlags)
	if err != nil {
		return err
	}
	def, err := selectDefinition(fs, s, flags.content)
	if err != nil {
		return err
	}

	transport, closeTransport, err := openTransport(framesOut, stdout)
	if err != nil {
		return err
	}
	defer closeTransport()

	j := journal.New(1)
	p := send.New(s.cfg.SendConfig(), send.Deps{
		Records:   j,
		Errors:    stderrSink{w: stderr},
		Transport: transport,
		Logger:    s.logger,
	})
	if _, err := p.Send(context.Background(), def); err != nil {
		return errReported
	}
	if framesOut != "" {
		for _, rec := range j.Snapshot() {
			fmt.Fprintln(stdout, rec.Text)
		}
	}
	return nil
}

func openTransport(framesOut string, stdout io.Writer) (send.Transport, func(), error) {
	if framesOut == "" {
		return send.HexLineTransport{W: stdout}, func() {}, nil
	}
	f, err := os.OpenFile(framesOut, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open frames output: %w", err)
	}
	return send.WriterTransport{W: f}, func() { _ = f.Close() }, nil
}

func runDefaults(args []string, stdout io.Writer) error {
	var flags commonFlags
	var out string
	var force bool
	fs := newFlagSet("defaults")
	flags.register(fs)
	fs.StringVar(&out, "out", "", "target store file; the extension picks the format (defaults to the configured store)")
	fs.BoolVar(&force, "force", false, "overwrite an existing store file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger := logging.InitRuntime(app)
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if out == "" {
		out = cfg.StorePath()
	}
	if !force {
		if _, err := os.Stat(out); err == nil {
			return fmt.Errorf("store already exists: %s (use --force)", out)
		}
	}
	store, err := persistence.NewFileStore(out)
	if err != nil {
		return err
	}
	c := catalog.New()
	if err := c.Replace(catalog.Defaults(cfg.Head, cfg.Tail)); err != nil {
		return err
	}
	if err := catalog.Save(store, c, logger); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d commands to %s (%s)\n", c.Len(), out, store.Format())
	return nil
}

func runServe(args []string, stdout io.Writer) error {
	var flags commonFlags
	var framesOut string
	var addr string
	fs := newFlagSet("serve")
	flags.register(fs)
	fs.StringVar(&addr, "addr", "", "listen address (overrides http_addr)")
	fs.StringVar(&framesOut, "frames-out", "", "append raw frame bytes to this file instead of printing hex")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := openSession(fs, flags)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = s.cfg.HTTPAddr
	}

	transport, closeTransport, err := openTransport(framesOut, stdout)
	if err != nil {
		return err
	}
	defer closeTransport()

	j := journal.New(s.cfg.JournalSize)
	p := send.New(s.cfg.SendConfig(), send.Deps{
		Records:   j,
		Errors:    j,
		Transport: transport,
		Logger:    s.logger,
	})
	opts := server.Options{
		Node:        app,
		CorsOrigins: s.cfg.CorsOrigins,
		Catalog:     s.catalog,
		Store:       s.store,
		Pipeline:    p,
		Journal:     j,
		Markers:     s.cfg.Markers(),
		Logger:      s.logger,
	}
	if s.cfg.APIToken != "" {
		opts.Auth = auth.StaticToken{Token: s.cfg.APIToken}
	}
	srv := server.New(opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// Mutating routes save as they go; a defaults fallback is never written back.
	return srv.Run(ctx, addr)
}

func runConfigGen(args []string, stdout io.Writer) error {
	var output string
	var force, validate bool
	fs := newFlagSet("configgen")
	fs.StringVar(&output, "output", "instrctl.toml", "config path to write or validate")
	fs.BoolVar(&force, "force", false, "overwrite existing config file")
	fs.BoolVar(&validate, "validate", false, "validate an existing config file instead of writing one")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if validate {
		cfg, err := config.Load(output)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "validated %s (store %s)\n", output, cfg.StorePath())
		return nil
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := config.WriteTemplate(output, force); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", output)
	return nil
}

