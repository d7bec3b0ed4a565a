package send

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/instrctl/internal/catalog"
	"github.com/danmuck/instrctl/internal/observability"
	"github.com/danmuck/instrctl/internal/protocol"
	"github.com/danmuck/instrctl/internal/protocol/frame"
	"github.com/danmuck/instrctl/internal/protocol/hexcodec"
	"github.com/rs/zerolog"
)

// RecordSink receives the operator-visible message log.
type RecordSink interface {
	Append(at time.Time, text string)
}

// ErrorSink receives operator-facing failure messages.
type ErrorSink interface {
	Report(message string)
}

// Transport carries an encoded frame to the instrument.
type Transport interface {
	Transmit(ctx context.Context, frame []byte) error
}

// LengthPolicy decides what happens when content size differs from the
// declared length.
type LengthPolicy string

const (
	// LengthPolicyDeclared sends the declared length verbatim.
	LengthPolicyDeclared LengthPolicy = "declared"
	// LengthPolicyStrict rejects the send with protocol.ErrLengthMismatch.
	LengthPolicyStrict LengthPolicy = "strict"
)

func ParseLengthPolicy(raw string) (LengthPolicy, error) {
	switch LengthPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", LengthPolicyDeclared:
		return LengthPolicyDeclared, nil
	case LengthPolicyStrict:
		return LengthPolicyStrict, nil
	default:
		return "", fmt.Errorf("send: unknown length policy %q", raw)
	}
}

// RecordPrefix starts every record line written for a sent frame.
const RecordPrefix = "send: "

type Config struct {
	Board        byte
	LengthPolicy LengthPolicy
}

// Deps are the collaborators a pipeline reports to. Nil sinks discard.
type Deps struct {
	Records   RecordSink
	Errors    ErrorSink
	Transport Transport
	Now       func() time.Time
	Logger    zerolog.Logger
}

// Result describes one transmitted frame.
type Result struct {
	Definition     catalog.Definition
	Frame          []byte
	PayloadLen     int
	LengthMismatch bool
	SentAt         time.Time
}

type Pipeline struct {
	mu   sync.Mutex
	cfg  Config
	deps Deps
}

func New(cfg Config, deps Deps) *Pipeline {
	if cfg.LengthPolicy == "" {
		cfg.LengthPolicy = LengthPolicyDeclared
	}
	if deps.Records == nil {
		deps.Records = discard{}
	}
	if deps.Errors == nil {
		deps.Errors = discard{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{cfg: cfg, deps: deps}
}

// SetTransport attaches or detaches (nil) the transport.
func (p *Pipeline) SetTransport(t Transport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deps.Transport = t
}

func (p *Pipeline) Board() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.Board
}

// Build decodes def into a frame without sending it.
func (p *Pipeline) Build(def catalog.Definition) (frame.Frame, error) {
	p.mu.Lock()
	cfg := p.cfg
	p.mu.Unlock()
	f, _, err := build(cfg, def)
	return f, err
}

// Preview returns the bytes Send would transmit for def.
func (p *Pipeline) Preview(def catalog.Definition) ([]byte, error) {
	f, err := p.Build(def)
	if err != nil {
		return nil, err
	}
	return encode(f), nil
}

// Send encodes def, logs it to the record sink and transmits it.
func (p *Pipeline) Send(ctx context.Context, def catalog.Definition) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deps.Transport == nil {
		return Result{}, p.fail(def, fmt.Errorf("%w: no connected instrument transport", protocol.ErrResolution))
	}

	f, mismatch, err := build(p.cfg, def)
	if err != nil {
		return Result{}, p.fail(def, err)
	}
	out := encode(f)
	now := p.deps.Now()

	p.deps.Records.Append(now, RecordPrefix+hexcodec.Spaced(out))
	if err := p.deps.Transport.Transmit(ctx, out); err != nil {
		return Result{}, p.fail(def, fmt.Errorf("send: transmit %s: %w", def.CommandCode, err))
	}

	observability.RecordFrameSent(def.CommandCode, len(out))
	event := p.deps.Logger.Debug()
	if mismatch {
		event = p.deps.Logger.Warn().Int16("declared", def.Length).Int("payload", len(f.Payload))
	}
	event.
		Int("index", def.Index).
		Str("command_code", def.CommandCode).
		Int("bytes", len(out)).
		Msg("send.Pipeline.Send transmitted")

	return Result{
		Definition:     def,
		Frame:          out,
		PayloadLen:     len(f.Payload),
		LengthMismatch: mismatch,
		SentAt:         now,
	}, nil
}

func (p *Pipeline) fail(def catalog.Definition, err error) error {
	kind := ErrorKind(err)
	observability.RecordSendFailure(kind)
	p.deps.Logger.Warn().
		Err(err).
		Str("kind", kind).
		Int("index", def.Index).
		Str("command_code", def.CommandCode).
		Msg("send.Pipeline.Send rejected")
	p.deps.Errors.Report(err.Error())
	return err
}

// ErrorKind labels err for metrics and API responses.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, protocol.ErrFormat):
		return "format"
	case errors.Is(err, protocol.ErrLengthMismatch):
		return "length"
	case errors.Is(err, protocol.ErrResolution):
		return "resolution"
	default:
		return "transport"
	}
}

func build(cfg Config, def catalog.Definition) (frame.Frame, bool, error) {
	head, err := hexcodec.Decode(def.Head)
	if err != nil {
		return frame.Frame{}, false, fmt.Errorf("send: head: %w", err)
	}
	tail, err := hexcodec.Decode(def.Tail)
	if err != nil {
		return frame.Frame{}, false, fmt.Errorf("send: tail: %w", err)
	}
	code, err := hexcodec.DecodeN(def.CommandCode, catalog.CommandCodeLen)
	if err != nil {
		return frame.Frame{}, false, fmt.Errorf("send: command code: %w", err)
	}
	var payload []byte
	if strings.TrimSpace(def.Content) != "" {
		payload, err = hexcodec.Decode(def.Content)
		if err != nil {
			return frame.Frame{}, false, fmt.Errorf("send: content: %w", err)
		}
	}

	mismatch := len(payload) != int(def.Length)
	if mismatch && cfg.LengthPolicy == LengthPolicyStrict {
		return frame.Frame{}, true, fmt.Errorf("%w: %s declares %d bytes, content has %d",
			protocol.ErrLengthMismatch, def.CommandCode, def.Length, len(payload))
	}

	return frame.Frame{
		Head:    head,
		Length:  def.Length,
		Board:   cfg.Board,
		Command: code,
		Payload: payload,
		Tail:    tail,
	}, mismatch, nil
}

func encode(f frame.Frame) []byte {
	return frame.Encode(f.Head, frame.LengthField(f.Length), f.Board, f.Command, f.Payload, f.Tail)
}

type discard struct{}

func (discard) Append(time.Time, string) {}
func (discard) Report(string)            {}
