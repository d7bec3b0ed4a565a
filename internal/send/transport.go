package send

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/instrctl/internal/protocol/hexcodec"
)

// WriterTransport writes raw frame bytes to W, e.g. a capture file.
type WriterTransport struct {
	W io.Writer
}

func (t WriterTransport) Transmit(ctx context.Context, b []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := t.W.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return io.ErrShortWrite
	}
	return nil
}

// HexLineTransport writes one spaced-hex line per frame, for terminals.
type HexLineTransport struct {
	W   io.Writer
	Now func() time.Time
}

func (t HexLineTransport) Transmit(ctx context.Context, b []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	_, err := fmt.Fprintf(t.W, "%s %s\n", now().Format(time.RFC3339), hexcodec.Spaced(b))
	return err
}
