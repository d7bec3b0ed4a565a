package catalog

import (
	"fmt"
	"strings"

	"github.com/danmuck/instrctl/internal/protocol"
	"github.com/danmuck/instrctl/internal/protocol/hexcodec"
	"github.com/google/uuid"
)

// CommandCodeLen is the decoded size of a command code.
const CommandCodeLen = 2

// Definition is one catalog entry.
type Definition struct {
	ID              string `json:"id"`
	Index           int    `json:"index"`
	Name            string `json:"name"`
	Head            string `json:"head"`
	Length          int16  `json:"length"`
	CommandCode     string `json:"commandCode"`
	Content         string `json:"content"`
	ContentEditable bool   `json:"contentEditable"`
	Tail            string `json:"tail"`
	Remark          string `json:"remark"`
}

func newID() string {
	return uuid.NewString()
}

// Validate checks the fields the frame encoder depends on.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", protocol.ErrInvalidDefinition)
	}
	if err := requireMarker("head", d.Head); err != nil {
		return err
	}
	if err := requireMarker("tail", d.Tail); err != nil {
		return err
	}
	if _, err := hexcodec.DecodeN(d.CommandCode, CommandCodeLen); err != nil {
		return fmt.Errorf("%w: command code: %w", protocol.ErrInvalidDefinition, err)
	}
	if d.Length == 0 && d.ContentEditable {
		return fmt.Errorf("%w: %s declares no payload but allows content", protocol.ErrInvalidDefinition, d.CommandCode)
	}
	content := strings.TrimSpace(d.Content)
	if !d.ContentEditable && content != "" {
		return fmt.Errorf("%w: %s carries content but content editing is disabled", protocol.ErrInvalidDefinition, d.CommandCode)
	}
	if content != "" {
		if _, err := hexcodec.Decode(content); err != nil {
			return fmt.Errorf("%w: %s content: %w", protocol.ErrInvalidDefinition, d.CommandCode, err)
		}
	}
	return nil
}

// CodeKey normalises a command code for uniqueness checks.
func (d Definition) CodeKey() string {
	b, err := hexcodec.Decode(d.CommandCode)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(d.CommandCode))
	}
	return hexcodec.Encode(b)
}

func requireMarker(field, value string) error {
	b, err := hexcodec.Decode(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", protocol.ErrInvalidDefinition, field, err)
	}
	if len(b) == 0 {
		return fmt.Errorf("%w: %s marker is empty", protocol.ErrInvalidDefinition, field)
	}
	return nil
}
