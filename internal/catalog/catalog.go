package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/danmuck/instrctl/internal/protocol"
	"github.com/danmuck/instrctl/internal/protocol/hexcodec"
)

var (
	ErrUnknownIndex         = errors.New("catalog: unknown command index")
	ErrDuplicateCommandCode = errors.New("catalog: duplicate command code")
	ErrContentDisabled      = errors.New("catalog: content editing disabled")
	ErrDuplicateID          = errors.New("catalog: duplicate definition id")
)

// Catalog is the ordered command list shared by the send path and the
// editing surfaces. It is safe for concurrent use.
type Catalog struct {
	mu   sync.RWMutex
	defs []Definition
}

// New creates an empty catalog; use Load or Replace to populate it.
func New() *Catalog {
	return &Catalog{defs: make([]Definition, 0)}
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.defs)
}

// List returns a copy of all entries in index order.
func (c *Catalog) List() []Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Get returns the entry at a 1-based index.
func (c *Catalog) Get(index int) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 1 || index > len(c.defs) {
		return Definition{}, false
	}
	return c.defs[index-1], true
}

// ByCommandCode finds an entry by command code, ignoring prefix and case.
func (c *Catalog) ByCommandCode(code string) (Definition, bool) {
	key := Definition{CommandCode: code}.CodeKey()
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.defs {
		if d.CodeKey() == key {
			return d, true
		}
	}
	return Definition{}, false
}

// Replace swaps in a whole new list. Entries are validated, missing ids are
// assigned, repeated ids are rejected and indexes are rewritten 1..N in the
// given order. On error the
// catalog is unchanged.
func (c *Catalog) Replace(defs []Definition) error {
	next, err := prepare(defs)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.defs = next
	c.mu.Unlock()
	return nil
}

// Update edits one entry in place. The id and index are preserved whatever
// fn does to them.
func (c *Catalog) Update(index int, fn func(*Definition)) (Definition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 1 || index > len(c.defs) {
		return Definition{}, fmt.Errorf("%w: %d", ErrUnknownIndex, index)
	}
	current := c.defs[index-1]
	edited := current
	fn(&edited)
	edited.ID = current.ID
	edited.Index = current.Index
	if err := edited.Validate(); err != nil {
		return Definition{}, err
	}
	key := edited.CodeKey()
	for i, d := range c.defs {
		if i != index-1 && d.CodeKey() == key {
			return Definition{}, fmt.Errorf("%w: %s", ErrDuplicateCommandCode, edited.CommandCode)
		}
	}
	c.defs[index-1] = edited
	return edited, nil
}

// SetContent stores operator-entered payload hex on an editable entry.
func (c *Catalog) SetContent(index int, content string) (Definition, error) {
	content = strings.TrimSpace(content)
	if content != "" {
		if _, err := hexcodec.Decode(content); err != nil {
			return Definition{}, err
		}
	}
	if d, ok := c.Get(index); ok && !d.ContentEditable && content != "" {
		return Definition{}, fmt.Errorf("%w: %s", ErrContentDisabled, d.CommandCode)
	}
	return c.Update(index, func(d *Definition) {
		d.Content = content
	})
}

func prepare(defs []Definition) ([]Definition, error) {
	next := make([]Definition, 0, len(defs))
	seen := make(map[string]int, len(defs))
	ids := make(map[string]int, len(defs))
	for i, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		key := d.CodeKey()
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: %s at entries %d and %d", ErrDuplicateCommandCode, d.CommandCode, prev, i+1)
		}
		seen[key] = i + 1
		if d.ID == "" {
			d.ID = newID()
		}
		if prev, ok := ids[d.ID]; ok {
			return nil, fmt.Errorf("%w: %s at entries %d and %d", ErrDuplicateID, d.ID, prev, i+1)
		}
		ids[d.ID] = i + 1
		d.Index = i + 1
		next = append(next, d)
	}
	return next, nil
}

// IsInvalid reports whether err is a definition-level rejection.
func IsInvalid(err error) bool {
	return errors.Is(err, protocol.ErrInvalidDefinition) ||
		errors.Is(err, ErrDuplicateCommandCode) ||
		errors.Is(err, ErrDuplicateID) ||
		errors.Is(err, ErrContentDisabled)
}
