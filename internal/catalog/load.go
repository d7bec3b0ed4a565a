package catalog

import (
	"github.com/danmuck/instrctl/internal/observability"
	"github.com/danmuck/instrctl/internal/persistence"
	"github.com/rs/zerolog"
)

// Source says where a loaded catalog came from.
type Source string

const (
	SourcePersisted Source = "persisted"
	SourceDefaults  Source = "defaults"
)

// Markers are the deployment head/tail strings used for defaults and for
// persisted entries that leave them blank.
type Markers struct {
	Head string
	Tail string
}

// Load builds the session catalog from store, falling back to the default
// set when the store is absent, unreadable or holds no valid entry. It never
// fails.
func Load(store persistence.Store, markers Markers, logger zerolog.Logger) (*Catalog, Source) {
	c := New()
	source := SourceDefaults

	records, err := store.Load()
	if err != nil {
		logger.Warn().Err(err).Str("path", store.Path()).Msg("catalog.Load store unreadable, using defaults")
	}
	if defs := fromRecords(records, markers, logger); len(defs) > 0 {
		if err := c.Replace(defs); err != nil {
			logger.Warn().Err(err).Msg("catalog.Load persisted entries rejected, using defaults")
		} else {
			source = SourcePersisted
		}
	}
	if source == SourceDefaults {
		if err := c.Replace(Defaults(markers.Head, markers.Tail)); err != nil {
			logger.Error().Err(err).
				Str("head", markers.Head).
				Str("tail", markers.Tail).
				Msg("catalog.Load markers rejected, using stock markers")
			_ = c.Replace(Defaults(DefaultHead, DefaultTail))
		}
	}

	observability.RecordCatalogLoad(string(source))
	logger.Info().
		Str("path", store.Path()).
		Str("source", string(source)).
		Int("commands", c.Len()).
		Msg("catalog.Load ready")
	return c, source
}

// Save writes the whole catalog to store. Failures are logged and returned;
// the in-memory catalog stays authoritative either way.
func Save(store persistence.Store, c *Catalog, logger zerolog.Logger) error {
	defs := c.List()
	err := store.Save(ToRecords(defs))
	observability.RecordCatalogSave(err == nil)
	if err != nil {
		logger.Error().Err(err).Str("path", store.Path()).Msg("catalog.Save failed")
		return err
	}
	logger.Debug().Str("path", store.Path()).Int("commands", len(defs)).Msg("catalog.Save complete")
	return nil
}

// ToRecords converts definitions to their persisted form.
func ToRecords(defs []Definition) []persistence.Record {
	out := make([]persistence.Record, 0, len(defs))
	for _, d := range defs {
		out = append(out, persistence.Record{
			Index:           d.Index,
			Name:            d.Name,
			Head:            d.Head,
			Length:          d.Length,
			CommandCode:     d.CommandCode,
			Content:         d.Content,
			ContentEditable: d.ContentEditable,
			End:             d.Tail,
			Remark:          d.Remark,
		})
	}
	return out
}

// fromRecords keeps valid, unique entries in file order and drops the rest.
func fromRecords(records []persistence.Record, markers Markers, logger zerolog.Logger) []Definition {
	defs := make([]Definition, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, r := range records {
		d := Definition{
			ID:              newID(),
			Name:            r.Name,
			Head:            r.Head,
			Length:          r.Length,
			CommandCode:     r.CommandCode,
			Content:         r.Content,
			ContentEditable: r.ContentEditable,
			Tail:            r.End,
			Remark:          r.Remark,
		}
		if d.Head == "" {
			d.Head = markers.Head
		}
		if d.Tail == "" {
			d.Tail = markers.Tail
		}
		if err := d.Validate(); err != nil {
			logger.Warn().Err(err).Int("entry", i+1).Msg("catalog.Load dropping invalid entry")
			continue
		}
		key := d.CodeKey()
		if seen[key] {
			logger.Warn().Int("entry", i+1).Str("command_code", d.CommandCode).Msg("catalog.Load dropping duplicate entry")
			continue
		}
		seen[key] = true
		defs = append(defs, d)
	}
	return defs
}
