package persistence

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Codec converts a snapshot to and from bytes.
type Codec interface {
	Name() string
	Marshal(records []Record) ([]byte, error)
	Unmarshal(data []byte) ([]Record, error)
}

// CodecFor selects a codec from the extension of path.
func CodecFor(path string) (Codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return xmlCodec{}, nil
	case ".yaml", ".yml":
		return yamlCodec{}, nil
	case ".toml":
		return tomlCodec{}, nil
	case ".json", ".jsonc":
		return jsonCodec{}, nil
	case ".cbor":
		return cborCodec{}, nil
	default:
		return nil, fmt.Errorf("persistence: no codec for %q", filepath.Ext(path))
	}
}

// Extensions lists the formats CodecFor understands, one spelling each.
func Extensions() []string {
	return []string{".xml", ".yaml", ".toml", ".json", ".cbor"}
}

type xmlDocument struct {
	XMLName  xml.Name `xml:"ArrayOfCommand"`
	Commands []Record `xml:"Command"`
}

type xmlCodec struct{}

func (xmlCodec) Name() string { return "xml" }

func (xmlCodec) Marshal(records []Record) ([]byte, error) {
	if err := checkXMLText(records); err != nil {
		return nil, err
	}
	body, err := xml.MarshalIndent(xmlDocument{Commands: records}, "", "  ")
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	return append(out, '\n'), nil
}

// checkXMLText rejects strings XML 1.0 cannot carry. encoding/xml would
// otherwise write them as U+FFFD and the snapshot would not read back.
func checkXMLText(records []Record) error {
	for i, r := range records {
		fields := []struct{ name, value string }{
			{"name", r.Name},
			{"head", r.Head},
			{"commandCode", r.CommandCode},
			{"content", r.Content},
			{"end", r.End},
			{"remark", r.Remark},
		}
		for _, f := range fields {
			if !utf8.ValidString(f.value) {
				return fmt.Errorf("record %d %s: invalid UTF-8", i+1, f.name)
			}
			for _, c := range f.value {
				if !isXMLChar(c) {
					return fmt.Errorf("record %d %s: character %U not allowed in XML", i+1, f.name, c)
				}
			}
		}
	}
	return nil
}

func isXMLChar(c rune) bool {
	return c == 0x09 || c == 0x0A || c == 0x0D ||
		(c >= 0x20 && c <= 0xD7FF) ||
		(c >= 0xE000 && c <= 0xFFFD) ||
		(c >= 0x10000 && c <= 0x10FFFF)
}

func (xmlCodec) Unmarshal(data []byte) ([]Record, error) {
	var doc xmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Commands, nil
}

type yamlCodec struct{}

func (yamlCodec) Name() string { return "yaml" }

func (yamlCodec) Marshal(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(document{Version: SnapshotVersion, Commands: records}); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (yamlCodec) Unmarshal(data []byte) ([]Record, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Commands, nil
}

type tomlCodec struct{}

func (tomlCodec) Name() string { return "toml" }

func (tomlCodec) Marshal(records []Record) ([]byte, error) {
	return toml.Marshal(document{Version: SnapshotVersion, Commands: records})
}

func (tomlCodec) Unmarshal(data []byte) ([]Record, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Commands, nil
}

// jsonCodec reads JSON with comments and trailing commas; it writes plain JSON.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(records []Record) ([]byte, error) {
	out, err := json.MarshalIndent(document{Version: SnapshotVersion, Commands: records}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func (jsonCodec) Unmarshal(data []byte) ([]Record, error) {
	var doc document
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, err
	}
	return doc.Commands, nil
}

type cborCodec struct{}

func (cborCodec) Name() string { return "cbor" }

func (cborCodec) Marshal(records []Record) ([]byte, error) {
	return cbor.Marshal(document{Version: SnapshotVersion, Commands: records})
}

func (cborCodec) Unmarshal(data []byte) ([]Record, error) {
	var doc document
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Commands, nil
}
