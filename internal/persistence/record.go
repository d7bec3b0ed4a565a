package persistence

// Record is the on-disk form of one command definition.
type Record struct {
	Index           int    `xml:"index" json:"index" yaml:"index" toml:"index" cbor:"index"`
	Name            string `xml:"name" json:"name" yaml:"name" toml:"name" cbor:"name"`
	Head            string `xml:"head" json:"head" yaml:"head" toml:"head" cbor:"head"`
	Length          int16  `xml:"length" json:"length" yaml:"length" toml:"length" cbor:"length"`
	CommandCode     string `xml:"commandCode" json:"commandCode" yaml:"commandCode" toml:"commandCode" cbor:"commandCode"`
	Content         string `xml:"content" json:"content" yaml:"content" toml:"content" cbor:"content"`
	ContentEditable bool   `xml:"contentEditable" json:"contentEditable" yaml:"contentEditable" toml:"contentEditable" cbor:"contentEditable"`
	End             string `xml:"end" json:"end" yaml:"end" toml:"end" cbor:"end"`
	Remark          string `xml:"remark" json:"remark" yaml:"remark" toml:"remark" cbor:"remark"`
}

// SnapshotVersion is written into formats that carry a document header.
const SnapshotVersion = 1

type document struct {
	Version  int      `json:"version" yaml:"version" toml:"version" cbor:"version"`
	Commands []Record `json:"commands" yaml:"commands" toml:"commands" cbor:"commands"`
}
