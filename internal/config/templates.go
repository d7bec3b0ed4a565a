package config

import (
	"fmt"
	"os"
)

func Template() string {
	return stationTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(stationTemplate), 0o600)
}

const stationTemplate = `# instrctl station configuration.
# Every key may be overridden by INSTRCTL_<KEY> (upper case), e.g. INSTRCTL_BOARD_ID=3.

# Catalog snapshot is stored as <store_dir>/<owner>CommandList.<store_format>.
owner = "ControlDemoViewModel"
store_dir = "."
# xml | yaml | toml | json | cbor
store_format = "xml"

# Frame markers, hex.
head = "0xEB90"
tail = "0xDEAD"

# Target board address, 0..255.
board_id = 0

# declared: send the catalog length verbatim.
# strict: refuse content whose size differs from the declared length.
length_policy = "declared"

http_addr = "127.0.0.1:9080"
cors_origins = ["http://localhost:3000"]
journal_size = 500

# Bearer token required on mutating API calls; empty leaves the API open.
api_token = ""
`
