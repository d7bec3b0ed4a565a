package catalog

// DefaultHead and DefaultTail are the stock frame markers.
const (
	DefaultHead = "0xEB90"
	DefaultTail = "0xDEAD"
)

type defaultEntry struct {
	name     string
	remark   string
	code     string
	length   int16
	editable bool
}

var defaultEntries = []defaultEntry{
	{name: "启动信号", remark: "start signal", code: "0x0119"},
	{name: "逻辑复位", remark: "logic reset", code: "0x0120"},
	{name: "TB大小", remark: "TB size", code: "0x0122", length: 4, editable: true},
	{name: "Cb配置", remark: "Cb configuration", code: "0x0124", length: 4, editable: true},
	{name: "填0数", remark: "fill-in zeros", code: "0x0125", length: 2, editable: true},
	{name: "LDPC编码配置", remark: "LDPC encoding configuration", code: "0x0126", length: 2, editable: true},
	{name: "LDPC速率匹配设置", remark: "LDPC rate matching settings", code: "0x0128", length: 4, editable: true},
	{name: "交织设置", remark: "interleaving settings", code: "0x0129", length: 4, editable: true},
	{name: "扰码随机种子", remark: "scrambling random seed", code: "0x012b", length: 8, editable: true},
	{name: "Fft长度", remark: "FFT length", code: "0x012c", length: 2, editable: true},
	{name: "Dmrs设置", remark: "DMRS settings", code: "0x012d", length: 25, editable: true},
	{name: "Cp配置", remark: "CP settings", code: "0x012e", length: 20, editable: true},
}

// DefaultCount is the size of the built-in set.
const DefaultCount = 12

// Defaults builds the built-in command set with fresh ids and indexes 1..12.
// Empty markers fall back to DefaultHead/DefaultTail.
func Defaults(head, tail string) []Definition {
	if head == "" {
		head = DefaultHead
	}
	if tail == "" {
		tail = DefaultTail
	}
	defs := make([]Definition, 0, len(defaultEntries))
	for i, e := range defaultEntries {
		defs = append(defs, Definition{
			ID:              newID(),
			Index:           i + 1,
			Name:            e.name,
			Head:            head,
			Length:          e.length,
			CommandCode:     e.code,
			ContentEditable: e.editable,
			Tail:            tail,
			Remark:          e.remark,
		})
	}
	return defs
}
