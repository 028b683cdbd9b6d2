package core

import "sync"

// Constant is a firmware constant exposed to the host through the dictionary.
type Constant struct {
	Name  string
	Value interface{}
}

// Enumeration maps symbolic names to wire values, e.g. motor states.
type Enumeration struct {
	Name   string
	Values []string
}

// Dictionary is the self-describing data dictionary the host fetches in
// chunks over identify. It carries the firmware version, constants,
// enumerations and the full command and response tables, serialized as JSON.
type Dictionary struct {
	mu            sync.RWMutex
	constants     map[string]*Constant
	enumerations  map[string]*Enumeration
	commandReg    *CommandRegistry
	version       string
	buildVersions string
	cachedDict    []byte
}

var globalDictionary = NewDictionary(globalRegistry)

// NewDictionary creates a dictionary bound to a command registry.
func NewDictionary(cmdReg *CommandRegistry) *Dictionary {
	return &Dictionary{
		constants:     make(map[string]*Constant),
		enumerations:  make(map[string]*Enumeration),
		commandReg:    cmdReg,
		version:       "bldc-0.1.0",
		buildVersions: "go-tinygo",
	}
}

// RegisterConstant adds a constant to the global dictionary.
func RegisterConstant(name string, value interface{}) {
	globalDictionary.AddConstant(name, value)
}

// RegisterEnumeration adds an enumeration to the global dictionary.
func RegisterEnumeration(name string, values []string) {
	globalDictionary.AddEnumeration(name, values)
}

// GetGlobalDictionary returns the global dictionary instance.
func GetGlobalDictionary() *Dictionary {
	return globalDictionary
}

// AddConstant adds a constant.
func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = &Constant{Name: name, Value: value}
}

// AddEnumeration adds an enumeration. The values slice is copied; index in
// the slice is the wire value.
func (d *Dictionary) AddEnumeration(name string, values []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	valuesCopy := make([]string, len(values))
	copy(valuesCopy, values)

	d.enumerations[name] = &Enumeration{Name: name, Values: valuesCopy}
}

// SetVersion sets the firmware version string.
func (d *Dictionary) SetVersion(version string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version = version
}

// SetBuildVersions sets the toolchain description string.
func (d *Dictionary) SetBuildVersions(versions string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buildVersions = versions
}

// BuildDictionary serializes and caches the dictionary. Call once at boot
// after all commands, constants and enumerations are registered.
//
// The command tables are fetched before the dictionary lock is taken so the
// registry lock and the dictionary lock are never nested in both orders.
func (d *Dictionary) BuildDictionary() {
	commands, responses := d.commandReg.GetCommandsAndResponses()

	d.mu.Lock()
	defer d.mu.Unlock()

	jsonData := d.buildJSONLocked(commands, responses)
	d.cachedDict = make([]byte, len(jsonData))
	copy(d.cachedDict, jsonData)
}

// Generate returns the serialized dictionary, preferring the cache.
func (d *Dictionary) Generate() []byte {
	d.mu.RLock()
	if d.cachedDict != nil {
		data := d.cachedDict
		d.mu.RUnlock()
		return data
	}
	d.mu.RUnlock()

	commands, responses := d.commandReg.GetCommandsAndResponses()
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buildJSONLocked(commands, responses)
}

// GetChunk returns up to count bytes of the serialized dictionary starting
// at offset. Out-of-range requests return an empty slice; the host treats
// that as end of dictionary.
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	data := d.Generate()

	if offset >= uint32(len(data)) {
		return []byte{}
	}
	end := offset + uint32(count)
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}

	// Copy rather than slice: the cache must not alias an outgoing
	// transmit buffer under TinyGo's collector.
	chunk := make([]byte, end-offset)
	copy(chunk, data[offset:end])
	return chunk
}

// sortStrings is a small insertion sort so the embedded build does not pull
// in the sort package.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// appendTable appends a sorted-by-ID JSON object mapping format strings to
// IDs.
func appendTable(result []byte, table map[string]int) []byte {
	ids := make([]int, 0, len(table))
	for _, id := range table {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}

	first := true
	for _, id := range ids {
		for format, fid := range table {
			if fid != id {
				continue
			}
			if !first {
				result = append(result, ',')
			}
			result = append(result, '"')
			result = append(result, []byte(format)...)
			result = append(result, []byte(`":`)...)
			result = append(result, []byte(itoa(id))...)
			first = false
			break
		}
	}
	return result
}

// buildJSONLocked serializes the dictionary. Built by hand byte by byte; the
// encoding/json package costs too much flash on the MCU targets and the
// schema here is fixed. Caller holds the dictionary lock (read or write).
func (d *Dictionary) buildJSONLocked(commands, responses map[string]int) []byte {
	result := make([]byte, 0, 1024)

	result = append(result, []byte(`{"version":"`)...)
	result = append(result, []byte(d.version)...)
	result = append(result, []byte(`","build_versions":"`)...)
	result = append(result, []byte(d.buildVersions)...)
	result = append(result, []byte(`","config":{`)...)

	constNames := make([]string, 0, len(d.constants))
	for name := range d.constants {
		constNames = append(constNames, name)
	}
	sortStrings(constNames)

	first := true
	for _, name := range constNames {
		c := d.constants[name]
		if !first {
			result = append(result, ',')
		}
		result = append(result, '"')
		result = append(result, []byte(name)...)
		result = append(result, []byte(`":"`)...)
		result = append(result, []byte(valueToString(c.Value))...)
		result = append(result, '"')
		first = false
	}

	result = append(result, []byte(`},"commands":{`)...)
	result = appendTable(result, commands)
	result = append(result, []byte(`},"responses":{`)...)
	result = appendTable(result, responses)
	result = append(result, '}')

	if len(d.enumerations) > 0 {
		result = append(result, []byte(`,"enumerations":{`)...)

		enumNames := make([]string, 0, len(d.enumerations))
		for name := range d.enumerations {
			enumNames = append(enumNames, name)
		}
		sortStrings(enumNames)

		firstEnum := true
		for _, name := range enumNames {
			enum := d.enumerations[name]
			if !firstEnum {
				result = append(result, ',')
			}
			result = append(result, '"')
			result = append(result, []byte(name)...)
			result = append(result, []byte(`":{`)...)

			firstValue := true
			for i, value := range enum.Values {
				if value == "" {
					continue
				}
				if !firstValue {
					result = append(result, ',')
				}
				result = append(result, '"')
				result = append(result, []byte(value)...)
				result = append(result, []byte(`":`)...)
				result = append(result, []byte(itoa(i))...)
				firstValue = false
			}
			result = append(result, '}')
			firstEnum = false
		}
		result = append(result, '}')
	}

	result = append(result, '}')
	return result
}
