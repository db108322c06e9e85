package shortcut

import (
	"encoding/binary"
)

// VDF type tags as used in Steam's binary shortcuts.vdf format.
const (
	vdfTypeNested = 0x00
	vdfTypeString = 0x01
	vdfTypeInt32  = 0x02
	vdfTypeEnd    = 0x08
)

// ParseVDF decodes a binary shortcuts.vdf payload into a flat list of
// shortcut entries. The format has no formal grammar; this follows the
// tagged key/value structure Steam actually writes: a top-level "shortcuts"
// object skipped by scanning to the first 0x00, then one nested object per
// shortcut containing type-tagged key/value pairs terminated by 0x08.
// Malformed or truncated input yields whatever shortcuts were fully parsed
// before the problem was hit, never an error — this mirrors how the agent
// only ever uses the result for informational display.
func ParseVDF(data []byte) []ShortcutEntry {
	pos := skipHeader(data)
	var entries []ShortcutEntry

	for pos < len(data) {
		b := data[pos]
		if b == vdfTypeEnd {
			break
		}
		if b != vdfTypeNested {
			pos++
			continue
		}
		pos++ // consume the 0x00 marking the start of this shortcut

		// Each shortcut is keyed by its index as a null-terminated string
		// ("0", "1", ...); skip it.
		_, next, ok := readCString(data, pos)
		if !ok {
			break
		}
		pos = next

		fields, next, ok := parseFields(data, pos)
		if !ok {
			break
		}
		pos = next
		entries = append(entries, fieldsToEntry(fields))
	}

	return entries
}

// skipHeader advances past the outer "shortcuts" object wrapper, stopping
// at the first 0x00 byte after position 0.
func skipHeader(data []byte) int {
	for i := 1; i < len(data); i++ {
		if data[i] == 0x00 {
			return i
		}
	}
	return len(data)
}

// parseFields reads type-tagged key/value pairs until a 0x08 terminator,
// returning the raw field map and the position just past the terminator.
func parseFields(data []byte, pos int) (map[string]any, int, bool) {
	fields := map[string]any{}
	depth := 0

	for pos < len(data) {
		tag := data[pos]
		pos++

		if tag == vdfTypeEnd {
			if depth == 0 {
				return fields, pos, true
			}
			depth--
			continue
		}

		key, next, ok := readCString(data, pos)
		if !ok {
			return fields, pos, false
		}
		pos = next

		switch tag {
		case vdfTypeString:
			val, next, ok := readCString(data, pos)
			if !ok {
				return fields, pos, false
			}
			fields[key] = val
			pos = next
		case vdfTypeInt32:
			if pos+4 > len(data) {
				return fields, pos, false
			}
			fields[key] = int32(binary.LittleEndian.Uint32(data[pos : pos+4]))
			pos += 4
		case vdfTypeNested:
			depth++
		default:
			return fields, pos, false
		}
	}

	return fields, pos, false
}

// readCString reads a NUL-terminated string starting at pos.
func readCString(data []byte, pos int) (string, int, bool) {
	start := pos
	for pos < len(data) {
		if data[pos] == 0x00 {
			return string(data[start:pos]), pos + 1, true
		}
		pos++
	}
	return "", pos, false
}

func fieldsToEntry(fields map[string]any) ShortcutEntry {
	name, _ := fields["appname"].(string)
	if name == "" {
		name, _ = fields["name"].(string)
	}
	exe, _ := fields["exe"].(string)
	startDir, _ := fields["startdir"].(string)
	launchOptions, _ := fields["launchoptions"].(string)

	var appID uint32
	if v, ok := fields["appid"].(int32); ok {
		appID = uint32(v)
	}
	var lastPlayed int64
	if v, ok := fields["lastplaytime"].(int32); ok {
		lastPlayed = int64(v)
	}

	return ShortcutEntry{
		AppID:         appID,
		Name:          name,
		Exe:           exe,
		StartDir:      startDir,
		LaunchOptions: launchOptions,
		LastPlayed:    lastPlayed,
	}
}
