// Package metadata implements the creation-metadata header codec: a
// comma-separated list of "key base64(value)" pairs. The encoding is an
// external wire contract shared with existing clients and must not change.
package metadata

import (
	"encoding/base64"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Parse decodes a metadata header into a key/value map. Keys without a value
// part map to the empty string. Pairs whose value is not valid base64 are
// rejected; unknown keys are kept so callers can ignore what they don't need.
func Parse(header string) (map[string]string, error) {
	meta := make(map[string]string)
	if strings.TrimSpace(header) == "" {
		return meta, nil
	}

	for _, pair := range strings.Split(header, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		parts := strings.SplitN(pair, " ", 2)
		key := parts[0]
		if key == "" {
			return nil, fmt.Errorf("metadata pair %q has no key", pair)
		}

		if len(parts) == 1 {
			meta[key] = ""
			continue
		}

		value, err := base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("decode metadata value for %q: %w", key, err)
		}
		meta[key] = string(value)
	}

	return meta, nil
}

// Encode serializes a key/value map into the header form. Keys are emitted in
// sorted order so the output is deterministic.
func Encode(meta map[string]string) string {
	keys := make([]string, 0, len(meta))
	for key := range meta {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		value := meta[key]
		if value == "" {
			pairs = append(pairs, key)
			continue
		}
		pairs = append(pairs, key+" "+base64.StdEncoding.EncodeToString([]byte(value)))
	}

	return strings.Join(pairs, ",")
}

// SanitizeFilename reduces a client-declared filename to a safe basename:
// path separators are stripped, control characters removed, and the result is
// never empty. The declared name is display metadata, never a path.
func SanitizeFilename(name string) string {
	// Both separator conventions, clients may run on anything.
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	name = strings.TrimSpace(b.String())

	if name == "" || name == "." || name == ".." || name == "/" {
		return "unnamed"
	}
	return name
}
