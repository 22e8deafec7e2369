package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// MappingEntry pairs a source table with its destination table or collection.
type MappingEntry struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// NameMapping is the ordered list of tables one run moves. Order is the
// migration sequence.
type NameMapping []MappingEntry

// NewNameMapping builds a mapping from a plain map. Go maps are unordered,
// so entries are sorted by source name to keep runs deterministic.
func NewNameMapping(m map[string]string) NameMapping {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make(NameMapping, 0, len(keys))
	for _, k := range keys {
		out = append(out, MappingEntry{Source: k, Target: m[k]})
	}
	return out
}

// ParseMappingPairs parses "source=target" pairs. A bare "name" maps a table
// onto the same name.
func ParseMappingPairs(pairs []string) (NameMapping, error) {
	out := make(NameMapping, 0, len(pairs))
	for _, p := range pairs {
		src, dst, found := strings.Cut(p, "=")
		src, dst = strings.TrimSpace(src), strings.TrimSpace(dst)
		if !found {
			dst = src
		}
		if src == "" || dst == "" {
			return nil, fmt.Errorf("invalid mapping %q, expected source=target", p)
		}
		out = append(out, MappingEntry{Source: src, Target: dst})
	}
	return out, out.Validate()
}

func (m NameMapping) Validate() error {
	if len(m) == 0 {
		return errors.New("name mapping is empty")
	}
	seen := make(map[string]struct{}, len(m))
	for i, e := range m {
		if e.Source == "" || e.Target == "" {
			return fmt.Errorf("mapping entry %d: source and target are required", i)
		}
		if _, dup := seen[e.Source]; dup {
			return fmt.Errorf("mapping entry %d: duplicate source %q", i, e.Source)
		}
		seen[e.Source] = struct{}{}
	}
	return nil
}

// UnmarshalJSON accepts either a list of {"source","target"} objects or a
// plain {"source":"target"} object.
func (m *NameMapping) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var plain map[string]string
		if err := json.Unmarshal(data, &plain); err != nil {
			return err
		}
		*m = NewNameMapping(plain)
		return nil
	}
	var entries []MappingEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*m = entries
	return nil
}
