// Package env composes the environment handed to launched daemons.
package env

import (
	"fmt"
	"sort"
	"strings"
)

// Split parses one K=V pair. The key must be non-empty and free of '='.
func Split(kv string) (key, value string, err error) {
	k, v, ok := strings.Cut(kv, "=")
	if !ok || k == "" {
		return "", "", fmt.Errorf("invalid environment entry %q: want KEY=VALUE", kv)
	}
	return k, v, nil
}

// Merge applies overrides to base in order and returns the result sorted by
// key. ${VAR} in an override value is replaced by VAR as composed so far;
// unknown references are left in place. Malformed base entries are skipped,
// malformed overrides are an error.
func Merge(base, overrides []string) ([]string, error) {
	m := make(map[string]string, len(base)+len(overrides))
	for _, kv := range base {
		if k, v, err := Split(kv); err == nil {
			m[k] = v
		}
	}
	for _, kv := range overrides {
		k, v, err := Split(kv)
		if err != nil {
			return nil, err
		}
		m[k] = expand(v, m)
	}

	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out, nil
}

func expand(s string, m map[string]string) string {
	var b strings.Builder
	for {
		i := strings.Index(s, "${")
		if i < 0 {
			break
		}
		j := strings.IndexByte(s[i+2:], '}')
		if j < 0 {
			break
		}
		name := s[i+2 : i+2+j]
		b.WriteString(s[:i])
		if v, ok := m[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(s[i : i+3+j])
		}
		s = s[i+3+j:]
	}
	b.WriteString(s)
	return b.String()
}
