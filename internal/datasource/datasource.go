// Package datasource decides whether services read the in-memory fixture
// dataset or the remote REST backend.
package datasource

import (
	"fmt"
	"net/url"
	"strings"
)

type Mode string

const (
	Fixture Mode = "fixture"
	Remote  Mode = "remote"
)

// Parse accepts the canonical names plus the "mock" and "api" aliases.
func Parse(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixture", "mock":
		return Fixture, nil
	case "remote", "api":
		return Remote, nil
	default:
		return "", fmt.Errorf("invalid data source mode %q (want fixture or remote)", s)
	}
}

func (m Mode) Valid() bool {
	return m == Fixture || m == Remote
}

func (m Mode) String() string { return string(m) }

// Resolve applies the precedence override > default. A nil override keeps
// the default.
func Resolve(def Mode, override *Mode) Mode {
	if override != nil && override.Valid() {
		return *override
	}
	return def
}

// FromQuery reads a request-time override from query parameters:
// "mock" or "mock=true" selects the fixture, "mock=false" or "api" selects
// the remote backend. Anything else is no override.
func FromQuery(q url.Values) *Mode {
	if vals, ok := q["mock"]; ok {
		v := ""
		if len(vals) > 0 {
			v = strings.ToLower(strings.TrimSpace(vals[0]))
		}
		switch v {
		case "", "true", "1":
			m := Fixture
			return &m
		case "false", "0":
			m := Remote
			return &m
		}
	}
	if _, ok := q["api"]; ok {
		m := Remote
		return &m
	}
	return nil
}
