// Package ulid generates prefixed, time-sortable identifiers on top of
// github.com/oklog/ulid/v2. Identifiers look like "job-01HV3...".
package ulid

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	PrefixJob     = "job"
	PrefixItem    = "item"
	PrefixSetting = "set"
	PrefixRequest = "req"

	PrefixSeparator = "-"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// ID is a parsed identifier
type ID struct {
	Prefix string
	Value  ulid.ULID
}

// String renders the identifier as prefix-ULID
func (id ID) String() string {
	if id.Prefix == "" {
		return id.Value.String()
	}
	return id.Prefix + PrefixSeparator + id.Value.String()
}

// Time returns the timestamp encoded in the identifier
func (id ID) Time() time.Time {
	return ulid.Time(id.Value.Time())
}

// NewWithTime creates an identifier with the given prefix and timestamp
func NewWithTime(prefix string, t time.Time) ID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ID{Prefix: prefix, Value: ulid.MustNew(ulid.Timestamp(t), entropy)}
}

// Generate creates an identifier with the given prefix
func Generate(prefix string) string {
	return NewWithTime(prefix, time.Now()).String()
}

// Parse accepts both prefixed and bare identifiers
func Parse(s string) (ID, error) {
	prefix, raw, found := strings.Cut(s, PrefixSeparator)
	if !found {
		raw, prefix = s, ""
	}
	v, err := ulid.Parse(raw)
	if err != nil {
		return ID{}, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return ID{Prefix: prefix, Value: v}, nil
}

// ParseWithPrefix parses s and requires the given prefix
func ParseWithPrefix(s, prefix string) (ID, error) {
	id, err := Parse(s)
	if err != nil {
		return ID{}, err
	}
	if id.Prefix != prefix {
		return ID{}, fmt.Errorf("invalid id %q: expected prefix %q", s, prefix)
	}
	return id, nil
}

// Validate reports whether s is a well formed identifier
func Validate(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func JobID() string     { return Generate(PrefixJob) }
func ItemID() string    { return Generate(PrefixItem) }
func SettingID() string { return Generate(PrefixSetting) }
func RequestID() string { return Generate(PrefixRequest) }
