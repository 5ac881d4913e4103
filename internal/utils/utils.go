package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goombaio/namegenerator"
)

// GenerateJobLabel creates a random, memorable label for a link job using namegenerator
func GenerateJobLabel() string {
	seed := time.Now().UTC().UnixNano()
	nameGenerator := namegenerator.NewNameGenerator(seed)

	// Generate a name like "wispy-dust"
	name := nameGenerator.Generate()

	return strings.ReplaceAll(name, "_", "-")
}

// ParseIDList parses file ids given as "12,15,20-24". Duplicates are kept once, in order.
func ParseIDList(input string) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)
	add := func(id int64) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if from, to, ok := strings.Cut(part, "-"); ok {
			start, err := parseID(from)
			if err != nil {
				return nil, err
			}
			end, err := parseID(to)
			if err != nil {
				return nil, err
			}
			if end < start {
				return nil, fmt.Errorf("invalid range %q", part)
			}
			for id := start; id <= end; id++ {
				add(id)
			}
			continue
		}

		id, err := parseID(part)
		if err != nil {
			return nil, err
		}
		add(id)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("no file ids in %q", input)
	}
	return ids, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid file id %q", s)
	}
	return id, nil
}

// MaskSecret hides all but the last four characters of a secret
func MaskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", 8) + secret[len(secret)-4:]
}

// TruncateString shortens s to max runes, adding an ellipsis
func TruncateString(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max || max < 1 {
		return s
	}
	return string(runes[:max-1]) + "…"
}
