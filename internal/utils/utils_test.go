package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateJobLabel(t *testing.T) {
	label := GenerateJobLabel()
	assert.NotEmpty(t, label)
	assert.NotContains(t, label, "_")
	assert.Contains(t, label, "-")
}

func TestParseIDList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int64
		wantErr bool
	}{
		{name: "single", input: "42", want: []int64{42}},
		{name: "list", input: "3, 1,2", want: []int64{3, 1, 2}},
		{name: "range", input: "5-8", want: []int64{5, 6, 7, 8}},
		{name: "mixed with duplicates", input: "1,2-3,2,7", want: []int64{1, 2, 3, 7}},
		{name: "trailing comma", input: "9,", want: []int64{9}},
		{name: "empty", input: " , ", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "reversed range", input: "8-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIDList(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "(not set)", MaskSecret(""))
	assert.Equal(t, "***", MaskSecret("abc"))
	masked := MaskSecret("supersecretvalue")
	assert.True(t, strings.HasSuffix(masked, "alue"))
	assert.NotContains(t, masked, "supersecret")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "abcd…", TruncateString("abcdefgh", 5))
}
