package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name   string
		input  []string
		expect []string
	}{
		{name: "nil passes through", input: nil, expect: nil},
		{name: "preserves first-seen order", input: []string{"b", "a", "b", "c", "a"}, expect: []string{"b", "a", "c"}},
		{name: "trims whitespace", input: []string{" x ", "x", "y "}, expect: []string{"x", "y"}},
		{name: "drops empties", input: []string{"", "  ", "z"}, expect: []string{"z"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, DedupeAndTrim(tt.input))
		})
	}
}

func TestSplitAndDedupe(t *testing.T) {
	assert.Nil(t, SplitAndDedupe(""))
	assert.Nil(t, SplitAndDedupe("   "))
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"},
		SplitAndDedupe("broker1:9092, broker2:9092,broker1:9092"))
}
