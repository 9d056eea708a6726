package gbasave

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeTranslate(t *testing.T) {
	const max = 32767

	tests := []struct {
		name   string
		r      Range
		offset int
		length int
	}{
		{
			name:   "full",
			r:      Full(),
			offset: 0,
			length: 32768,
		},
		{
			name:   "closed",
			r:      Closed(42, 100),
			offset: 42,
			length: 59,
		},
		{
			name:   "half open",
			r:      Span(42, 100),
			offset: 42,
			length: 58,
		},
		{
			name:   "from",
			r:      From(42),
			offset: 42,
			length: 32726,
		},
		{
			name:   "to",
			r:      To(100),
			offset: 0,
			length: 100,
		},
		{
			name: "excluded start",
			r: Range{
				Start: Bound{Kind: Excluded, Index: 42},
			},
			offset: 43,
			length: 32725,
		},
		{
			name:   "single index",
			r:      Closed(42, 42),
			offset: 42,
			length: 1,
		},
		{
			name:   "empty span",
			r:      Span(42, 42),
			offset: 42,
			length: 0,
		},
		{
			name:   "last index",
			r:      Closed(max, max),
			offset: max,
			length: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, length := tt.r.Translate(max)
			assert.Equal(t, tt.offset, offset)
			assert.Equal(t, tt.length, length)
		})
	}
}

func TestRangeTranslatePanics(t *testing.T) {
	tests := []struct {
		name string
		r    Range
	}{
		{
			name: "start past capacity",
			r:    From(32768),
		},
		{
			name: "end past capacity",
			r:    Closed(0, 32768),
		},
		{
			name: "negative start",
			r:    From(-1),
		},
		{
			name: "end before start",
			r:    Closed(100, 42),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() {
				tt.r.Translate(32767)
			})
		})
	}
}
