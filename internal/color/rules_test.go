package color

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_ColorFor(t *testing.T) {
	table := NewTable([]Rule{
		{Pattern: "Recycling", Color: "green"},
		{Pattern: "bin", Color: "brown"},
		{Pattern: "Recycling day", Color: "blue"}, // shadowed by the first rule
	})

	tests := []struct {
		name    string
		summary string
		want    string
		matched bool
	}{
		{
			name:    "exact match",
			summary: "Recycling",
			want:    "green",
			matched: true,
		},
		{
			name:    "case-insensitive match",
			summary: "RECYCLING collection",
			want:    "green",
			matched: true,
		},
		{
			name:    "substring match",
			summary: "Garden bin collection",
			want:    "brown",
			matched: true,
		},
		{
			name:    "first configured rule wins",
			summary: "Recycling day",
			want:    "green",
			matched: true,
		},
		{
			name:    "no match",
			summary: "Dentist",
			matched: false,
		},
		{
			name:    "empty summary",
			summary: "",
			matched: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.ColorFor(tt.summary).Get()
			assert.Equal(t, tt.matched, ok)
			if tt.matched {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNewTable_SkipsEmptyRules(t *testing.T) {
	table := NewTable([]Rule{
		{Pattern: "", Color: "green"},
		{Pattern: "bin", Color: ""},
		{Pattern: "bin", Color: "brown"},
	})

	assert.Equal(t, 1, table.Len())

	got, ok := table.ColorFor("bin day").Get()
	assert.True(t, ok)
	assert.Equal(t, "brown", got)
}

func TestTable_NilReceiver(t *testing.T) {
	var table *Table
	assert.True(t, table.ColorFor("anything").IsAbsent())
}
