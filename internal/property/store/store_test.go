package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path     string
		property string
		field    string
		wantErr  bool
	}{
		{path: Path("p1", "numOfInspections"), property: "p1", field: "numOfInspections"},
		{path: "properties/p1", wantErr: true},
		{path: "inspections/p1/score", wantErr: true},
		{path: "properties//score", wantErr: true},
		{path: "properties/p1/a/b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			property, field, err := SplitPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.property, property)
			assert.Equal(t, tt.field, field)
		})
	}
}

func TestInMemoryWritePath(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	require.NoError(t, s.WritePath(ctx, Path("p1", "numOfInspections"), 3))
	require.NoError(t, s.WritePath(ctx, Path("p1", "lastInspectionScore"), 87.5))
	assert.Error(t, s.WritePath(ctx, "bogus", 1))

	fields, err := s.Fields(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"numOfInspections": "3", "lastInspectionScore": "87.5"}, fields)
}
