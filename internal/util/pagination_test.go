package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 7, ParseIntDefault("", 7))
	assert.Equal(t, 7, ParseIntDefault("abc", 7))
	assert.Equal(t, 3, ParseIntDefault("3", 7))
	assert.Equal(t, -2, ParseIntDefault("-2", 7))
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name                string
		page, size          int
		wantOffset, wantLim int
	}{
		{"first page", 1, 10, 0, 10},
		{"third page", 3, 5, 10, 5},
		{"page below one", 0, 10, 0, 10},
		{"default size", 2, 0, 10, DefaultPageSize},
		{"size capped", 1, 1000, 0, MaxPageSize},
		{"huge page", math.MaxInt, MaxPageSize, (MaxPage - 1) * MaxPageSize, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, limit := Calculate(tt.page, tt.size)
			assert.GreaterOrEqual(t, offset, 0)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantLim, limit)
		})
	}
}

func TestTotalPages(t *testing.T) {
	assert.EqualValues(t, 0, TotalPages(0, 10))
	assert.EqualValues(t, 1, TotalPages(10, 10))
	assert.EqualValues(t, 2, TotalPages(11, 10))
	assert.EqualValues(t, 0, TotalPages(5, 0))
}

func TestClampPage(t *testing.T) {
	assert.Equal(t, 1, ClampPage(-5))
	assert.Equal(t, 1, ClampPage(0))
	assert.Equal(t, 42, ClampPage(42))
	assert.Equal(t, MaxPage, ClampPage(math.MaxInt))
}
