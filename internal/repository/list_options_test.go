package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListOptions_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListOptions
		want ListOptions
	}{
		{
			name: "zero values fall back to defaults",
			in:   ListOptions{},
			want: ListOptions{Page: 1, Limit: 20, SortDirection: "desc"},
		},
		{
			name: "negative page floors at one",
			in:   ListOptions{Page: -3, Limit: 10, SortDirection: "asc"},
			want: ListOptions{Page: 1, Limit: 10, SortDirection: "asc"},
		},
		{
			name: "limit above the cap falls back",
			in:   ListOptions{Page: 2, Limit: 500, SortDirection: "asc"},
			want: ListOptions{Page: 2, Limit: 20, SortDirection: "asc"},
		},
		{
			name: "unknown sort direction defaults to descending",
			in:   ListOptions{Page: 1, Limit: 20, SortDirection: "sideways"},
			want: ListOptions{Page: 1, Limit: 20, SortDirection: "desc"},
		},
		{
			name: "in-range values pass through",
			in:   ListOptions{Page: 3, Limit: 100, SortBy: "email", SortDirection: "asc", Query: "ali"},
			want: ListOptions{Page: 3, Limit: 100, SortBy: "email", SortDirection: "asc", Query: "ali"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}
