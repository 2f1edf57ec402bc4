package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewScopeDeduplicates(t *testing.T) {
	s := NewScope("tl", "a1", "tl", "", "a2")
	assert.Equal(t, []string{"tl", "a1", "a2"}, s.OwnerIDs)
}

func TestScopeAllows(t *testing.T) {
	tests := []struct {
		name       string
		scope      Scope
		assignedTo *string
		want       bool
	}{
		{"admin sees assigned", Scope{Unrestricted: true}, ptr("a3"), true},
		{"admin sees unassigned", Scope{Unrestricted: true}, nil, true},
		{"owner", NewScope("a1"), ptr("a1"), true},
		{"other owner", NewScope("a1"), ptr("a2"), false},
		{"unassigned hidden", NewScope("tl", "a1"), nil, false},
		{"subordinate", NewScope("tl", "a1"), ptr("a1"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scope.Allows(tt.assignedTo))
		})
	}
}
