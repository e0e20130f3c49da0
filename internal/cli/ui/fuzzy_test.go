package ui

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"users", "users", 0},
		{"user", "users", 1},
		{"usres", "users", 2},
		{"orders", "", 6},
		{"kitten", "sitting", 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LevenshteinDistance(tt.a, tt.b), "distance(%q, %q)", tt.a, tt.b)
	}
}

func TestSuggest(t *testing.T) {
	allowed := []string{"users", "orders", "order_items", "*"}

	got := Suggest("user", allowed)
	if len(got) == 0 || got[0] != "users" {
		t.Errorf("Suggest(user) = %v, want users first", got)
	}

	// The wildcard marker is never suggested.
	for _, s := range Suggest("x", allowed) {
		assert.NotEqual(t, "*", s)
	}

	// Nothing close enough returns no suggestions.
	assert.Empty(t, Suggest("completely_unrelated_name", allowed))
}

func TestSuggestOrdering(t *testing.T) {
	got := Suggest("oder", []string{"orders", "order", "older"})
	want := []string{"older", "order", "orders"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Suggest ordering = %v, want %v", got, want)
	}
}
