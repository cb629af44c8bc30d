package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesRouting(t *testing.T) {
	tests := []struct {
		name  string
		entry BlacklistEntry
		code  string
		want  bool
	}{
		{"exact match", BlacklistEntry{RoutingCode: "37040044", MatchType: RoutingMatchExact}, "37040044", true},
		{"exact mismatch", BlacklistEntry{RoutingCode: "37040044", MatchType: RoutingMatchExact}, "37040045", false},
		{"exact does not match prefixes", BlacklistEntry{RoutingCode: "3704", MatchType: RoutingMatchExact}, "37040044", false},
		{"prefix match", BlacklistEntry{RoutingCode: "3704", MatchType: RoutingMatchPrefix}, "37040044", true},
		{"prefix mismatch", BlacklistEntry{RoutingCode: "3705", MatchType: RoutingMatchPrefix}, "37040044", false},
		{"account-only entry has no routing reach", BlacklistEntry{AccountHash: "abc", MatchType: RoutingMatchExact}, "37040044", false},
		{"empty code never matches", BlacklistEntry{RoutingCode: "3704", MatchType: RoutingMatchPrefix}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.MatchesRouting(tt.code))
		})
	}
}
