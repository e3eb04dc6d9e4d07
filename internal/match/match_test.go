package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltops/vaultpillar/pkg/pillar"
)

func webMinion() pillar.Minion {
	return pillar.Minion{
		ID: "web01",
		Grains: map[string]interface{}{
			"os": "Ubuntu",
			"os_family": map[string]interface{}{
				"name": "Debian",
			},
			"roles": []interface{}{"frontend", "tls"},
			"cpus":  4,
		},
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"id glob match", "web*", true},
		{"id glob miss", "db*", false},
		{"exact id", "web01", true},
		{"grain glob", "G@os:Ubuntu", true},
		{"grain glob pattern", "G@os:Ubun*", true},
		{"grain glob miss", "G@os:CentOS", false},
		{"nested grain", "G@os_family:name:Debian", true},
		{"missing grain", "G@kernel:Linux", false},
		{"list grain matches any element", "G@roles:tls", true},
		{"list grain miss", "G@roles:db", false},
		{"numeric grain", "G@cpus:4", true},
		{"id regex", `E@^web\d+$`, true},
		{"id regex miss", `E@^db\d+$`, false},
		{"grain regex", "P@os:Ubu.*", true},
		{"id list", "L@web01,web02", true},
		{"id list glob", "L@db*,web*", true},
		{"id list miss", "L@db01,db02", false},
		{"and", "web* and G@os:Ubuntu", true},
		{"and miss", "web* and G@os:CentOS", false},
		{"or", "db* or G@os:Ubuntu", true},
		{"not", "not db*", true},
		{"not match", "not web*", false},
		{"grouping", "( db* or web* ) and G@os:Ubuntu", true},
		{"glued parens", "(db* or web*) and G@os:Ubuntu", true},
		{"nested groups", "not ( db* and ( G@os:CentOS or G@os:Ubuntu ) )", true},
		{"precedence and binds tighter", "db* and db* or web*", true},
	}

	m := New()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := m.Match(tt.expr, webMinion())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "expr: %s", tt.expr)
		})
	}
}

func TestMatchErrors(t *testing.T) {
	t.Parallel()

	exprs := []string{
		"",
		"web* and",
		"and web*",
		"( web*",
		"web* )",
		"X@something",
		"G@os",
		"E@[invalid",
		"web* G@os:Ubuntu",
	}

	m := New()
	for _, expr := range exprs {
		_, err := m.Match(expr, webMinion())
		assert.Error(t, err, "expr: %q", expr)
	}
}
