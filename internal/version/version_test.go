package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("parses plain version", func(t *testing.T) {
		v, err := Parse("1.4.0")
		require.NoError(t, err)
		require.Equal(t, Version{Major: 1, Minor: 4, Patch: 0}, v)
	})

	t.Run("accepts leading v", func(t *testing.T) {
		v, err := Parse("v2.10.3")
		require.NoError(t, err)
		require.Equal(t, Version{Major: 2, Minor: 10, Patch: 3}, v)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, s := range []string{"", "1.4", "1.4.0.1", "1.x.0", "-1.0.0", "1.4.0-rc1"} {
			_, err := Parse(s)
			require.Error(t, err, "input %q", s)
		}
	})
}

func TestBump(t *testing.T) {
	base := Version{Major: 1, Minor: 4, Patch: 2}

	tests := []struct {
		kind BumpKind
		want Version
	}{
		{BumpMajor, Version{Major: 2, Minor: 0, Patch: 0}},
		{BumpMinor, Version{Major: 1, Minor: 5, Patch: 0}},
		{BumpPatch, Version{Major: 1, Minor: 4, Patch: 3}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, err := base.Bump(tt.kind)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			// bump is pure
			require.Equal(t, Version{Major: 1, Minor: 4, Patch: 2}, base)
		})
	}

	t.Run("rejects unknown kind", func(t *testing.T) {
		_, err := base.Bump(BumpKind("hotfix"))
		require.Error(t, err)
	})
}

func TestCompare(t *testing.T) {
	require.Equal(t, 0, Version{1, 4, 0}.Compare(Version{1, 4, 0}))
	require.Equal(t, -1, Version{1, 3, 9}.Compare(Version{1, 4, 0}))
	require.Equal(t, 1, Version{2, 0, 0}.Compare(Version{1, 9, 9}))
	require.Equal(t, -1, Version{1, 4, 0}.Compare(Version{1, 4, 1}))
}

func TestDerivedNames(t *testing.T) {
	v := Version{Major: 1, Minor: 4, Patch: 0}
	require.Equal(t, "release-1.4.0", v.ReleaseBranch())
	require.Equal(t, "maintenance-1.4", v.MaintenanceBranch())
	require.Equal(t, "v1.4.0", v.TagName())
	require.Equal(t, "v1.4.0", v.DocsDir())
	require.Equal(t, "1.4", v.Line())
}

func TestSameLine(t *testing.T) {
	require.True(t, Version{1, 4, 0}.SameLine(Version{1, 4, 7}))
	require.False(t, Version{1, 3, 2}.SameLine(Version{1, 4, 0}))
	require.False(t, Version{1, 4, 0}.SameLine(Version{2, 4, 0}))
}
