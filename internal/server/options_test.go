package server

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/siwegate/internal/rules"
)

func writePack(t *testing.T, dir, name string, rp rules.RulePack) string {
	t.Helper()
	data, err := json.Marshal(rp)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func grammarPack(id, profile string) rules.RulePack {
	return rules.RulePack{
		RulePackId: id,
		Version:    "1.0.0",
		Profile:    profile,
		Rules: []rules.Rule{{
			Code:      rules.RuleCodeGrammar,
			Category:  rules.CategoryFormat,
			Severity:  rules.ERROR,
			CheckFunc: "CheckGrammar",
		}},
	}
}

func TestBuildConfiguredPacks(t *testing.T) {
	dir := t.TempDir()

	t.Run("loads packs keyed by configured profile", func(t *testing.T) {
		path := writePack(t, dir, "strict.json", grammarPack("acme", "basic"))
		packs, err := buildConfiguredPacks([]ProfilePack{{Profile: "strict", Path: path}})
		require.NoError(t, err)
		require.Contains(t, packs, "strict")
		assert.Equal(t, "acme", packs["strict"].RulePackId)
	})

	t.Run("falls back to the pack's own profile", func(t *testing.T) {
		path := writePack(t, dir, "ops.json", grammarPack("ops-pack", "ops"))
		packs, err := buildConfiguredPacks([]ProfilePack{{Path: path}})
		require.NoError(t, err)
		require.Contains(t, packs, "ops")
	})

	t.Run("empty list is fine", func(t *testing.T) {
		packs, err := buildConfiguredPacks(nil)
		require.NoError(t, err)
		assert.Empty(t, packs)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := buildConfiguredPacks([]ProfilePack{{Profile: "strict"}})
		assert.ErrorContains(t, err, "missing path")
	})

	t.Run("unreadable pack", func(t *testing.T) {
		_, err := buildConfiguredPacks([]ProfilePack{{Profile: "strict", Path: filepath.Join(dir, "absent.json")}})
		assert.Error(t, err)
	})

	t.Run("no profile anywhere", func(t *testing.T) {
		path := writePack(t, dir, "anon.json", grammarPack("anon", ""))
		_, err := buildConfiguredPacks([]ProfilePack{{Path: path}})
		assert.ErrorContains(t, err, "carries no profile")
	})

	t.Run("duplicate profile", func(t *testing.T) {
		a := writePack(t, dir, "a.json", grammarPack("a", "strict"))
		b := writePack(t, dir, "b.json", grammarPack("b", "strict"))
		_, err := buildConfiguredPacks([]ProfilePack{
			{Profile: "strict", Path: a},
			{Profile: "strict", Path: b},
		})
		assert.ErrorContains(t, err, "duplicate rule pack")
	})
}

func TestProfileNames(t *testing.T) {
	configured := map[string]rules.RulePack{
		"zeta":   {},
		"alpha":  {},
		"strict": {},
	}
	names := profileNames(configured)
	assert.Equal(t, []string{"strict", "basic", "development", "alpha", "zeta"}, names)
}
