package rules

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestLoadValid(t *testing.T) {
	loader := NewLoader("testdata/valid")

	rule, err := loader.Load("game", "testplat")
	require.NoError(t, err)
	require.Equal(t, "testplat", rule.PlatformName)
	require.Equal(t, "game", rule.Domain)
	require.Equal(t, 1, rule.SchemaVersion)

	expectMappings := []FieldMapping{
		{Source: "name", Dest: "title"},
		{Source: "players", Dest: "players"},
	}
	diff := cmp.Diff(expectMappings, rule.FieldMappings)
	require.Empty(t, diff)

	// the .local.json5 overlay overrides the required list
	require.Equal(t, []string{"title", "players"}, rule.Required)

	c, ok := rule.Classify("players")
	require.True(t, ok)
	require.Equal(t, FacetPlatform, c.Type)
	require.True(t, rule.IsRequired("players"))
	require.False(t, rule.IsRequired("thumbnail"))
}

func TestLoadCachesInstance(t *testing.T) {
	loader := NewLoader("testdata/valid")

	first, err := loader.Load("game", "testplat")
	require.NoError(t, err)
	second, err := loader.Load("game", "testplat")
	require.NoError(t, err)
	require.Same(t, first, second)
}

func TestLoadNotFound(t *testing.T) {
	loader := NewLoader("testdata/valid")

	_, err := loader.Load("game", "nonexistent")
	require.ErrorIs(t, err, ErrRuleNotFound)
}

func TestLoadUnclassifiedDest(t *testing.T) {
	loader := NewLoader("testdata/broken")

	_, err := loader.Load("game", "badclass")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Contains(t, parseErr.Reason, "extra")
}

func TestLoadVersionOutsideRange(t *testing.T) {
	loader := NewLoader("testdata/badversion")

	_, err := loader.Load("game", "futureplat")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Contains(t, parseErr.Reason, "schema_version")
}

func TestLoadNameMismatch(t *testing.T) {
	loader := NewLoader("testdata/mismatch")

	_, err := loader.Load("game", "mismatch")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestReload(t *testing.T) {
	loader := NewLoader("testdata/valid")

	err := loader.Reload()
	require.NoError(t, err)

	keys := loader.Cached()
	sort.Strings(keys)
	require.Equal(t, []string{"game.testplat", "webnovel.serialplat"}, keys)
}

func TestReloadKeepsCacheOnFailure(t *testing.T) {
	loader := NewLoader("testdata/valid")
	require.NoError(t, loader.Reload())

	// point at a directory with a broken rule; the old cache survives
	loader.dir = "testdata/broken"
	err := loader.Reload()
	require.Error(t, err)

	keys := loader.Cached()
	sort.Strings(keys)
	require.Equal(t, []string{"game.testplat", "webnovel.serialplat"}, keys)
}

func TestValidateRequiredNotADest(t *testing.T) {
	rule := &MappingRule{
		PlatformName:  "p",
		Domain:        "d",
		SchemaVersion: 1,
		FieldMappings: []FieldMapping{{Source: "name", Dest: "title"}},
		Required:      []string{"thumbnail"},
		DomainObjectMappings: map[string]Classification{
			"title": {Target: "title", Type: FacetMaster},
		},
	}
	err := Validate("inline", rule)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	require.Contains(t, parseErr.Reason, "thumbnail")
}

func TestValidateNormalizerParams(t *testing.T) {
	base := MappingRule{
		PlatformName:  "p",
		Domain:        "d",
		SchemaVersion: 1,
		FieldMappings: []FieldMapping{{Source: "name", Dest: "title"}},
		DomainObjectMappings: map[string]Classification{
			"title": {Target: "title", Type: FacetMaster},
		},
	}

	missingFormats := base
	missingFormats.Normalizers = []Normalizer{
		{Kind: KindDateNormalize, Target: "title"},
	}
	require.Error(t, Validate("inline", &missingFormats))

	missingTable := base
	missingTable.Normalizers = []Normalizer{
		{Kind: KindEnumCanonicalize, Target: "title"},
	}
	require.Error(t, Validate("inline", &missingTable))

	unknownKind := base
	unknownKind.Normalizers = []Normalizer{
		{Kind: "uppercase", Target: "title"},
	}
	require.Error(t, Validate("inline", &unknownKind))
}
