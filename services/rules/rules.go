// Package rules loads the declarative mapping rules that drive the
// transform engine. One rule file exists per (domain, platform) pair;
// adding a platform means adding a rule file, not code.
package rules

import (
	"errors"
	"fmt"
)

// bumped whenever the rule format changes incompatibly. Files declaring
// a version outside [MinSchemaVersion, CurrentSchemaVersion] fail to
// load instead of silently degrading.
const (
	MinSchemaVersion     = 1
	CurrentSchemaVersion = 1
)

var ErrRuleNotFound = errors.New("mapping rule not found")

// ParseError is fatal at load time: the platform cannot run until the
// rule file is fixed.
type ParseError struct {
	File   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse rule %s: %s", e.File, e.Reason)
}

// Facet classifies a destination field into one of the three normalized
// groups produced per record.
type Facet string

const (
	FacetMaster   Facet = "master"
	FacetDomain   Facet = "domain"
	FacetPlatform Facet = "platform"
)

type NormalizerKind string

const (
	KindBracketStrip     NormalizerKind = "bracket-strip"
	KindDateNormalize    NormalizerKind = "date-normalize"
	KindNumericCoerce    NormalizerKind = "numeric-coerce"
	KindEnumCanonicalize NormalizerKind = "enum-canonicalize"
)

var knownKinds = map[NormalizerKind]bool{
	KindBracketStrip:     true,
	KindDateNormalize:    true,
	KindNumericCoerce:    true,
	KindEnumCanonicalize: true,
}

// FieldMapping maps a dotted source path in the raw record to a
// destination field name. Order matters and is preserved.
type FieldMapping struct {
	Source string `json:"source"`
	Dest   string `json:"dest"`
}

type NormalizerParams struct {
	// date-normalize: candidate Go time layouts, tried in order
	Formats []string `json:"formats"`
	// enum-canonicalize: exact source token -> canonical token
	Table map[string]string `json:"table"`
}

// Normalizer is one step in the ordered post-extraction pipeline. Later
// steps targeting the same field see the output of earlier ones.
type Normalizer struct {
	Kind   NormalizerKind   `json:"kind"`
	Target string           `json:"target"`
	Params NormalizerParams `json:"params"`
}

// Classification buckets a destination field and names the field it
// lands on inside that bucket.
type Classification struct {
	Target string `json:"target"`
	Type   Facet  `json:"type"`
}

type MappingRule struct {
	PlatformName  string         `json:"platform_name"`
	Domain        string         `json:"domain"`
	SchemaVersion int            `json:"schema_version"`
	FieldMappings []FieldMapping `json:"field_mappings"`
	// destination fields that must resolve; a record missing one is
	// skipped as a whole
	Required             []string                  `json:"required"`
	Normalizers          []Normalizer              `json:"normalizers"`
	DomainObjectMappings map[string]Classification `json:"domain_object_mappings"`
}

// Classify returns the classification for a destination field. Validate
// guarantees this exists for every mapped destination.
func (r *MappingRule) Classify(dest string) (Classification, bool) {
	c, ok := r.DomainObjectMappings[dest]
	return c, ok
}

func (r *MappingRule) IsRequired(dest string) bool {
	for _, f := range r.Required {
		if f == dest {
			return true
		}
	}
	return false
}

// Validate rejects malformed rules at load time so the transform engine
// never has to deal with them.
func Validate(file string, rule *MappingRule) error {
	fail := func(format string, args ...any) error {
		return &ParseError{File: file, Reason: fmt.Sprintf(format, args...)}
	}

	if rule.PlatformName == "" {
		return fail("missing platform_name")
	}
	if rule.Domain == "" {
		return fail("missing domain")
	}
	if rule.SchemaVersion < MinSchemaVersion || rule.SchemaVersion > CurrentSchemaVersion {
		return fail(
			"schema_version %d outside supported range [%d, %d]",
			rule.SchemaVersion, MinSchemaVersion, CurrentSchemaVersion,
		)
	}
	if len(rule.FieldMappings) == 0 {
		return fail("missing field_mappings")
	}

	seenDest := map[string]bool{}
	for _, m := range rule.FieldMappings {
		if m.Source == "" || m.Dest == "" {
			return fail("field mapping with empty source or dest")
		}
		if seenDest[m.Dest] {
			return fail("duplicate destination field %q", m.Dest)
		}
		seenDest[m.Dest] = true

		// unclassified destinations are a load-time error, not a
		// transform-time one
		c, ok := rule.DomainObjectMappings[m.Dest]
		if !ok {
			return fail("destination field %q has no domain_object_mappings entry", m.Dest)
		}
		if c.Target == "" {
			return fail("classification for %q has no target", m.Dest)
		}
		switch c.Type {
		case FacetMaster, FacetDomain, FacetPlatform:
		default:
			return fail("classification for %q has unknown type %q", m.Dest, c.Type)
		}
	}

	for _, f := range rule.Required {
		if !seenDest[f] {
			return fail("required field %q is not a mapping destination", f)
		}
	}

	for _, n := range rule.Normalizers {
		if !knownKinds[n.Kind] {
			return fail("unknown normalizer kind %q", n.Kind)
		}
		if n.Target == "" {
			return fail("normalizer %q has no target", n.Kind)
		}
		if n.Kind == KindDateNormalize && len(n.Params.Formats) == 0 {
			return fail("date-normalize on %q needs at least one format", n.Target)
		}
		if n.Kind == KindEnumCanonicalize && len(n.Params.Table) == 0 {
			return fail("enum-canonicalize on %q needs a lookup table", n.Target)
		}
	}

	return nil
}
