// Package transform applies a mapping rule to one raw record, producing
// the normalized master/domain/platform triple. It is a pure function of
// (record, rule): it never consults persisted state, so identical inputs
// always produce identical output.
package transform

import (
	"context"
	"fmt"
	"log/slog"

	"aod-backend/lib/rawvalue"
	"aod-backend/services/rules"
)

// RequiredFieldError fails a single record; the caller skips it and
// continues with the rest of the batch.
type RequiredFieldError struct {
	Field string
}

func (e *RequiredFieldError) Error() string {
	return fmt.Sprintf("required field %q missing from record", e.Field)
}

// NormalizerError fails a single field, which is dropped from the output.
type NormalizerError struct {
	Kind   rules.NormalizerKind
	Field  string
	Reason string
}

func (e *NormalizerError) Error() string {
	return fmt.Sprintf("%s on %q: %s", e.Kind, e.Field, e.Reason)
}

// Triple is the normalized output for one record. Created fresh per
// call, consumed immediately, never cached.
type Triple struct {
	Master   map[string]rawvalue.Value
	Domain   map[string]rawvalue.Value
	Platform map[string]rawvalue.Value
}

// PlatformTagField carries the platform name inside the platform facet.
const PlatformTagField = "platform"

// Transform maps raw onto the triple described by rule.
//
// Missing source paths leave the destination field unset rather than
// defaulting it, unless the field is required, in which case the whole
// record fails. Normalizer failures drop the affected field and keep
// going.
func Transform(ctx context.Context, raw rawvalue.Value, rule *rules.MappingRule) (Triple, error) {
	triple := Triple{
		Master:   map[string]rawvalue.Value{},
		Domain:   map[string]rawvalue.Value{},
		Platform: map[string]rawvalue.Value{},
	}
	triple.Platform[PlatformTagField] = rawvalue.String(rule.PlatformName)

	for _, mapping := range rule.FieldMappings {
		value, ok := raw.Resolve(mapping.Source)
		if !ok {
			if rule.IsRequired(mapping.Dest) {
				return Triple{}, &RequiredFieldError{Field: mapping.Dest}
			}
			continue
		}

		value, ok = applyNormalizers(ctx, rule, mapping.Dest, value)
		if !ok {
			if rule.IsRequired(mapping.Dest) {
				return Triple{}, &RequiredFieldError{Field: mapping.Dest}
			}
			continue
		}

		// Validate guarantees a classification exists for every
		// mapped destination
		class, ok := rule.Classify(mapping.Dest)
		if !ok {
			slog.WarnContext(
				ctx, "unclassified destination slipped past rule validation",
				"platform", rule.PlatformName,
				"field", mapping.Dest,
			)
			continue
		}

		switch class.Type {
		case rules.FacetMaster:
			triple.Master[class.Target] = value
		case rules.FacetDomain:
			triple.Domain[class.Target] = value
		case rules.FacetPlatform:
			triple.Platform[class.Target] = value
		}
	}

	return triple, nil
}

// applyNormalizers runs the rule's normalizer steps targeting dest, in
// declaration order. The second return is false when the field should be
// dropped.
func applyNormalizers(ctx context.Context, rule *rules.MappingRule, dest string, value rawvalue.Value) (rawvalue.Value, bool) {
	for _, step := range rule.Normalizers {
		if step.Target != dest {
			continue
		}

		fn, ok := normalizers[step.Kind]
		if !ok {
			// unreachable after Validate, but a rule loaded by other
			// means shouldn't crash the batch
			slog.WarnContext(
				ctx, "unknown normalizer kind",
				"platform", rule.PlatformName,
				"kind", step.Kind,
				"field", dest,
			)
			continue
		}

		next, err := fn(ctx, value, step)
		if err != nil {
			slog.WarnContext(
				ctx, "normalizer dropped field",
				"platform", rule.PlatformName,
				"field", dest,
				"value", value.String(),
				"err", err,
			)
			return rawvalue.Value{}, false
		}
		value = next
	}
	return value, true
}
