package transform

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"aod-backend/lib/rawvalue"
	"aod-backend/lib/textutil"
	"aod-backend/services/rules"
)

type normalizeFunc func(ctx context.Context, v rawvalue.Value, step rules.Normalizer) (rawvalue.Value, error)

// closed dispatch table; adding a kind means adding an entry here and a
// constant in the rules package, call sites stay untouched.
var normalizers = map[rules.NormalizerKind]normalizeFunc{
	rules.KindBracketStrip:     normalizeBracketStrip,
	rules.KindDateNormalize:    normalizeDate,
	rules.KindNumericCoerce:    normalizeNumeric,
	rules.KindEnumCanonicalize: normalizeEnum,
}

// bracket-strip operates only on string values; anything else passes
// through untouched.
func normalizeBracketStrip(ctx context.Context, v rawvalue.Value, step rules.Normalizer) (rawvalue.Value, error) {
	s, ok := v.Str()
	if !ok {
		return v, nil
	}
	return rawvalue.String(textutil.CollapseWhitespace(textutil.StripBrackets(s))), nil
}

// outputDateLayout is the canonical form every parsed date is rendered in.
const outputDateLayout = "2006-01-02"

// date-normalize tries each candidate layout in order; the first one
// that parses wins. Total failure drops the field, it is never defaulted
// to "now".
func normalizeDate(ctx context.Context, v rawvalue.Value, step rules.Normalizer) (rawvalue.Value, error) {
	s, ok := v.Str()
	if !ok {
		return rawvalue.Value{}, &NormalizerError{
			Kind: step.Kind, Field: step.Target,
			Reason: "not a string: " + v.Kind().String(),
		}
	}
	s = strings.TrimSpace(s)

	for _, layout := range step.Params.Formats {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			return rawvalue.String(parsed.Format(outputDateLayout)), nil
		}
	}
	return rawvalue.Value{}, &NormalizerError{
		Kind: step.Kind, Field: step.Target,
		Reason: "no candidate format matched",
	}
}

// numericJunk covers locale thousands separators and currency/unit
// symbols seen across the sources.
var numericJunk = strings.NewReplacer(
	",", "",
	"₩", "",
	"$", "",
	"원", "",
	"%", "",
	" ", "",
	" ", "",
)

// numeric-coerce strips separators and symbols, then parses an integer
// or decimal. Non-numeric residue drops the field.
func normalizeNumeric(ctx context.Context, v rawvalue.Value, step rules.Normalizer) (rawvalue.Value, error) {
	if _, ok := v.Num(); ok {
		return v, nil
	}
	s, ok := v.Str()
	if !ok {
		return rawvalue.Value{}, &NormalizerError{
			Kind: step.Kind, Field: step.Target,
			Reason: "not a string or number: " + v.Kind().String(),
		}
	}

	cleaned := numericJunk.Replace(strings.TrimSpace(s))
	if n, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
		return rawvalue.Number(float64(n)), nil
	}
	if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return rawvalue.Number(f), nil
	}
	return rawvalue.Value{}, &NormalizerError{
		Kind: step.Kind, Field: step.Target,
		Reason: "non-numeric residue " + strconv.Quote(cleaned),
	}
}

// enum-canonicalize maps source tokens through an exact lookup table.
// Unmapped tokens pass through unchanged with a warning.
func normalizeEnum(ctx context.Context, v rawvalue.Value, step rules.Normalizer) (rawvalue.Value, error) {
	s, ok := v.Str()
	if !ok {
		return v, nil
	}
	canonical, ok := step.Params.Table[s]
	if !ok {
		slog.WarnContext(
			ctx, "enum token not in canonical vocabulary",
			"field", step.Target,
			"token", s,
		)
		return v, nil
	}
	return rawvalue.String(canonical), nil
}
