package record

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Normalize resolves every canonical field of the given collection from
// raw and returns a record keyed by canonical camelCase names.
//
// Lookup order per field: camelCase, snake_case, UPPER_SNAKE; the first
// key that is present with a non-nil value wins. Missing fields get
// documented defaults: "" for identifiers and names, 0 for amounts,
// false for booleans, the current time for dates, an empty list for
// membership arrays. Unparseable numeric values fall back to 0, never an
// error.
//
// Normalize is idempotent: normalizing an already-canonical record
// returns it unchanged.
func Normalize(c Collection, raw Raw) Raw {
	fields := schema[c]
	out := make(Raw, len(fields))
	for _, f := range fields {
		v, ok := lookup(raw, f.name)
		out[f.name] = coerce(f.kind, v, ok)
	}
	return out
}

// Merge overlays the fields present in partial onto base and returns the
// canonical result. Fields absent from partial keep base's values; base
// fields missing from both get the usual defaults.
func Merge(c Collection, base, partial Raw) Raw {
	out := Normalize(c, base)
	for _, f := range schema[c] {
		if v, ok := lookup(partial, f.name); ok {
			out[f.name] = coerce(f.kind, v, true)
		}
	}
	return out
}

// lookup tries the accepted key variants in order and returns the first
// present, non-nil value.
func lookup(raw Raw, canonical string) (any, bool) {
	for _, k := range keyVariants(canonical) {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// keyVariants returns the accepted spellings of a canonical field name:
// the camelCase name itself, its snake_case form, and upper snake case.
func keyVariants(canonical string) [3]string {
	snake := toSnake(canonical)
	return [3]string{canonical, snake, strings.ToUpper(snake)}
}

func toSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	for _, r := range s {
		if unicode.IsUpper(r) {
			b.WriteByte('_')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func coerce(k kind, v any, present bool) any {
	switch k {
	case kindString:
		if !present {
			return ""
		}
		return toString(v)
	case kindAmount:
		if !present {
			return decimal.Zero
		}
		return toDecimal(v)
	case kindBool:
		if !present {
			return false
		}
		return toBool(v)
	case kindTime:
		if !present {
			return time.Now().Unix()
		}
		return toUnix(v)
	case kindIDList:
		if !present {
			return []string{}
		}
		return toStringList(v)
	case kindMembers:
		if !present {
			return []Raw{}
		}
		return toMemberList(v)
	}
	return nil
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toDecimal parses a numeric value of any common wire representation.
// Parse failures yield zero rather than an error.
func toDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case decimal.Decimal:
		return n
	case float64:
		return decimal.NewFromFloat(n)
	case float32:
		return decimal.NewFromFloat32(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero
		}
		return d
	}
	return decimal.Zero
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "1"
	case float64:
		return b != 0
	case int:
		return b != 0
	case int64:
		return b != 0
	}
	return false
}

func toUnix(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return time.Now().Unix()
		}
		return i
	case time.Time:
		return t.Unix()
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return time.Now().Unix()
		}
		return d.IntPart()
	}
	return time.Now().Unix()
}

func toStringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

// toMemberList normalizes an embedded member array; each element is
// itself normalized against the Users schema.
func toMemberList(v any) []Raw {
	switch list := v.(type) {
	case []Raw:
		out := make([]Raw, len(list))
		for i, e := range list {
			out[i] = Normalize(Users, e)
		}
		return out
	case []any:
		out := make([]Raw, 0, len(list))
		for _, e := range list {
			if m, ok := e.(map[string]any); ok {
				out = append(out, Normalize(Users, m))
			}
		}
		return out
	}
	return []Raw{}
}
