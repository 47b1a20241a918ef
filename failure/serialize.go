package failure

import (
	"encoding/json"
	"errors"
)

// Serialize renders err and its cause chain as a map suitable for structured
// logs. Foreign errors become {"name": "error", "message": ...}; errors
// joined with errors.Join or several %w verbs list their members under
// "errors".
func Serialize(err error) map[string]any {
	return serialize(err, make(map[*Failure]bool))
}

func serialize(err error, seen map[*Failure]bool) map[string]any {
	if err == nil {
		return nil
	}

	f, ok := err.(*Failure)
	if !ok {
		out := map[string]any{
			"name":    "error",
			"message": err.Error(),
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			if members := serializeAll(u.Unwrap(), seen); len(members) > 0 {
				out["errors"] = members
			}
		default:
			if inner := errors.Unwrap(err); inner != nil {
				out["cause"] = serialize(inner, seen)
			}
		}
		return out
	}
	if seen[f] {
		return map[string]any{"name": f.Kind.Name(), "message": "<cycle>"}
	}
	seen[f] = true
	defer delete(seen, f)

	out := map[string]any{
		"name":    f.Kind.Name(),
		"kind":    f.Kind.String(),
		"message": f.Message,
	}
	if f.Code != "" {
		out["code"] = f.Code
	}
	if len(f.Meta) > 0 {
		out["meta"] = f.CloneMeta()
	}
	if f.Cause != nil {
		out["cause"] = serialize(f.Cause, seen)
	}
	if len(f.Errors) > 0 {
		out["errors"] = serializeAll(f.Errors, seen)
	}
	return out
}

func serializeAll(errs []error, seen map[*Failure]bool) []map[string]any {
	members := make([]map[string]any, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			members = append(members, serialize(e, seen))
		}
	}
	return members
}

// MarshalJSON encodes the failure using Serialize.
func (f *Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(Serialize(f))
}
