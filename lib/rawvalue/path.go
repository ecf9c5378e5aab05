package rawvalue

import (
	"strconv"
	"strings"
)

// Resolve walks a dotted path ("a.b.0.c") through nested maps and lists.
// A segment that parses as a non-negative integer indexes into a list,
// anything else is a map key. The second return is false when any segment
// fails to resolve.
func (v Value) Resolve(path string) (Value, bool) {
	if path == "" {
		return v, v.IsValid()
	}

	current := v
	for _, segment := range strings.Split(path, ".") {
		switch current.kind {
		case KindMap:
			current = current.Key(segment)
		case KindList:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(current.list) {
				return Value{}, false
			}
			current = current.list[idx]
		default:
			return Value{}, false
		}
		if !current.IsValid() {
			return Value{}, false
		}
	}
	return current, true
}
