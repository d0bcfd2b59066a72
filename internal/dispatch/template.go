package dispatch

import (
	"fmt"
	"strconv"
	"strings"
)

// renderTemplate substitutes ${path.with.dots} placeholders in tmpl against
// values, per spec.md §6. Numeric path segments index arrays. Values render
// as strings; numeric magnitudes ≥ 1000 compress to K/M suffixes with two
// decimal places; identifier-like paths ("slot", anything containing
// "signature") render verbatim without the K/M treatment. A path with no
// match in values is left untouched, placeholder and all.
func renderTemplate(tmpl string, values map[string]any) string {
	var out strings.Builder
	i := 0
	for i < len(tmpl) {
		start := strings.Index(tmpl[i:], "${")
		if start == -1 {
			out.WriteString(tmpl[i:])
			break
		}
		start += i
		out.WriteString(tmpl[i:start])

		end := strings.Index(tmpl[start:], "}")
		if end == -1 {
			out.WriteString(tmpl[start:])
			break
		}
		end += start

		path := tmpl[start+2 : end]
		resolved, ok := resolvePath(values, path)
		if !ok {
			out.WriteString(tmpl[start : end+1])
		} else {
			out.WriteString(formatValue(path, resolved))
		}
		i = end + 1
	}
	return out.String()
}

func resolvePath(values map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var cur any = values
	for _, seg := range segments {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// identifierPath reports whether path should render verbatim rather than
// receive numeric K/M compression.
func identifierPath(path string) bool {
	lower := strings.ToLower(path)
	return lower == "slot" || strings.Contains(lower, "signature")
}

func formatValue(path string, v any) string {
	switch n := v.(type) {
	case float64:
		if identifierPath(path) {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
		return formatNumeric(n)
	case int64:
		if identifierPath(path) {
			return strconv.FormatInt(n, 10)
		}
		return formatNumeric(float64(n))
	case int:
		if identifierPath(path) {
			return strconv.Itoa(n)
		}
		return formatNumeric(float64(n))
	case uint64:
		if identifierPath(path) {
			return strconv.FormatUint(n, 10)
		}
		return formatNumeric(float64(n))
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatNumeric(n float64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1_000_000:
		return strconv.FormatFloat(n/1_000_000, 'f', 2, 64) + "M"
	case abs >= 1_000:
		return strconv.FormatFloat(n/1_000, 'f', 2, 64) + "K"
	default:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
}
