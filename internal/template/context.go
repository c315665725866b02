// Package template renders {{ name }} placeholders in fallback payloads.
package template

// Merge combines variable sets. Later sets override earlier ones.
func Merge(sets ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}
