package workflow

import "strings"

// interpolate resolves `{{ inputs.X }}` and `{{ steps.<id>.output }}`
// references inside a parameter string against the run's current
// inputs and recorded step outputs. Unresolvable references are left
// verbatim, consistent with the step-output map growing incrementally
// as prior steps complete.
func interpolate(value string, inputs map[string]string, stepOutputs map[string]string) string {
	var b strings.Builder
	for {
		start := strings.Index(value, "{{")
		if start == -1 {
			b.WriteString(value)
			break
		}
		end := strings.Index(value[start:], "}}")
		if end == -1 {
			b.WriteString(value)
			break
		}
		end += start

		b.WriteString(value[:start])
		expr := strings.TrimSpace(value[start+2 : end])
		resolved, ok := resolveRef(expr, inputs, stepOutputs)
		if ok {
			b.WriteString(resolved)
		} else {
			b.WriteString(value[start : end+2])
		}
		value = value[end+2:]
	}
	return b.String()
}

func resolveRef(expr string, inputs map[string]string, stepOutputs map[string]string) (string, bool) {
	parts := strings.Split(expr, ".")

	switch {
	case len(parts) == 2 && parts[0] == "inputs":
		v, ok := inputs[parts[1]]
		return v, ok
	case len(parts) == 3 && parts[0] == "steps" && parts[2] == "output":
		v, ok := stepOutputs[parts[1]]
		return v, ok
	default:
		return "", false
	}
}

// interpolateParams applies interpolate to every value in params,
// returning a new map.
func interpolateParams(params map[string]string, inputs map[string]string, stepOutputs map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = interpolate(v, inputs, stepOutputs)
	}
	return out
}
