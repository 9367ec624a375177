package logging

import "sort"

func cloneFields(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// mergeFields layers context fields, persistent fields and call-site fields,
// later layers winning, and returns them sorted by key.
func mergeFields(layers ...map[string]interface{}) []LogField {
	merged := make(map[string]interface{})
	for _, layer := range layers {
		for k, v := range layer {
			merged[k] = v
		}
	}
	if len(merged) == 0 {
		return nil
	}

	out := make([]LogField, 0, len(merged))
	for k, v := range merged {
		out = append(out, LogField{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func fieldsToMap(fields []LogField) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return m
}
