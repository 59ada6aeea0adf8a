package ir

// TagsField is the attribute that carries a provider's tag list.
const TagsField = "tags"

// NormalizeTags replaces a tag list of {"Key": k, "Value": v} entries with a
// single map attribute {k: v}, so tags can be addressed as tags->'Name'.
//
// Entries without both keys are skipped. Items whose tags field is absent or
// not a list are returned unchanged.
func NormalizeTags(item Item) Item {
	raw, ok := item.Get(TagsField)
	if !ok {
		return item
	}

	var entries []map[string]any
	switch list := raw.(type) {
	case []any:
		for _, e := range list {
			switch kv := e.(type) {
			case map[string]any:
				entries = append(entries, kv)
			case map[string]string:
				entries = append(entries, stringMap(kv))
			}
		}
	case []map[string]any:
		entries = list
	case []map[string]string:
		for _, kv := range list {
			entries = append(entries, stringMap(kv))
		}
	default:
		return item
	}

	tags := make(map[string]any, len(entries))
	for _, kv := range entries {
		key, hasKey := kv["Key"]
		value, hasValue := kv["Value"]
		if !hasKey || !hasValue {
			continue
		}
		k, ok := key.(string)
		if !ok {
			continue
		}
		tags[k] = value
	}
	return WithOverride(item, TagsField, tags)
}

func stringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
