package instrument

import "go.opentelemetry.io/otel/attribute"

// Label keys used by the request stages.
const (
	RouteKey        = attribute.Key("route")
	ErrorCodeKey    = attribute.Key("error_code")
	ErrorMessageKey = attribute.Key("error_message")
)

// Labels builds a canonical label set. The set is sorted by key and
// de-duplicated (last value wins), so the same pairs in any order produce
// an equivalent set.
func Labels(kvs ...attribute.KeyValue) attribute.Set {
	return attribute.NewSet(kvs...)
}

// Route returns the label set for a single route.
func Route(path string) attribute.Set {
	return attribute.NewSet(RouteKey.String(path))
}

// LabelMap flattens a label set into string values for serialization.
func LabelMap(set attribute.Set) map[string]string {
	m := make(map[string]string, set.Len())
	iter := set.Iter()
	for iter.Next() {
		kv := iter.Attribute()
		m[string(kv.Key)] = kv.Value.Emit()
	}
	return m
}

// key identifies a bound handle: instrument name plus label-set identity.
type key struct {
	name   string
	labels attribute.Distinct
}

func makeKey(name string, set attribute.Set) key {
	return key{name: name, labels: set.Equivalent()}
}
