// test_helper.go holds helpers that pull string fields out of decoded JSON
// responses in the handler tests.
package restapi

type testingFatalf interface {
	Fatalf(format string, args ...any)
}

// collectStringField returns field key of every object in list, for example
// the uic of each station in a search result.
func collectStringField(t testingFatalf, list []any, key string) (values []string) {
	for i, item := range list {
		object, ok := item.(map[string]any)
		if !ok {
			t.Fatalf("item %d is not a map[string]any", i)
		}
		value, ok := object[key]
		if !ok {
			t.Fatalf("item %d missing key %q", i, key)
		}
		s, ok := value.(string)
		if !ok {
			t.Fatalf("item %d key %q is not a string: %T", i, key, value)
		}
		values = append(values, s)
	}
	return values
}

// collectNestedStringField returns field key of the object found under
// parent in every element of list, for example journey.datedVehicleJourneyRef
// of each positioned train.
func collectNestedStringField(t testingFatalf, list []any, parent, key string) (values []string) {
	for i, item := range list {
		object, ok := item.(map[string]any)
		if !ok {
			t.Fatalf("item %d is not a map[string]any", i)
		}
		nested, ok := object[parent].(map[string]any)
		if !ok {
			t.Fatalf("item %d key %q is not an object: %T", i, parent, object[parent])
		}
		values = append(values, collectStringField(t, []any{nested}, key)...)
	}
	return values
}
