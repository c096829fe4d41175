package tests

import (
	"encoding/json"
	"reflect"
	"testing"
)

// sameJSON reports whether two documents decode to the same value.
func sameJSON(t *testing.T, got, want []byte) bool {
	t.Helper()
	var a, b any
	if err := json.Unmarshal(got, &a); err != nil {
		t.Errorf("loaded document is not JSON: %v", err)
		return false
	}
	if err := json.Unmarshal(want, &b); err != nil {
		t.Errorf("expected document is not JSON: %v", err)
		return false
	}
	return reflect.DeepEqual(a, b)
}
