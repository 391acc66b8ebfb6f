package dbtypes

import (
	"reflect"
	"testing"
)

func TestTextArrayValueQuotesEntries(t *testing.T) {
	val, err := TextArray{"https://cdn.example/a.png", `say "hi"`, `a,b`}.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"https://cdn.example/a.png","say \"hi\"","a,b"}`
	if val != want {
		t.Fatalf("expected %s, got %v", want, val)
	}
}

func TestTextArrayScanRoundTrip(t *testing.T) {
	original := TextArray{"https://cdn.example/a.png", `back\slash`, "comma,inside"}
	raw, err := original.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	var scanned TextArray
	if err := scanned.Scan(raw); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !reflect.DeepEqual(original, scanned) {
		t.Fatalf("expected %v, got %v", original, scanned)
	}
}

func TestTextArrayScanUnquotedAndEmpty(t *testing.T) {
	var arr TextArray
	if err := arr.Scan([]byte("{a, b}")); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !reflect.DeepEqual(arr, TextArray{"a", "b"}) {
		t.Fatalf("unexpected %v", arr)
	}
	if err := arr.Scan(nil); err != nil || len(arr) != 0 {
		t.Fatalf("expected empty array, got %v err=%v", arr, err)
	}
	if err := arr.Scan(42); err == nil {
		t.Fatal("expected unsupported type error")
	}
	if err := arr.Scan(`{"open}`); err == nil {
		t.Fatal("expected unterminated quote error")
	}
}
