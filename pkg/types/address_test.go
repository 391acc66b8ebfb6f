package types

import "testing"

func TestAddressNormalizeDefaultsCountry(t *testing.T) {
	addr := Address{FullName: " Ana ", Line1: "1 Main", City: "Austin", State: "TX", PostalCode: "78701", Country: " us "}
	got := addr.Normalize()
	if got.FullName != "Ana" {
		t.Fatalf("expected trimmed name, got %q", got.FullName)
	}
	if got.Country != "US" {
		t.Fatalf("expected US, got %q", got.Country)
	}

	empty := Address{}.Normalize()
	if empty.Country != "US" {
		t.Fatalf("expected default US, got %q", empty.Country)
	}
}

func TestAddressValidate(t *testing.T) {
	addr := Address{FullName: "Ana", Line1: "1 Main", City: "Austin", State: "TX", PostalCode: "78701"}
	if err := addr.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	addr.City = "  "
	if err := addr.Validate(); err == nil {
		t.Fatal("expected missing city error")
	}
}
