package id_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/xraph/gradebook/id"
)

func TestNewAuditID(t *testing.T) {
	i := id.NewAuditID()
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixAudit {
		t.Errorf("expected prefix %q, got %q", id.PrefixAudit, i.Prefix())
	}
	if !strings.HasPrefix(i.String(), "audit_") {
		t.Errorf("unexpected string form %q", i.String())
	}
}

func TestNewAuditID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for range 100 {
		s := id.NewAuditID().String()
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate id %q", s)
		}
		seen[s] = struct{}{}
	}
}

func TestParseAuditID(t *testing.T) {
	original := id.NewAuditID()
	parsed, err := id.ParseAuditID(original.String())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
	}
}

func TestParseAuditID_RejectsOtherPrefix(t *testing.T) {
	other := id.New("grade")
	if _, err := id.ParseAuditID(other.String()); err == nil {
		t.Fatalf("expected error for %q", other.String())
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "not-an-id", "audit_"} {
		t.Run(in, func(t *testing.T) {
			if _, err := id.Parse(in); err == nil {
				t.Errorf("expected error for %q", in)
			}
		})
	}
}

func TestNil(t *testing.T) {
	if !id.Nil.IsNil() {
		t.Fatal("Nil should be nil")
	}
	if id.Nil.String() != "" {
		t.Errorf("expected empty string, got %q", id.Nil.String())
	}
	if id.Nil.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", id.Nil.Prefix())
	}
}

func TestJSON(t *testing.T) {
	type wrapper struct {
		ID id.AuditID `json:"id"`
	}
	in := wrapper{ID: id.NewAuditID()}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out wrapper
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.ID.String() != in.ID.String() {
		t.Errorf("got %q, want %q", out.ID.String(), in.ID.String())
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewAuditID()
	v, err := original.Value()
	if err != nil {
		t.Fatal(err)
	}

	var fromString id.ID
	if err := fromString.Scan(v); err != nil {
		t.Fatal(err)
	}
	if fromString.String() != original.String() {
		t.Errorf("got %q, want %q", fromString.String(), original.String())
	}

	var fromBytes id.ID
	if err := fromBytes.Scan([]byte(original.String())); err != nil {
		t.Fatal(err)
	}
	if fromBytes.String() != original.String() {
		t.Errorf("got %q, want %q", fromBytes.String(), original.String())
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil {
		t.Fatal(err)
	}
	if !fromNil.IsNil() {
		t.Error("expected Nil after scanning NULL")
	}

	nv, err := id.Nil.Value()
	if err != nil {
		t.Fatal(err)
	}
	if nv != nil {
		t.Errorf("expected nil driver value, got %v", nv)
	}

	var bad id.ID
	if err := bad.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}
