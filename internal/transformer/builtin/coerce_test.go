package builtin

import (
	"encoding/json"
	"testing"

	"ytetl/internal/records"
	"ytetl/internal/schema"
)

/*
TestCast covers the cast table between the decoded kinds (string,
json.Number, bool, nested values) and the three declared types.
*/
func TestCast(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		typ    schema.Type
		want   any
		wantOK bool
	}{
		{"string to long", " 42 ", schema.Long, int64(42), true},
		{"decimal string truncates", "7.9", schema.Long, int64(7), true},
		{"garbage to long", "n/a", schema.Long, nil, false},
		{"number to long", json.Number("9007199254740993"), schema.Long, int64(9007199254740993), true},
		{"bool to long", true, schema.Long, int64(1), true},
		{"string to bool", "TRUE", schema.Boolean, true, true},
		{"yes is not a bool", "yes", schema.Boolean, nil, false},
		{"number to bool", json.Number("0"), schema.Boolean, false, true},
		{"int64 to bool", int64(3), schema.Boolean, true, true},
		{"number to string", json.Number("1.50"), schema.String, "1.5", true},
		{"int number to string", json.Number("10"), schema.String, "10", true},
		{"bool to string", false, schema.String, "false", true},
		{"object to string", map[string]any{"a": json.Number("1")}, schema.String, `{"a":1}`, true},
		{"nil", nil, schema.String, nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Cast(tc.in, tc.typ)
			if ok != tc.wantOK || got != tc.want {
				t.Fatalf("Cast(%#v, %s) = (%#v, %v); want (%#v, %v)", tc.in, tc.typ, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestMakeChoice(t *testing.T) {
	c := MakeChoice(json.Number("5"))
	if c.Long == nil || *c.Long != 5 || c.String != nil || c.Boolean != nil {
		t.Fatalf("MakeChoice(5) = %+v", c)
	}
	c = MakeChoice("5")
	if c.String == nil || *c.String != "5" || c.Long != nil {
		t.Fatalf("MakeChoice(\"5\") = %+v", c)
	}
	c = MakeChoice(true)
	if c.Boolean == nil || !*c.Boolean {
		t.Fatalf("MakeChoice(true) = %+v", c)
	}
	// Choice member of the declared type wins over conversion.
	if got, _ := Cast(c, schema.Boolean); got != true {
		t.Fatalf("Cast(choice, boolean) = %#v", got)
	}
	if got, _ := Cast(MakeChoice("12"), schema.Long); got != int64(12) {
		t.Fatalf("Cast(choice{string}, long) = %#v", got)
	}
}

func TestParseChoicePolicy(t *testing.T) {
	if p, err := ParseChoicePolicy(""); err != nil || p != ChoiceMakeStruct {
		t.Fatalf("empty: (%q, %v)", p, err)
	}
	if _, err := ParseChoicePolicy("project"); err != nil {
		t.Fatalf("project: %v", err)
	}
	if _, err := ParseChoicePolicy("widen"); err == nil {
		t.Fatalf("widen: want error")
	}
}

func TestChoiceFields(t *testing.T) {
	got := map[string]bool{}
	for _, f := range ChoiceFields(schema.Statistics) {
		got[f.Target] = true
	}
	for _, want := range []string{"views", "category_id", "comments_disabled", "tags"} {
		if !got[want] {
			t.Fatalf("ChoiceFields missing %s", want)
		}
	}
	if got["title"] || got["region"] {
		t.Fatalf("ChoiceFields includes plain string fields: %v", got)
	}
}

func TestDropNullFields(t *testing.T) {
	in := []records.Record{{"a": nil, "b": "x"}}
	out := DropNullFields{}.Apply(in)
	if _, ok := out[0]["a"]; ok || out[0]["b"] != "x" {
		t.Fatalf("got %#v", out[0])
	}
}
