package json

import (
	"encoding/json"
	"io"
	"reflect"
	"strings"
	"testing"

	"ytetl/internal/records"
)

/*
TestDecoderNext_SkipsPrimitivesWhenAllowed verifies Decoder.Next on a mixed
NDJSON stream with SkipNonObjects set: primitives are dropped, objects are
returned in order, and io.EOF ends the stream.
*/
func TestDecoderNext_SkipsPrimitivesWhenAllowed(t *testing.T) {
	const ndjson = `{"video_id":"a","views":10}
42
{"video_id":"b","views":20}
`
	d := NewDecoder(strings.NewReader(ndjson), Options{SkipNonObjects: true})

	rec, err := d.Next()
	if err != nil {
		t.Fatalf("Next() 1: %v", err)
	}
	if got, ok := rec["views"].(json.Number); !ok || got.String() != "10" {
		t.Fatalf("rec[views] = %#v (%T); want json.Number(10)", rec["views"], rec["views"])
	}
	rec, err = d.Next()
	if err != nil {
		t.Fatalf("Next() 2: %v", err)
	}
	if rec["video_id"] != "b" {
		t.Fatalf("rec[video_id] = %#v; want b", rec["video_id"])
	}
	if _, err := d.Next(); err != io.EOF {
		t.Fatalf("Next() 3 err = %v; want io.EOF", err)
	}
}

/*
TestDecoderNext_StrictRejectsPrimitive verifies that without SkipNonObjects
a primitive top-level value is an error rather than silently dropped.
*/
func TestDecoderNext_StrictRejectsPrimitive(t *testing.T) {
	d := NewDecoder(strings.NewReader("1\n"), Options{})
	if _, err := d.Next(); err == nil || err == io.EOF {
		t.Fatalf("Next() err = %v; want a decode error", err)
	}
}

func TestDecodeAll_EmptyInput(t *testing.T) {
	recs, err := DecodeAll(strings.NewReader(""), DefaultOptions)
	if err != nil {
		t.Fatalf("DecodeAll(empty): %v", err)
	}
	if recs != nil {
		t.Fatalf("DecodeAll(empty) = %#v; want nil", recs)
	}
}

func TestDecodeAll_ObjectRoot(t *testing.T) {
	recs, err := DecodeBytes([]byte(`{"video_id":"x","likes":3}`), Options{})
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	want := []records.Record{{"video_id": "x", "likes": json.Number("3")}}
	if !reflect.DeepEqual(recs, want) {
		t.Fatalf("got %#v\nwant %#v", recs, want)
	}
}

/*
TestDecodeAll_ArrayRoot covers the three array cases: expanded when allowed,
rejected when not, and rejected when an element is not an object.
*/
func TestDecodeAll_ArrayRoot(t *testing.T) {
	recs, err := DecodeAll(strings.NewReader(`[{"id":1},{"id":2}]`), Options{AllowArrays: true})
	if err != nil {
		t.Fatalf("allowed: %v", err)
	}
	if len(recs) != 2 || recs[1]["id"].(json.Number).String() != "2" {
		t.Fatalf("allowed: got %#v", recs)
	}

	if _, err := DecodeAll(strings.NewReader(`[{"id":1}]`), Options{}); err == nil {
		t.Fatalf("disallowed: want error")
	}
	if _, err := DecodeAll(strings.NewReader(`[{"id":1}, 2]`), Options{AllowArrays: true}); err == nil {
		t.Fatalf("non-object element: want error")
	}
}

func TestDecodeAll_PrimitiveRoot(t *testing.T) {
	if _, err := DecodeAll(strings.NewReader(`42`), Options{}); err == nil {
		t.Fatalf("strict: want error")
	}
	recs, err := DecodeAll(strings.NewReader("42\n{\"id\":1}\n"), DefaultOptions)
	if err != nil {
		t.Fatalf("lenient: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("lenient: got %d records; want 1", len(recs))
	}
}

/*
TestDecodeAll_NDJSONBeyondBuffer checks that objects following the root are
read even when they are not in the decoder's first buffered chunk.
*/
func TestDecodeAll_NDJSONBeyondBuffer(t *testing.T) {
	var sb strings.Builder
	const n = 2000
	for i := 0; i < n; i++ {
		sb.WriteString(`{"video_id":"v","title":"`)
		sb.WriteString(strings.Repeat("x", 40))
		sb.WriteString("\"}\n")
	}
	recs, err := DecodeAll(strings.NewReader(sb.String()), DefaultOptions)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(recs) != n {
		t.Fatalf("len(recs) = %d; want %d", len(recs), n)
	}
}

func TestDecodeAll_TruncatedTrailer(t *testing.T) {
	if _, err := DecodeAll(strings.NewReader("{\"id\":1}\n{\"id\":"), DefaultOptions); err == nil {
		t.Fatalf("want error for truncated trailing object")
	}
}
