package flatten

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytetl/internal/records"
)

const categoryDoc = `{
  "kind": "youtube#videoCategoryListResponse",
  "etag": "\"ld9biNPKjAjgjV7EZ4EKeEGrhao/1v2mrzYSYG6onNLt2qTj13hkQZk\"",
  "items": [
    {
      "kind": "youtube#videoCategory",
      "etag": "\"ld9biNPKjAjgjV7EZ4EKeEGrhao/Xy1mB4_yLrHy_BmKmPBggty2mZQ\"",
      "id": "1",
      "snippet": {
        "channelId": "UCBR8-60-B28hp2BmDPdntcQ",
        "title": "Film & Animation",
        "assignable": true
      }
    }
  ]
}`

func TestFlatten_CategoryExample(t *testing.T) {
	res := Flatten([]byte(categoryDoc))
	require.Len(t, res.Rows, 1)
	assert.Empty(t, res.Reason)
	assert.Empty(t, res.Missing)
	assert.Equal(t, []string{"kind", "etag", "id", "snippet_channelid", "snippet_title", "snippet_assignable"}, res.Columns)

	want := records.Record{
		"kind":               "youtube#videoCategory",
		"etag":               `"ld9biNPKjAjgjV7EZ4EKeEGrhao/Xy1mB4_yLrHy_BmKmPBggty2mZQ"`,
		"id":                 "1",
		"snippet_channelid":  "UCBR8-60-B28hp2BmDPdntcQ",
		"snippet_title":      "Film & Animation",
		"snippet_assignable": true,
	}
	assert.Equal(t, want, res.Records()[0])
	assert.Len(t, res.Fields(), 6)
}

func TestFlatten_EmptyResults(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		reason string
	}{
		{"empty items", `{"items": []}`, ReasonNoItems},
		{"no items key", `{"foo":"bar"}`, ReasonUnexpectedShape},
		{"items not a list", `{"items": {"a": 1}}`, ReasonUnexpectedShape},
		{"top-level array", `[{"kind":"x"}]`, ReasonUnexpectedShape},
		{"malformed", `{"items": [`, ReasonMalformed},
		{"not json", "\x00\xff garbage", ReasonMalformed},
		{"trailing data", `{"items": []} {}`, ReasonMalformed},
		{"empty input", ``, ReasonMalformed},
		{"no expected fields", `{"items": [{"foo": 1}, {"bar": {"baz": 2}}]}`, ReasonNoExpected},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Flatten([]byte(tc.in))
			assert.True(t, res.Empty())
			assert.Equal(t, tc.reason, res.Reason)
		})
	}
}

func TestFlatten_PartialColumnsAndCoercion(t *testing.T) {
	var logs bytes.Buffer
	f := Flattener{Log: zerolog.New(&logs)}

	res := f.Flatten([]byte(`{"items": [
		{"id": 10, "snippet": {"assignable": "FALSE"}},
		{"id": "11", "snippet": {"assignable": "sometimes", "title": "Music"}},
		"junk"
	]}`))
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []string{"id", "snippet_title", "snippet_assignable"}, res.Columns)
	assert.Equal(t, []string{"kind", "etag", "snippet.channelId"}, res.Missing)

	recs := res.Records()
	assert.Equal(t, records.Record{"id": "10", "snippet_title": nil, "snippet_assignable": false}, recs[0])
	assert.Equal(t, records.Record{"id": "11", "snippet_title": "Music", "snippet_assignable": nil}, recs[1])

	out := logs.String()
	assert.Equal(t, 1, strings.Count(out, "missing expected keys"))
	assert.Contains(t, out, "skipping non-object item")
}

func TestFlatten_LogsShape(t *testing.T) {
	var logs bytes.Buffer
	Flattener{Log: zerolog.New(&logs)}.Flatten([]byte(`{"foo":"bar","baz":1}`))
	assert.Contains(t, logs.String(), `"type":"object"`)
	assert.Contains(t, logs.String(), `"keys":["baz","foo"]`)
}
