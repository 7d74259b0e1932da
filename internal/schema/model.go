// Package schema declares the column models of both datasets: the 17-column
// trending statistics table written by the batch normalizer and the
// six-column category reference table written by the event normalizer.
package schema

// Type is a logical column type. Values use the names the catalog and the
// mapping engine share.
type Type string

const (
	String  Type = "string"
	Long    Type = "long"
	Boolean Type = "boolean"
)

// HiveType is the catalog column type for t.
func (t Type) HiveType() string {
	switch t {
	case Long:
		return "bigint"
	case Boolean:
		return "boolean"
	default:
		return "string"
	}
}

// Field maps one source key to a typed target column.
type Field struct {
	Source string
	Target string
	Type   Type
}

// PartitionColumn is the Hive partition key of the statistics dataset.
const PartitionColumn = "region"

// Statistics is the raw statistics mapping. Source and target names are
// identical; the mapping is kept as pairs so that a rename is a one-line
// change.
var Statistics = []Field{
	{"video_id", "video_id", String},
	{"trending_date", "trending_date", String},
	{"title", "title", String},
	{"channel_title", "channel_title", String},
	{"category_id", "category_id", Long},
	{"publish_time", "publish_time", String},
	{"tags", "tags", String},
	{"views", "views", Long},
	{"likes", "likes", Long},
	{"dislikes", "dislikes", Long},
	{"comment_count", "comment_count", Long},
	{"thumbnail_link", "thumbnail_link", String},
	{"comments_disabled", "comments_disabled", Boolean},
	{"ratings_disabled", "ratings_disabled", Boolean},
	{"video_error_or_removed", "video_error_or_removed", Boolean},
	{"description", "description", String},
	{"region", "region", String},
}

// Category is the flattened category reference mapping. Sources are dotted
// paths into a single item of the document's "items" array.
var Category = []Field{
	{"kind", "kind", String},
	{"etag", "etag", String},
	{"id", "id", String},
	{"snippet.channelId", "snippet_channelid", String},
	{"snippet.title", "snippet_title", String},
	{"snippet.assignable", "snippet_assignable", Boolean},
}

// TypeOf returns the declared type of target in fields.
func TypeOf(fields []Field, target string) (Type, bool) {
	for _, f := range fields {
		if f.Target == target {
			return f.Type, true
		}
	}
	return "", false
}

// Choice is the struct form of a value whose kind varied across the input.
// Exactly one member is set when the value was recognized.
type Choice struct {
	String  *string
	Long    *int64
	Boolean *bool
}

// Member returns the value stored for t, or nil.
func (c Choice) Member(t Type) any {
	switch t {
	case String:
		if c.String != nil {
			return *c.String
		}
	case Long:
		if c.Long != nil {
			return *c.Long
		}
	case Boolean:
		if c.Boolean != nil {
			return *c.Boolean
		}
	}
	return nil
}

// Observed returns whichever member is set, or nil.
func (c Choice) Observed() any {
	switch {
	case c.String != nil:
		return *c.String
	case c.Long != nil:
		return *c.Long
	case c.Boolean != nil:
		return *c.Boolean
	}
	return nil
}
