package sink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"ytetl/internal/records"
	"ytetl/internal/schema"
)

// parallelism is the parquet-go marshal parallelism. Files here are small.
const parallelism = 1

// StatisticsRow is the on-disk layout of one statistics row. region is the
// partition key and lives in the object path instead.
type StatisticsRow struct {
	VideoID             *string `parquet:"name=video_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	TrendingDate        *string `parquet:"name=trending_date, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Title               *string `parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	ChannelTitle        *string `parquet:"name=channel_title, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	CategoryID          *int64  `parquet:"name=category_id, type=INT64, repetitiontype=OPTIONAL"`
	PublishTime         *string `parquet:"name=publish_time, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Tags                *string `parquet:"name=tags, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Views               *int64  `parquet:"name=views, type=INT64, repetitiontype=OPTIONAL"`
	Likes               *int64  `parquet:"name=likes, type=INT64, repetitiontype=OPTIONAL"`
	Dislikes            *int64  `parquet:"name=dislikes, type=INT64, repetitiontype=OPTIONAL"`
	CommentCount        *int64  `parquet:"name=comment_count, type=INT64, repetitiontype=OPTIONAL"`
	ThumbnailLink       *string `parquet:"name=thumbnail_link, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	CommentsDisabled    *bool   `parquet:"name=comments_disabled, type=BOOLEAN, repetitiontype=OPTIONAL"`
	RatingsDisabled     *bool   `parquet:"name=ratings_disabled, type=BOOLEAN, repetitiontype=OPTIONAL"`
	VideoErrorOrRemoved *bool   `parquet:"name=video_error_or_removed, type=BOOLEAN, repetitiontype=OPTIONAL"`
	Description         *string `parquet:"name=description, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

// NewStatisticsRow copies a mapped record into a StatisticsRow. Values of an
// unexpected Go type are left null.
func NewStatisticsRow(r records.Record) StatisticsRow {
	str := func(k string) *string {
		if s, ok := r[k].(string); ok {
			return &s
		}
		return nil
	}
	long := func(k string) *int64 {
		if n, ok := r[k].(int64); ok {
			return &n
		}
		return nil
	}
	boolean := func(k string) *bool {
		if b, ok := r[k].(bool); ok {
			return &b
		}
		return nil
	}
	return StatisticsRow{
		VideoID:             str("video_id"),
		TrendingDate:        str("trending_date"),
		Title:               str("title"),
		ChannelTitle:        str("channel_title"),
		CategoryID:          long("category_id"),
		PublishTime:         str("publish_time"),
		Tags:                str("tags"),
		Views:               long("views"),
		Likes:               long("likes"),
		Dislikes:            long("dislikes"),
		CommentCount:        long("comment_count"),
		ThumbnailLink:       str("thumbnail_link"),
		CommentsDisabled:    boolean("comments_disabled"),
		RatingsDisabled:     boolean("ratings_disabled"),
		VideoErrorOrRemoved: boolean("video_error_or_removed"),
		Description:         str("description"),
	}
}

// EncodeStatistics writes rows as one SNAPPY-compressed Parquet file.
func EncodeStatistics(rows []records.Record) ([]byte, error) {
	var buf bytes.Buffer
	pw, err := writer.NewParquetWriter(writerfile.NewWriterFile(&buf), new(StatisticsRow), parallelism)
	if err != nil {
		return nil, errors.Wrap(err, "sink: create parquet writer")
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for i, r := range rows {
		if err := pw.Write(NewStatisticsRow(r)); err != nil {
			return nil, errors.Wrapf(err, "sink: write row %d", i)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, errors.Wrap(err, "sink: finalize parquet")
	}
	return buf.Bytes(), nil
}

// parquetTag is the parquet-go field tag for one column.
func parquetTag(f schema.Field) string {
	switch f.Type {
	case schema.Long:
		return fmt.Sprintf("name=%s, type=INT64, repetitiontype=OPTIONAL", f.Target)
	case schema.Boolean:
		return fmt.Sprintf("name=%s, type=BOOLEAN, repetitiontype=OPTIONAL", f.Target)
	default:
		return fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", f.Target)
	}
}

type jsonSchemaNode struct {
	Tag    string           `json:"Tag"`
	Fields []jsonSchemaNode `json:"Fields,omitempty"`
}

// JSONSchema renders fields as a parquet-go JSON schema. Every column is
// OPTIONAL.
func JSONSchema(fields []schema.Field) (string, error) {
	root := jsonSchemaNode{Tag: "name=parquet_go_root, repetitiontype=REQUIRED"}
	for _, f := range fields {
		if strings.ContainsAny(f.Target, ", =") {
			return "", errors.Newf("sink: column name %q is not encodable", f.Target)
		}
		root.Fields = append(root.Fields, jsonSchemaNode{Tag: parquetTag(f)})
	}
	b, err := json.Marshal(root)
	if err != nil {
		return "", errors.Wrap(err, "sink: marshal parquet schema")
	}
	return string(b), nil
}

// EncodeDynamic writes rows as one SNAPPY-compressed Parquet file whose
// schema is exactly fields. Keys outside fields are ignored.
func EncodeDynamic(fields []schema.Field, rows []records.Record) ([]byte, error) {
	sch, err := JSONSchema(fields)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	jw, err := writer.NewJSONWriter(sch, writerfile.NewWriterFile(&buf), parallelism)
	if err != nil {
		return nil, errors.Wrap(err, "sink: create parquet writer")
	}
	jw.CompressionType = parquet.CompressionCodec_SNAPPY
	for i, r := range rows {
		row := make(map[string]any, len(fields))
		for _, f := range fields {
			if v, ok := r[f.Target]; ok && v != nil {
				row[f.Target] = v
			}
		}
		b, err := json.Marshal(row)
		if err != nil {
			return nil, errors.Wrapf(err, "sink: marshal row %d", i)
		}
		if err := jw.Write(string(b)); err != nil {
			return nil, errors.Wrapf(err, "sink: write row %d", i)
		}
	}
	if err := jw.WriteStop(); err != nil {
		return nil, errors.Wrap(err, "sink: finalize parquet")
	}
	return buf.Bytes(), nil
}
