package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/cockroachdb/errors"
)

// GlueAPI is the subset of *glue.Client used by Glue.
type GlueAPI interface {
	GetTable(ctx context.Context, in *glue.GetTableInput, optFns ...func(*glue.Options)) (*glue.GetTableOutput, error)
	GetPartitions(ctx context.Context, in *glue.GetPartitionsInput, optFns ...func(*glue.Options)) (*glue.GetPartitionsOutput, error)
	CreateDatabase(ctx context.Context, in *glue.CreateDatabaseInput, optFns ...func(*glue.Options)) (*glue.CreateDatabaseOutput, error)
	CreateTable(ctx context.Context, in *glue.CreateTableInput, optFns ...func(*glue.Options)) (*glue.CreateTableOutput, error)
	UpdateTable(ctx context.Context, in *glue.UpdateTableInput, optFns ...func(*glue.Options)) (*glue.UpdateTableOutput, error)
}

// Glue implements Catalog on the AWS Glue Data Catalog.
type Glue struct {
	api GlueAPI

	// dbSeen caches successful EnsureDatabase calls per database name.
	mu     sync.Mutex
	dbSeen map[string]bool
}

// NewGlue wraps a Glue client.
func NewGlue(api GlueAPI) *Glue {
	return &Glue{api: api, dbSeen: map[string]bool{}}
}

func isNotFound(err error) bool {
	var nf *types.EntityNotFoundException
	return errors.As(err, &nf)
}

func isAlreadyExists(err error) bool {
	var ae *types.AlreadyExistsException
	return errors.As(err, &ae)
}

func (g *Glue) TableExists(ctx context.Context, db, table string) (bool, error) {
	_, err := g.GetTable(ctx, db, table)
	if errors.Is(err, ErrTableNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (g *Glue) GetTable(ctx context.Context, db, table string) (*Table, error) {
	out, err := g.api.GetTable(ctx, &glue.GetTableInput{
		DatabaseName: aws.String(db),
		Name:         aws.String(table),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errors.Mark(errors.Wrapf(err, "catalog: get table %s.%s", db, table), ErrTableNotFound)
		}
		return nil, errors.Wrapf(err, "catalog: get table %s.%s", db, table)
	}
	return fromGlueTable(db, out.Table), nil
}

func (g *Glue) Partitions(ctx context.Context, db, table, expression string) ([]Partition, error) {
	in := &glue.GetPartitionsInput{
		DatabaseName: aws.String(db),
		TableName:    aws.String(table),
	}
	if expression != "" {
		in.Expression = aws.String(expression)
	}
	var parts []Partition
	p := glue.NewGetPartitionsPaginator(g.api, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			if isNotFound(err) {
				return nil, errors.Mark(errors.Wrapf(err, "catalog: partitions %s.%s", db, table), ErrTableNotFound)
			}
			return nil, errors.Wrapf(err, "catalog: partitions %s.%s", db, table)
		}
		for _, gp := range page.Partitions {
			part := Partition{Values: gp.Values}
			if gp.StorageDescriptor != nil {
				part.Location = aws.ToString(gp.StorageDescriptor.Location)
			}
			parts = append(parts, part)
		}
	}
	return parts, nil
}

func (g *Glue) EnsureDatabase(ctx context.Context, db string) (bool, error) {
	g.mu.Lock()
	seen := g.dbSeen[db]
	g.mu.Unlock()
	if seen {
		return false, nil
	}

	_, err := g.api.CreateDatabase(ctx, &glue.CreateDatabaseInput{
		DatabaseInput: &types.DatabaseInput{Name: aws.String(db)},
	})
	created := err == nil
	if err != nil && !isAlreadyExists(err) {
		return false, errors.Wrapf(err, "catalog: create database %s", db)
	}
	g.mu.Lock()
	g.dbSeen[db] = true
	g.mu.Unlock()
	return created, nil
}

func (g *Glue) UpsertTable(ctx context.Context, t Table, mode UpsertMode) ([]string, error) {
	existing, err := g.GetTable(ctx, t.Database, t.Name)
	if errors.Is(err, ErrTableNotFound) {
		_, err = g.api.CreateTable(ctx, &glue.CreateTableInput{
			DatabaseName: aws.String(t.Database),
			TableInput:   toGlueTableInput(t),
		})
		if err != nil && !isAlreadyExists(err) {
			return nil, errors.Wrapf(err, "catalog: create table %s.%s", t.Database, t.Name)
		}
		if err == nil {
			return nil, nil
		}
		// Lost a creation race; treat as an update of what is there now.
		existing, err = g.GetTable(ctx, t.Database, t.Name)
	}
	if err != nil {
		return nil, err
	}

	var added []string
	next := t
	if mode == Evolve {
		next.Columns, added, err = MergeColumns(existing.Columns, t.Columns)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", t.Database, t.Name)
		}
		if len(added) == 0 {
			return nil, nil
		}
	}
	if next.Location == "" {
		next.Location = existing.Location
	}
	_, err = g.api.UpdateTable(ctx, &glue.UpdateTableInput{
		DatabaseName: aws.String(t.Database),
		TableInput:   toGlueTableInput(next),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "catalog: update table %s.%s", t.Database, t.Name)
	}
	return added, nil
}

func fromGlueTable(db string, gt *types.Table) *Table {
	t := &Table{Database: db}
	if gt == nil {
		return t
	}
	t.Name = aws.ToString(gt.Name)
	if gt.DatabaseName != nil {
		t.Database = aws.ToString(gt.DatabaseName)
	}
	t.Classification = strings.ToLower(gt.Parameters["classification"])
	if sd := gt.StorageDescriptor; sd != nil {
		t.Location = aws.ToString(sd.Location)
		t.Columns = fromGlueColumns(sd.Columns)
		if t.Classification == "" && sd.Parameters != nil {
			t.Classification = strings.ToLower(sd.Parameters["classification"])
		}
	}
	t.PartitionKeys = fromGlueColumns(gt.PartitionKeys)
	return t
}

func fromGlueColumns(cols []types.Column) []Column {
	if len(cols) == 0 {
		return nil
	}
	out := make([]Column, len(cols))
	for i, c := range cols {
		out[i] = Column{Name: aws.ToString(c.Name), Type: aws.ToString(c.Type)}
	}
	return out
}

func toGlueColumns(cols []Column) []types.Column {
	out := make([]types.Column, len(cols))
	for i, c := range cols {
		out[i] = types.Column{Name: aws.String(c.Name), Type: aws.String(c.Type)}
	}
	return out
}

const (
	parquetInputFormat  = "org.apache.hadoop.hive.ql.io.parquet.MapredParquetInputFormat"
	parquetOutputFormat = "org.apache.hadoop.hive.ql.io.parquet.MapredParquetOutputFormat"
	parquetSerde        = "org.apache.hadoop.hive.ql.io.parquet.serde.ParquetHiveSerDe"
)

// toGlueTableInput describes t as an external Parquet table.
func toGlueTableInput(t Table) *types.TableInput {
	classification := t.Classification
	if classification == "" {
		classification = "parquet"
	}
	return &types.TableInput{
		Name:      aws.String(t.Name),
		TableType: aws.String("EXTERNAL_TABLE"),
		Parameters: map[string]string{
			"classification": classification,
			"EXTERNAL":       "TRUE",
		},
		PartitionKeys: toGlueColumns(t.PartitionKeys),
		StorageDescriptor: &types.StorageDescriptor{
			Columns:      toGlueColumns(t.Columns),
			Location:     aws.String(t.Location),
			InputFormat:  aws.String(parquetInputFormat),
			OutputFormat: aws.String(parquetOutputFormat),
			SerdeInfo: &types.SerDeInfo{
				SerializationLibrary: aws.String(parquetSerde),
			},
		},
	}
}
