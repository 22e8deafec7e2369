package etl

import (
	"fmt"

	"github.com/BartekS5/astramigrate/pkg/models"
	"github.com/BartekS5/astramigrate/pkg/utils"
	"go.mongodb.org/mongo-driver/bson"
)

// Transformer turns batches into the shape each store family writes.
// Column names and values pass through; only value encoding changes.
type Transformer struct{}

func NewTransformer() *Transformer {
	return &Transformer{}
}

// ToSQLRows lays records out in column order with SQL friendly values.
func (t *Transformer) ToSQLRows(batch models.Batch) ([][]interface{}, error) {
	rows := make([][]interface{}, len(batch.Records))
	for i, rec := range batch.Records {
		row := make([]interface{}, len(batch.Columns))
		for j, col := range batch.Columns {
			v, err := utils.ToSQLValue(rec[col])
			if err != nil {
				return nil, fmt.Errorf("record %d column %s: %w", i, col, err)
			}
			row[j] = v
		}
		rows[i] = row
	}
	return rows, nil
}

// ToDocument builds one standalone document keeping the column order.
func (t *Transformer) ToDocument(columns []string, rec models.Record) bson.D {
	doc := make(bson.D, 0, len(columns))
	for _, col := range columns {
		doc = append(doc, bson.E{Key: col, Value: utils.ToMongoValue(rec[col])})
	}
	return doc
}

// ToDocuments converts a whole batch for InsertMany.
func (t *Transformer) ToDocuments(batch models.Batch) []interface{} {
	docs := make([]interface{}, len(batch.Records))
	for i, rec := range batch.Records {
		docs[i] = t.ToDocument(batch.Columns, rec)
	}
	return docs
}

// ColumnKinds infers a column type class from the first non-nil value of
// each column. It only feeds AutoCreate.
func (t *Transformer) ColumnKinds(batch models.Batch) []ColumnKind {
	kinds := make([]ColumnKind, len(batch.Columns))
	for j, col := range batch.Columns {
		kinds[j] = KindText
		for _, rec := range batch.Records {
			if v := rec[col]; v != nil {
				kinds[j] = kindOf(v)
				break
			}
		}
	}
	return kinds
}
