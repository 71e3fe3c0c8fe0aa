package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"reflect"
)

// QueryParams narrows a query.
type QueryParams struct {
	// Where is the condition without the WHERE keyword, for example
	// "TimeUnixMs > ? AND SliceID = ?".
	Where string
	Args  []any

	// OrderBy is the ordering without the ORDER BY keywords, for example
	// "TimeUnixMs DESC".
	OrderBy string

	// Limit caps the number of rows; 0 returns all of them. Offset only
	// applies with a limit.
	Limit  int
	Offset int
}

// DataReader reads the rows of a recording back into structs.
type DataReader interface {
	// MapTable tells the reader which struct the rows of a table decode into.
	// The tables a Sampler and an ExecRecorder write are mapped already.
	MapTable(tableName string, sampleEntry any)

	// Query returns the matching rows, as pointers to the mapped struct, and
	// the number of rows that match without the limit.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

type sqliteReader struct {
	*sql.DB

	typeMap map[string]reflect.Type
}

// NewReader opens a recording for reading.
func NewReader(dbFilename string) (DataReader, error) {
	if _, err := os.Stat(dbFilename); err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}

	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}

	r := &sqliteReader{
		DB:      db,
		typeMap: make(map[string]reflect.Type),
	}

	r.MapTable(ExecTable, ExecInfo{})
	r.MapTable(MetricSampleTable, MetricSample{})
	r.MapTable(SliceSampleTable, SliceSample{})
	r.MapTable(AdjustmentTable, AdjustmentEntry{})

	return r, nil
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	r.typeMap[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	structType, ok := r.typeMap[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("no mapping found for table: %s", tableName)
	}

	where := ""
	if params.Where != "" {
		where = " WHERE " + params.Where
	}

	var total int

	err := r.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s%s", tableName, where),
		params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", tableName, err)
	}

	query := fmt.Sprintf("SELECT * FROM %s%s", tableName, where)

	if params.OrderBy != "" {
		query += " ORDER BY " + params.OrderBy
	}

	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", params.Limit)
		if params.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", params.Offset)
		}
	}

	rows, err := r.QueryContext(ctx, query, params.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query %s: %w", tableName, err)
	}
	defer rows.Close()

	results, err := scanRows(rows, structType)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", tableName, err)
	}

	return results, total, nil
}

// scanRows decodes each row into a new struct. Columns without a field of the
// same name are discarded.
func scanRows(rows *sql.Rows, structType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []any

	for rows.Next() {
		ptr := reflect.New(structType)
		targets := make([]any, len(columns))

		for i, col := range columns {
			field := ptr.Elem().FieldByName(col)
			if field.IsValid() && field.CanSet() {
				targets[i] = field.Addr().Interface()
				continue
			}

			var discard any
			targets[i] = &discard
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, ptr.Interface())
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
