package dbinspect

import (
	"context"
	"fmt"

	"github.com/debughub/probe/probeerr"
)

// ColumnInfo describes one column from PRAGMA table_info.
type ColumnInfo struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	NotNull      bool   `json:"notNull"`
	PrimaryKey   bool   `json:"primaryKey"`
	DefaultValue any    `json:"defaultValue,omitempty"`
}

// TablePage is one page of rows from fetchTablePage.
type TablePage struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	Page     int      `json:"page"`
	PageSize int      `json:"pageSize"`
}

// ListTables returns every user table name in dbID's sqlite_master.
func (in *Inspector) ListTables(ctx context.Context, dbID string) ([]string, error) {
	e, err := in.lookup(dbID)
	if err != nil {
		return nil, err
	}
	db, err := e.conn()
	if err != nil {
		return nil, err
	}
	qctx, cancel := queryContext(ctx)
	defer cancel()
	rows, err := db.QueryContext(qctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, classifyQueryErr(err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, classifyQueryErr(err)
		}
		tables = append(tables, name)
	}
	return tables, classifyQueryErr(rows.Err())
}

// DescribeTable returns column metadata for table within dbID.
func (in *Inspector) DescribeTable(ctx context.Context, dbID, table string) ([]ColumnInfo, error) {
	if !validIdentifier(table) {
		return nil, probeerr.New(probeerr.DomainDBInspect, probeerr.StageValidate, probeerr.CodeInvalidQuery, nil)
	}
	e, err := in.lookup(dbID)
	if err != nil {
		return nil, err
	}
	db, err := e.conn()
	if err != nil {
		return nil, err
	}
	qctx, cancel := queryContext(ctx)
	defer cancel()
	// table_info takes no bind placeholder for the table name; safe here
	// only because validIdentifier rejected anything but [A-Za-z0-9_].
	rows, err := db.QueryContext(qctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, classifyQueryErr(err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	found := false
	for rows.Next() {
		found = true
		var cid int
		var name, ctype string
		var notNull, pk int
		var dflt any
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, classifyQueryErr(err)
		}
		cols = append(cols, ColumnInfo{Name: name, Type: ctype, NotNull: notNull != 0, PrimaryKey: pk != 0, DefaultValue: dflt})
	}
	if err := rows.Err(); err != nil {
		return nil, classifyQueryErr(err)
	}
	if !found {
		return nil, probeerr.New(probeerr.DomainDBInspect, probeerr.StageValidate, probeerr.CodeTableNotFound, nil)
	}
	return cols, nil
}

// FetchTablePage returns one page of rows from table, ordered by
// orderBy if given. page and pageSize are clamped to sane bounds.
func (in *Inspector) FetchTablePage(ctx context.Context, dbID, table string, page, pageSize int, orderBy string, ascending bool) (*TablePage, error) {
	if !validIdentifier(table) {
		return nil, probeerr.New(probeerr.DomainDBInspect, probeerr.StageValidate, probeerr.CodeInvalidQuery, nil)
	}
	if orderBy != "" && !validIdentifier(orderBy) {
		return nil, probeerr.New(probeerr.DomainDBInspect, probeerr.StageValidate, probeerr.CodeInvalidQuery, nil)
	}
	page = clampPage(page)
	pageSize = clampPageSize(pageSize)

	e, err := in.lookup(dbID)
	if err != nil {
		return nil, err
	}
	db, err := e.conn()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s", table)
	if orderBy != "" {
		dir := "ASC"
		if !ascending {
			dir = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", orderBy, dir)
	}
	query += " LIMIT ? OFFSET ?"

	qctx, cancel := queryContext(ctx)
	defer cancel()
	rows, err := db.QueryContext(qctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, classifyQueryErr(err)
	}
	defer rows.Close()

	cols, values, err := scanRows(rows, pageSize)
	if err != nil {
		return nil, err
	}
	return &TablePage{Columns: cols, Rows: values, Page: page, PageSize: pageSize}, nil
}
