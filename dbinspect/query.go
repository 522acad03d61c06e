package dbinspect

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/debughub/probe/probeerr"
)

// QueryResult is the executeQuery response payload.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

var forbiddenStatement = regexp.MustCompile(`\b(DROP|DELETE|INSERT|UPDATE|ALTER|CREATE|ATTACH|DETACH)\b`)

// validSelect enforces the read-only invariant: the trimmed, uppercased
// statement must begin with SELECT and must not contain any mutating
// or database-attaching keyword. On rejection it returns the forbidden
// keyword found, or "SELECT" when the statement does not start with it.
// The number of statements is not checked.
func validSelect(query string) (ok bool, forbiddenKeyword string) {
	trimmed := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasPrefix(trimmed, "SELECT") {
		return false, "SELECT"
	}
	if m := forbiddenStatement.FindString(trimmed); m != "" {
		return false, m
	}
	return true, ""
}

// ExecuteQuery runs a read-only SELECT against dbID, capped at
// maxQueryRows rows and queryTimeout wall time.
func (in *Inspector) ExecuteQuery(ctx context.Context, dbID, query string) (*QueryResult, error) {
	if ok, keyword := validSelect(query); !ok {
		return nil, probeerr.New(probeerr.DomainDBInspect, probeerr.StageValidate, probeerr.CodeInvalidQuery,
			fmt.Errorf("forbidden keyword %q: only read-only SELECT statements are allowed", keyword))
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
	rows, err := db.QueryContext(qctx, query)
	if err != nil {
		return nil, classifyQueryErr(err)
	}
	defer rows.Close()

	cols, values, err := scanRows(rows, maxQueryRows)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Columns: cols, Rows: values}, nil
}

// scanRows reads up to limit rows from rows into JSON-friendly values,
// byte slices included (the bridge's dbResponse payload is JSON, and
// encoding/json base64-encodes []byte transparently).
func scanRows(rows *sql.Rows, limit int) ([]string, [][]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, classifyQueryErr(err)
	}

	out := make([][]any, 0, limit)
	for len(out) < limit && rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, classifyQueryErr(err)
		}
		for i, v := range raw {
			if b, ok := v.([]byte); ok {
				raw[i] = append([]byte(nil), b...)
			}
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, classifyQueryErr(err)
	}
	return cols, out, nil
}
