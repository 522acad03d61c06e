package dbinspect

import (
	"context"
	"encoding/json"

	"github.com/debughub/probe/bridge"
	"github.com/debughub/probe/probeerr"
)

// Adapter implements bridge.DBExecutor over an Inspector, translating
// the wire DBCommandPayload into the typed Inspector calls and encoding
// whatever it returns back into a dbResponse payload.
type Adapter struct {
	Inspector *Inspector
}

// Execute dispatches one dbCommand to the matching Inspector method.
func (a Adapter) Execute(ctx context.Context, cmd bridge.DBCommandPayload) bridge.DBResponsePayload {
	var (
		result any
		err    error
	)
	switch cmd.Kind {
	case bridge.DBCommandListDatabases:
		result = a.Inspector.ListDatabases()
	case bridge.DBCommandListTables:
		result, err = a.Inspector.ListTables(ctx, cmd.DBID)
	case bridge.DBCommandDescribeTable:
		result, err = a.Inspector.DescribeTable(ctx, cmd.DBID, cmd.Table)
	case bridge.DBCommandFetchTablePage:
		result, err = a.Inspector.FetchTablePage(ctx, cmd.DBID, cmd.Table, cmd.Page, cmd.PageSize, cmd.OrderBy, cmd.Ascending)
	case bridge.DBCommandExecuteQuery:
		result, err = a.Inspector.ExecuteQuery(ctx, cmd.DBID, cmd.Query)
	default:
		return bridge.DBResponsePayload{Success: false, Error: &bridge.DBErrorPayload{
			Kind: string(probeerr.CodeInvalidQuery), Message: "unknown db command kind",
		}}
	}
	if err != nil {
		return bridge.DBResponsePayload{Success: false, Error: toDBError(err)}
	}
	payload, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return bridge.DBResponsePayload{Success: false, Error: &bridge.DBErrorPayload{
			Kind: string(probeerr.CodeInternal), Message: marshalErr.Error(),
		}}
	}
	return bridge.DBResponsePayload{Success: true, Payload: payload}
}

// toDBError encodes a probeerr.Error verbatim into the dbResponse error
// field, matching the inspector's context-cancellation propagation policy.
func toDBError(err error) *bridge.DBErrorPayload {
	if pe, ok := err.(*probeerr.Error); ok {
		return &bridge.DBErrorPayload{Kind: string(pe.Code), Message: pe.Error()}
	}
	return &bridge.DBErrorPayload{Kind: string(probeerr.CodeInternal), Message: err.Error()}
}
