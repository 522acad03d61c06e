package dbinspect

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/debughub/probe/bridge"
	"github.com/stretchr/testify/require"
)

func TestAdapterListDatabasesRoundTrip(t *testing.T) {
	in := New([]DatabaseConfig{{ID: "app", Path: "app.db"}})
	a := Adapter{Inspector: in}

	resp := a.Execute(t.Context(), bridge.DBCommandPayload{RequestID: "r1", Kind: bridge.DBCommandListDatabases})
	require.True(t, resp.Success)

	var got []DatabaseSummary
	require.NoError(t, json.Unmarshal(resp.Payload, &got))
	require.Equal(t, []DatabaseSummary{{ID: "app"}}, got)
}

func TestAdapterEncodesDBInspectorErrorsVerbatim(t *testing.T) {
	in := New(nil)
	a := Adapter{Inspector: in}

	resp := a.Execute(t.Context(), bridge.DBCommandPayload{RequestID: "r2", Kind: bridge.DBCommandListTables, DBID: "missing"})
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	require.Equal(t, "databaseNotFound", resp.Error.Kind)
}

func TestAdapterFetchTablePageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.db")
	seedDB(t, path)

	in := New([]DatabaseConfig{{ID: "app", Path: path}})
	a := Adapter{Inspector: in}

	resp := a.Execute(t.Context(), bridge.DBCommandPayload{
		RequestID: "r3", Kind: bridge.DBCommandFetchTablePage, DBID: "app", Table: "widgets", Page: 1, PageSize: 3,
	})
	require.True(t, resp.Success)

	var page TablePage
	require.NoError(t, json.Unmarshal(resp.Payload, &page))
	require.Len(t, page.Rows, 3)
}

func TestAdapterUnknownKindReturnsError(t *testing.T) {
	in := New(nil)
	a := Adapter{Inspector: in}

	resp := a.Execute(t.Context(), bridge.DBCommandPayload{RequestID: "r4", Kind: "bogus"})
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
}
