package bridge

// DBCommandKind enumerates the dbCommand frame's kind field.
type DBCommandKind string

const (
	DBCommandListDatabases  DBCommandKind = "listDatabases"
	DBCommandListTables     DBCommandKind = "listTables"
	DBCommandDescribeTable  DBCommandKind = "describeTable"
	DBCommandFetchTablePage DBCommandKind = "fetchTablePage"
	DBCommandExecuteQuery   DBCommandKind = "executeQuery"
)

// DBCommandPayload is the dbCommand frame payload.
type DBCommandPayload struct {
	RequestID string        `json:"requestId"`
	Kind      DBCommandKind `json:"kind"`
	DBID      string        `json:"dbId,omitempty"`
	Table     string        `json:"table,omitempty"`
	Page      int           `json:"page,omitempty"`
	PageSize  int           `json:"pageSize,omitempty"`
	OrderBy   string        `json:"orderBy,omitempty"`
	Ascending bool          `json:"ascending,omitempty"`
	Query     string        `json:"query,omitempty"`
}

// DBResponsePayload is the dbResponse frame payload.
type DBResponsePayload struct {
	RequestID string          `json:"requestId"`
	Success   bool            `json:"success"`
	Payload   []byte          `json:"payload,omitempty"`
	Error     *DBErrorPayload `json:"error,omitempty"`
}

// DBErrorPayload encodes a DBInspector error verbatim into the response.
type DBErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
