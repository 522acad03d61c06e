// Package probeerr provides a structured, programmatically identifiable
// error type (Domain/Stage/Code plus the wrapped cause) used by the
// probe's components.
package probeerr

import "fmt"

// Domain identifies which top-level component produced the error.
type Domain string

const (
	DomainBus        Domain = "bus"
	DomainPersist    Domain = "persist"
	DomainRules      Domain = "rules"
	DomainPipeline   Domain = "pipeline"
	DomainBridge     Domain = "bridge"
	DomainDBInspect  Domain = "dbinspect"
	DomainController Domain = "controller"
	DomainConfig     Domain = "config"
)

// Stage identifies which step within the component failed.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageConnect   Stage = "connect"
	StageRegister  Stage = "register"
	StageSend      Stage = "send"
	StageReceive   Stage = "receive"
	StageDecode    Stage = "decode"
	StageMatch     Stage = "match"
	StageBreak     Stage = "breakpoint"
	StageChaos     Stage = "chaos"
	StageNetwork   Stage = "network"
	StageWrite     Stage = "write"
	StageRead      Stage = "read"
	StageQuery     Stage = "query"
	StageOpen      Stage = "open"
)

// Code is a stable, programmatic error identifier for user-facing operations.
type Code string

const (
	CodeTimeout     Code = "timeout"
	CodeCanceled    Code = "canceled"
	CodeInvalid     Code = "invalid_input"
	CodeDialFailed  Code = "dial_failed"
	CodeTransport   Code = "transport_error"
	CodeProtocol    Code = "protocol_error"
	CodeNotRegistered Code = "not_registered"

	CodeRuleCompileFailed Code = "rule_compile_failed"

	CodeDropped         Code = "dropped"
	CodeAborted         Code = "aborted"
	CodeConnectionReset Code = "connection_reset"

	CodeDatabaseNotFound Code = "databaseNotFound"
	CodeTableNotFound    Code = "tableNotFound"
	CodeInvalidQuery     Code = "invalidQuery"
	CodeDBTimeout        Code = "timeout"
	CodeAccessDenied     Code = "accessDenied"
	CodeInternal         Code = "internalError"
)

// Error is a structured error carried through the probe's public API.
type Error struct {
	Domain Domain
	Stage  Stage
	Code   Code
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s (%s): %v", e.Domain, e.Stage, e.Code, e.Err)
	}
	return fmt.Sprintf("%s %s (%s)", e.Domain, e.Stage, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err (which may be nil) into a structured Error.
func New(domain Domain, stage Stage, code Code, err error) error {
	return &Error{Domain: domain, Stage: stage, Code: code, Err: err}
}
