package snmp

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

var ErrTimeout = errors.New("snmp: request timed out")

type ErrorStatus int

const NoError ErrorStatus = 0

// ProtocolError is a nonzero error-status returned by an agent.
//
// The package level kinds (ErrTooBig ...) carry neither Index nor OID.
// Any ProtocolError matches its kind with [errors.Is].
type ProtocolError struct {
	Status ErrorStatus
	Index  int // 1-based index into the reply's varbinds. 0 if unknown.
	OID    OID // OID of the varbind at Index. Empty if unknown.
}

// Error kinds by error-status code.
// Reference: https://datatracker.ietf.org/doc/html/rfc3416#section-3
var (
	ErrTooBig              = add(1, "tooBig")
	ErrNoSuchName          = add(2, "noSuchName")
	ErrBadValue            = add(3, "badValue")
	ErrReadOnly            = add(4, "readOnly")
	ErrGenErr              = add(5, "genErr")
	ErrNoAccess            = add(6, "noAccess")
	ErrWrongType           = add(7, "wrongType")
	ErrWrongLength         = add(8, "wrongLength")
	ErrWrongEncoding       = add(9, "wrongEncoding")
	ErrWrongValue          = add(10, "wrongValue")
	ErrNoCreation          = add(11, "noCreation")
	ErrInconsistentValue   = add(12, "inconsistentValue")
	ErrResourceUnavailable = add(13, "resourceUnavailable")
	ErrCommitFailed        = add(14, "commitFailed")
	ErrUndoFailed          = add(15, "undoFailed")
	ErrAuthorizationError  = add(16, "authorizationError")
	ErrNotWritable         = add(17, "notWritable")
	ErrInconsistentName    = add(18, "inconsistentName")
)

var (
	kinds = make(map[ErrorStatus]*ProtocolError)
	names = map[ErrorStatus]string{NoError: "noError"}
)

func add(status ErrorStatus, name string) *ProtocolError {
	kind := &ProtocolError{Status: status}
	kinds[status] = kind
	names[status] = name
	return kind
}

// Kind returns the error kind registered for status.
func Kind(status ErrorStatus) (*ProtocolError, bool) {
	kind, ok := kinds[status]
	return kind, ok
}

// NewProtocolError makes an error of the kind registered for status.
// ok is false when status has no kind, which includes [NoError].
func NewProtocolError(status ErrorStatus, index int, oid OID) (err *ProtocolError, ok bool) {
	if _, ok := kinds[status]; !ok {
		return nil, false
	}
	return &ProtocolError{Status: status, Index: index, OID: oid}, true
}

func (s ErrorStatus) String() string {
	if name, ok := names[s]; ok {
		return name
	}
	return "errorStatus(" + strconv.Itoa(int(s)) + ")"
}

func (e *ProtocolError) Error() string {
	switch {
	case e.OID != "":
		return fmt.Sprintf("snmp: %s at index %d (%s)", e.Status, e.Index, e.OID)
	case e.Index != 0:
		return fmt.Sprintf("snmp: %s at index %d", e.Status, e.Index)
	}
	return fmt.Sprintf("snmp: %s", e.Status)
}

func (e *ProtocolError) Is(target error) bool {
	kind, ok := target.(*ProtocolError)
	if !ok || kind.Index != 0 || kind.OID != "" {
		return false
	}
	return kind.Status == e.Status
}
