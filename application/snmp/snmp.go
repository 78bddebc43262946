package snmp

import "strconv"

type Version int

const (
	Version1  Version = 0
	Version2c Version = 1
)

// PDUType is the context-specific tag of a PDU.
// Reference: https://datatracker.ietf.org/doc/html/rfc3416#section-3
type PDUType int

const (
	PDUGetRequest     PDUType = 0
	PDUGetNextRequest PDUType = 1
	PDUResponse       PDUType = 2
	PDUSetRequest     PDUType = 3
	PDUTrap           PDUType = 4 // SNMPv1 only.
	PDUGetBulkRequest PDUType = 5
	PDUInformRequest  PDUType = 6
	PDUTrapV2         PDUType = 7
	PDUReport         PDUType = 8
)

var pduTypeNames = map[PDUType]string{
	PDUGetRequest:     "GetRequest",
	PDUGetNextRequest: "GetNextRequest",
	PDUResponse:       "Response",
	PDUSetRequest:     "SetRequest",
	PDUTrap:           "Trap",
	PDUGetBulkRequest: "GetBulkRequest",
	PDUInformRequest:  "InformRequest",
	PDUTrapV2:         "TrapV2",
	PDUReport:         "Report",
}

func (t PDUType) String() string {
	if name, ok := pduTypeNames[t]; ok {
		return name
	}
	return "PDUType(" + strconv.Itoa(int(t)) + ")"
}

// IsReply reports whether t answers a request.
func (t PDUType) IsReply() bool {
	return t == PDUResponse || t == PDUReport
}

// IsNotification reports whether t is sent unsolicited by an agent.
func (t PDUType) IsNotification() bool {
	return t == PDUTrap || t == PDUTrapV2 || t == PDUInformRequest
}

// OID is an object identifier in dotted form, e.g. "1.3.6.1.2.1.1.1.0".
type OID string

type Varbind struct {
	OID   OID
	Value any // nil stands for NULL.
}

type PDU struct {
	Type      PDUType
	RequestID int32

	ErrorStatus ErrorStatus
	ErrorIndex  int // 1-based. 0 means no particular varbind.

	// Only meaningful for GetBulkRequest.
	// They take the place of ErrorStatus and ErrorIndex on the wire.
	NonRepeaters   int
	MaxRepetitions int

	Varbinds []Varbind
}

type Message struct {
	Version   Version
	Community string
	PDU       PDU
}

// Codec converts messages from and to their wire form.
type Codec interface {
	Encode(msg *Message) ([]byte, error)
	// Decode must return an error on anything that isn't a valid message.
	// It must not panic on arbitrary input, and must not retain b.
	Decode(b []byte) (*Message, error)
}
