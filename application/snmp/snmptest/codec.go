// Package snmptest provides helpers for tests against SNMP actors.
package snmptest

import (
	"encoding/json"

	"snmp-stack/application/snmp"

	"github.com/pkg/errors"
)

// JSONCodec is a stand-in for BER in tests.
//
// Varbind values keep their type for nil, string, []byte and int64.
// Other integer types are decoded back as int64.
type JSONCodec struct{}

var _ snmp.Codec = JSONCodec{}

var ErrUnsupportedValue = errors.New("unsupported varbind value")

type message struct {
	Version   snmp.Version `json:"version"`
	Community string       `json:"community"`

	Type           snmp.PDUType     `json:"type"`
	RequestID      int32            `json:"request_id"`
	ErrorStatus    snmp.ErrorStatus `json:"error_status"`
	ErrorIndex     int              `json:"error_index"`
	NonRepeaters   int              `json:"non_repeaters,omitempty"`
	MaxRepetitions int              `json:"max_repetitions,omitempty"`

	Varbinds []varbind `json:"varbinds"`
}

type varbind struct {
	OID   snmp.OID        `json:"oid"`
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (JSONCodec) Encode(msg *snmp.Message) ([]byte, error) {
	m := message{
		Version:        msg.Version,
		Community:      msg.Community,
		Type:           msg.PDU.Type,
		RequestID:      msg.PDU.RequestID,
		ErrorStatus:    msg.PDU.ErrorStatus,
		ErrorIndex:     msg.PDU.ErrorIndex,
		NonRepeaters:   msg.PDU.NonRepeaters,
		MaxRepetitions: msg.PDU.MaxRepetitions,
		Varbinds:       make([]varbind, 0, len(msg.PDU.Varbinds)),
	}

	for _, vb := range msg.PDU.Varbinds {
		encoded, err := encodeVarbind(vb)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding varbind %s", vb.OID)
		}
		m.Varbinds = append(m.Varbinds, encoded)
	}

	return json.Marshal(m)
}

func (JSONCodec) Decode(b []byte) (*snmp.Message, error) {
	var m message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "decoding message")
	}

	msg := &snmp.Message{
		Version:   m.Version,
		Community: m.Community,
		PDU: snmp.PDU{
			Type:           m.Type,
			RequestID:      m.RequestID,
			ErrorStatus:    m.ErrorStatus,
			ErrorIndex:     m.ErrorIndex,
			NonRepeaters:   m.NonRepeaters,
			MaxRepetitions: m.MaxRepetitions,
		},
	}

	for _, vb := range m.Varbinds {
		decoded, err := decodeVarbind(vb)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding varbind %s", vb.OID)
		}
		msg.PDU.Varbinds = append(msg.PDU.Varbinds, decoded)
	}

	return msg, nil
}

func encodeVarbind(vb snmp.Varbind) (varbind, error) {
	var (
		kind  string
		value any
	)

	switch v := vb.Value.(type) {
	case nil:
		return varbind{OID: vb.OID, Kind: "null"}, nil
	case string:
		kind, value = "string", v
	case []byte:
		kind, value = "bytes", v
	case int:
		kind, value = "int", int64(v)
	case int32:
		kind, value = "int", int64(v)
	case int64:
		kind, value = "int", v
	case uint32:
		kind, value = "int", int64(v)
	default:
		return varbind{}, errors.Wrapf(ErrUnsupportedValue, "%T", vb.Value)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return varbind{}, err
	}
	return varbind{OID: vb.OID, Kind: kind, Value: raw}, nil
}

func decodeVarbind(vb varbind) (snmp.Varbind, error) {
	var (
		value any
		err   error
	)

	switch vb.Kind {
	case "null":
	case "string":
		var s string
		err = json.Unmarshal(vb.Value, &s)
		value = s
	case "bytes":
		var b []byte
		err = json.Unmarshal(vb.Value, &b)
		value = b
	case "int":
		var i int64
		err = json.Unmarshal(vb.Value, &i)
		value = i
	default:
		return snmp.Varbind{}, errors.Wrapf(ErrUnsupportedValue, "kind %q", vb.Kind)
	}
	if err != nil {
		return snmp.Varbind{}, err
	}

	return snmp.Varbind{OID: vb.OID, Value: value}, nil
}
