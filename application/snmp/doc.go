// Package snmp defines the message model of the Simple Network Management
// Protocol (SNMP) shared by the client and the notification receiver.
//
// The wire encoding (BER) is not part of this package. Callers plug one in
// through [Codec].
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc1157
//
// - https://datatracker.ietf.org/doc/html/rfc3416
package snmp
