package snmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPDUType(t *testing.T) {
	testCases := []struct {
		typ          PDUType
		name         string
		reply        bool
		notification bool
	}{
		{PDUGetRequest, "GetRequest", false, false},
		{PDUGetNextRequest, "GetNextRequest", false, false},
		{PDUResponse, "Response", true, false},
		{PDUSetRequest, "SetRequest", false, false},
		{PDUTrap, "Trap", false, true},
		{PDUGetBulkRequest, "GetBulkRequest", false, false},
		{PDUInformRequest, "InformRequest", false, true},
		{PDUTrapV2, "TrapV2", false, true},
		{PDUReport, "Report", true, false},
		{PDUType(42), "PDUType(42)", false, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.name, tc.typ.String())
			assert.Equal(t, tc.reply, tc.typ.IsReply())
			assert.Equal(t, tc.notification, tc.typ.IsNotification())
		})
	}
}
