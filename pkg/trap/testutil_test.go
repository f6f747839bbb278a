package trap

import (
	"testing"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/require"
)

const (
	linkDownOID = "1.3.6.1.6.3.1.1.5.3"
	linkUpOID   = "1.3.6.1.6.3.1.1.5.4"
)

func marshal(t *testing.T, pkt *gosnmp.SnmpPacket) []byte {
	t.Helper()

	b, err := pkt.MarshalMsg()
	require.NoError(t, err)

	return b
}

func v2cPacket(community, trapOID string, extra ...gosnmp.SnmpPDU) *gosnmp.SnmpPacket {
	vars := []gosnmp.SnmpPDU{
		{Name: "." + sysUpTimeOID, Type: gosnmp.TimeTicks, Value: uint32(123456)},
		{Name: "." + snmpTrapOID, Type: gosnmp.ObjectIdentifier, Value: "." + trapOID},
	}

	return &gosnmp.SnmpPacket{
		Version:   gosnmp.Version2c,
		Community: community,
		PDUType:   gosnmp.SNMPv2Trap,
		RequestID: 42,
		Variables: append(vars, extra...),
	}
}

func v2cTrap(t *testing.T, community, trapOID string, extra ...gosnmp.SnmpPDU) []byte {
	t.Helper()

	return marshal(t, v2cPacket(community, trapOID, extra...))
}

func v1Trap(t *testing.T, community string, generic, specific int, extra ...gosnmp.SnmpPDU) []byte {
	t.Helper()

	pkt := &gosnmp.SnmpPacket{
		Version:   gosnmp.Version1,
		Community: community,
		PDUType:   gosnmp.Trap,
		SnmpTrap: gosnmp.SnmpTrap{
			Variables:    extra,
			Enterprise:   ".1.3.6.1.4.1.9999",
			AgentAddress: "192.0.2.10",
			GenericTrap:  generic,
			SpecificTrap: specific,
			Timestamp:    300,
		},
		Variables: extra,
	}

	return marshal(t, pkt)
}

func ifIndex(i int) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.2.2.1.1.7", Type: gosnmp.Integer, Value: i}
}

func ifDescr(s string) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.2.2.1.2.7", Type: gosnmp.OctetString, Value: s}
}
