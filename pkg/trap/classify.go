/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package trap

import (
	"encoding/hex"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/gosnmp/gosnmp"

	"github.com/carverauto/healthchecker/pkg/models"
)

const (
	snmpTrapOID  = "1.3.6.1.6.3.1.1.4.1.0"
	sysUpTimeOID = "1.3.6.1.2.1.1.3.0"

	// RFC 3584 section 3 maps generic trap N to snmpTraps.(N+1).
	genericTrapPrefix  = "1.3.6.1.6.3.1.1.5"
	enterpriseSpecific = 6
)

var typeNames = map[gosnmp.Asn1BER]string{
	gosnmp.OctetString:      "octet",
	gosnmp.ObjectIdentifier: "oid",
	gosnmp.IPAddress:        "ipaddress",
	gosnmp.Boolean:          "boolean",
	gosnmp.BitString:        "bit",
	gosnmp.Uinteger32:       "unsigned",
	gosnmp.Null:             "null",
	gosnmp.Opaque:           "opaque",
	gosnmp.OpaqueFloat:      "opaque",
	gosnmp.OpaqueDouble:     "opaque",
	gosnmp.Counter32:        "counter",
	gosnmp.Counter64:        "counter64",
	gosnmp.TimeTicks:        "timeticks",
	gosnmp.Integer:          "integer",
	gosnmp.Gauge32:          "gauge",
}

// TypeName returns the varbind type name used in notifications.
func TypeName(t gosnmp.Asn1BER) (string, bool) {
	name, ok := typeNames[t]

	return name, ok
}

// Classify turns a decoded trap into a notification. Severity, manager and
// expiry are left for the handler rule to fill in.
func Classify(host string, pkt *gosnmp.SnmpPacket, now time.Time) (*models.Notification, error) {
	n := &models.Notification{
		Host:      host,
		Version:   VersionName(pkt.Version),
		Community: pkt.Community,
		Sent:      now,
	}

	switch pkt.Version {
	case gosnmp.Version1:
		oid, err := v1TrapOID(pkt.GenericTrap, pkt.SpecificTrap, pkt.Enterprise)
		if err != nil {
			return nil, err
		}

		n.OID = oid
	case gosnmp.Version2c:
		oid, err := v2TrapOID(pkt.Variables)
		if err != nil {
			return nil, err
		}

		n.OID = oid
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, VersionName(pkt.Version))
	}

	binds, err := varBinds(pkt.Variables)
	if err != nil {
		return nil, err
	}

	n.VarBinds = binds

	return n, nil
}

func v1TrapOID(generic, specific int, enterprise string) (string, error) {
	switch {
	case generic >= 0 && generic < enterpriseSpecific:
		return fmt.Sprintf("%s.%d", genericTrapPrefix, generic+1), nil
	case generic == enterpriseSpecific:
		return fmt.Sprintf("%s.0.%d", NormalizeOID(enterprise), specific), nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownGenericTrap, generic)
	}
}

func v2TrapOID(pdus []gosnmp.SnmpPDU) (string, error) {
	for _, pdu := range pdus {
		if NormalizeOID(pdu.Name) != snmpTrapOID {
			continue
		}

		oid, ok := pdu.Value.(string)
		if !ok || pdu.Type != gosnmp.ObjectIdentifier {
			return "", errInvalidTrapOIDValue
		}

		return NormalizeOID(oid), nil
	}

	return "", ErrMissingTrapOID
}

// varBinds skips sysUpTime.0 and snmpTrapOID.0, which are carried by the
// notification itself.
func varBinds(pdus []gosnmp.SnmpPDU) ([]models.VarBind, error) {
	binds := make([]models.VarBind, 0, len(pdus))

	for _, pdu := range pdus {
		oid := NormalizeOID(pdu.Name)
		if oid == sysUpTimeOID || oid == snmpTrapOID {
			continue
		}

		name, ok := TypeName(pdu.Type)
		if !ok {
			return nil, fmt.Errorf("%w: %s on %s", ErrUnsupportedVarBind, pdu.Type, oid)
		}

		binds = append(binds, models.VarBind{OID: oid, Type: name, Value: varBindValue(pdu)})
	}

	return binds, nil
}

func varBindValue(pdu gosnmp.SnmpPDU) interface{} {
	switch pdu.Type {
	case gosnmp.OctetString:
		b, _ := pdu.Value.([]byte)
		if utf8.Valid(b) {
			return string(b)
		}

		return "0x" + hex.EncodeToString(b)
	case gosnmp.ObjectIdentifier:
		s, _ := pdu.Value.(string)

		return NormalizeOID(s)
	case gosnmp.Null:
		return nil
	default:
		return pdu.Value
	}
}
