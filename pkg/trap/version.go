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
	"fmt"

	"github.com/gosnmp/gosnmp"
)

const (
	berSequence = 0x30
	berInteger  = 0x02
	// lengths longer than four octets cannot describe a UDP datagram
	maxLengthOctets = 4
)

// MessageVersion reads the version field of an SNMP message without decoding
// the rest of it. Definite-length BER is accepted in short and long form.
func MessageVersion(b []byte) (gosnmp.SnmpVersion, error) {
	if len(b) == 0 {
		return 0, ErrEmptyMessage
	}

	if b[0] != berSequence {
		return 0, fmt.Errorf("%w: expected sequence, got tag %#x", ErrMalformedMessage, b[0])
	}

	_, n, err := berLength(b[1:])
	if err != nil {
		return 0, err
	}

	rest := b[1+n:]
	if len(rest) < 2 || rest[0] != berInteger {
		return 0, fmt.Errorf("%w: missing version integer", ErrMalformedMessage)
	}

	size, n, err := berLength(rest[1:])
	if err != nil {
		return 0, err
	}

	value := rest[1+n:]
	if size == 0 || size > 4 || len(value) < size {
		return 0, fmt.Errorf("%w: bad version length %d", ErrMalformedMessage, size)
	}

	var v int
	for _, octet := range value[:size] {
		v = v<<8 | int(octet)
	}

	return gosnmp.SnmpVersion(v), nil
}

// berLength decodes a definite length and reports how many octets it used.
func berLength(b []byte) (length, used int, err error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("%w: truncated length", ErrMalformedMessage)
	}

	if b[0]&0x80 == 0 {
		return int(b[0]), 1, nil
	}

	octets := int(b[0] & 0x7f)
	if octets == 0 || octets > maxLengthOctets || len(b) < 1+octets {
		return 0, 0, fmt.Errorf("%w: unsupported length encoding", ErrMalformedMessage)
	}

	for _, octet := range b[1 : 1+octets] {
		length = length<<8 | int(octet)
	}

	return length, 1 + octets, nil
}

// VersionName renders the versions this receiver accepts.
func VersionName(v gosnmp.SnmpVersion) string {
	switch v {
	case gosnmp.Version1:
		return "v1"
	case gosnmp.Version2c:
		return "v2c"
	case gosnmp.Version3:
		return "v3"
	default:
		return fmt.Sprintf("unknown(%d)", v)
	}
}
