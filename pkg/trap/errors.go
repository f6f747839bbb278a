package trap

import "errors"

var (
	ErrEmptyMessage        = errors.New("empty trap message")
	ErrMalformedMessage    = errors.New("malformed SNMP message")
	ErrUnsupportedVersion  = errors.New("unsupported SNMP version")
	ErrCommunityMismatch   = errors.New("community mismatch")
	ErrNotTrap             = errors.New("not a trap PDU")
	ErrMissingTrapOID      = errors.New("trap has no snmpTrapOID varbind")
	ErrUnknownGenericTrap  = errors.New("unknown SNMPv1 generic trap")
	ErrUnsupportedVarBind  = errors.New("unsupported varbind type")
	ErrNoHandler           = errors.New("no handler rule for trap OID")
	ErrInvalidSeverity     = errors.New("invalid handler severity")
	ErrInvalidExpiration   = errors.New("invalid expiration")
	ErrReceiverStarted     = errors.New("trap receiver already started")
	errNilSink             = errors.New("sink is required")
	errInvalidTrapOIDValue = errors.New("snmpTrapOID value is not an object identifier")
)
