package models

import "time"

// Trap severities accepted in handler rules.
const (
	SeverityInformational = "informational"
	SeverityWarning       = "warning"
	SeverityCritical      = "critical"
)

// ValidSeverity reports whether s is one of the known trap severities.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityInformational, SeverityWarning, SeverityCritical:
		return true
	default:
		return false
	}
}

// VarBind is a decoded SNMP variable binding with its type rendered as a name.
type VarBind struct {
	OID   string      `json:"oid"`
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// Notification is the enriched form of one received trap.
type Notification struct {
	Host      string     `json:"host"`
	Manager   string     `json:"manager"`
	Version   string     `json:"version"`
	Community string     `json:"-"`
	OID       string     `json:"oid"`
	Severity  string     `json:"severity,omitempty"`
	Sent      time.Time  `json:"sent"`
	Expires   *time.Time `json:"expires,omitempty"`
	VarBinds  []VarBind  `json:"varbinds,omitempty"`
}

// HandlerRule configures how traps of one OID are handled. Expiration uses
// the <N>d<N>h<N>m<N>s grammar.
type HandlerRule struct {
	Severity   string `json:"severity" yaml:"severity"`
	Expiration string `json:"expiration,omitempty" yaml:"expiration,omitempty"`
	Blackhole  bool   `json:"blackhole,omitempty" yaml:"blackhole,omitempty"`
}

// CloudEvent represents a CloudEvents v1.0 compliant event.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}
