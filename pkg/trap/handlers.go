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
	"errors"
	"fmt"
	"strings"

	"github.com/carverauto/healthchecker/pkg/models"
)

// HandlerTable maps trap OIDs (without leading dot) to handler rules.
type HandlerTable map[string]models.HandlerRule

// NewHandlerTable validates rules and normalizes their OID keys.
func NewHandlerTable(rules map[string]models.HandlerRule) (HandlerTable, error) {
	table := make(HandlerTable, len(rules))

	var errs []error

	for oid, rule := range rules {
		if err := ValidateRule(rule); err != nil {
			errs = append(errs, fmt.Errorf("handler %s: %w", oid, err))
			continue
		}

		table[NormalizeOID(oid)] = rule
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return table, nil
}

// ValidateRule checks the severity and expiration of a single rule.
func ValidateRule(rule models.HandlerRule) error {
	if !models.ValidSeverity(rule.Severity) {
		return fmt.Errorf("%w: %q", ErrInvalidSeverity, rule.Severity)
	}

	if _, err := ParseExpiration(rule.Expiration); err != nil {
		return err
	}

	return nil
}

// Lookup returns the rule configured for oid. Leading dots are ignored.
func (t HandlerTable) Lookup(oid string) (models.HandlerRule, bool) {
	rule, ok := t[NormalizeOID(oid)]

	return rule, ok
}

// NormalizeOID strips the leading dot gosnmp puts on decoded OIDs.
func NormalizeOID(oid string) string {
	return strings.TrimPrefix(strings.TrimSpace(oid), ".")
}
