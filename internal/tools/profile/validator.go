package profile

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors. Every generated query is checked before execution;
// the database is strictly read-only from this tool's point of view.
var (
	ErrNotSelect        = errors.New("only SELECT queries are allowed")
	ErrForbiddenKeyword = errors.New("query contains a forbidden keyword")
	ErrMultiStatement   = errors.New("multi-statement queries are not allowed")
)

// forbiddenKeywords lists every SQL command that can modify data or
// database state. Matched on word boundaries so column names like
// created_at do not trip the check.
var forbiddenKeywords = map[string]bool{
	"insert": true, "update": true, "delete": true, "drop": true,
	"truncate": true, "alter": true, "create": true, "replace": true,
	"rename": true, "grant": true, "revoke": true, "attach": true,
	"detach": true, "pragma": true,
}

// validateReadOnly rejects any query that is not a single plain SELECT.
func validateReadOnly(query string) error {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))

	if !strings.HasPrefix(normalized, "select") {
		return ErrNotSelect
	}

	for _, token := range tokenize(normalized) {
		if forbiddenKeywords[token] {
			return fmt.Errorf("%w: %s", ErrForbiddenKeyword, strings.ToUpper(token))
		}
	}

	if strings.Contains(normalized, ";") {
		for _, stmt := range strings.Split(normalized, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if !strings.HasPrefix(stmt, "select") {
				return ErrMultiStatement
			}
		}
	}

	return nil
}

// tokenize splits a normalized query into identifier-ish tokens.
func tokenize(query string) []string {
	return strings.FieldsFunc(query, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return false
		default:
			return true
		}
	})
}
