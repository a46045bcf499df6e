// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// loader.go calls validateStruct right after unmarshal and secret
// resolution.  Any failure aborts startup, so the edge never serves traffic
// with a missing root domain or an unsigned session key.
package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = validator.New(validator.WithRequiredStructEnabled())

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	if err := v.Struct(c); err != nil {
		return err
	}
	return validateDSN(c.Database)
}

// validateDSN rejects a template with more than one password verb.
func validateDSN(d Database) error {
	if strings.Count(d.GlobalDSN, "%s") > 1 {
		return errDSNVerbs
	}
	return nil
}
