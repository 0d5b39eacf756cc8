// Package validate wraps a single shared go-playground validator instance;
// the instance caches struct metadata and is safe for concurrent use.
package validate

import "github.com/go-playground/validator/v10"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates the exported fields of s against their validate tags.
func Struct(s interface{}) error {
	return validate.Struct(s)
}
