// Package flags holds cli flag value types shared by voteperf commands.
package flags

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// EnumValue is a string flag restricted to a fixed set of values.
// Matching ignores case; the canonical spelling from Enum is stored.
type EnumValue struct {
	Name        string
	Usage       string
	EnvVars     []string
	Destination *string
	Enum        []string
	Value       string
}

// Set implements flag.Value.
func (e *EnumValue) Set(value string) error {
	for _, enum := range e.Enum {
		if strings.EqualFold(enum, strings.TrimSpace(value)) {
			*e.Destination = enum
			return nil
		}
	}
	return errors.Errorf("allowed values are %s", strings.Join(e.Enum, ", "))
}

// String implements flag.Value.
func (e *EnumValue) String() string {
	if e.Destination == nil || *e.Destination == "" {
		return e.Value
	}
	return *e.Destination
}

// GenericFlag wraps e so that it satisfies cli.Flag.
func (e EnumValue) GenericFlag() *cli.GenericFlag {
	if e.Destination == nil {
		e.Destination = new(string)
	}
	*e.Destination = e.Value
	var v cli.Generic = &e
	usage := e.Usage + " (" + strings.Join(e.Enum, ", ") + ")"
	return &cli.GenericFlag{Name: e.Name, Usage: usage, EnvVars: e.EnvVars, Value: v}
}
