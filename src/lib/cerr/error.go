package cerr

import (
	"fmt"
)

// F is a shorthand for providing several context fields at once.
type F = map[string]interface{}

// Context accumulates structured fields and an optional cause before
// being finalized into a ContextualError with Error.
type Context struct {
	ContextFields map[string]interface{}
	Cause         error
}

func Field(key string, value interface{}) Context {
	return Context{}.Field(key, value)
}

func Fields(fields F) Context {
	return Context{}.Fields(fields)
}

func Wrap(cause error) Context {
	return Context{}.Wrap(cause)
}

// Error creates a contextual error with no fields and no cause.
func Error(message string) error {
	return Context{}.Error(message)
}

func (c Context) Field(key string, value interface{}) Context {
	next := c.cloneFields()
	next.ContextFields[key] = value
	return next
}

func (c Context) Fields(fields F) Context {
	next := c.cloneFields()
	for key, value := range fields {
		next.ContextFields[key] = value
	}
	return next
}

func (c Context) Wrap(cause error) Context {
	next := c.cloneFields()
	next.Cause = cause

	// fields of a wrapped contextual error shouldn't get lost
	// when it gets wrapped again further up the stack
	if ctxErr, ok := cause.(ContextualError); ok {
		for key, value := range ctxErr.Context.ContextFields {
			if _, exists := next.ContextFields[key]; !exists {
				next.ContextFields[key] = value
			}
		}
	}

	return next
}

func (c Context) Error(message string) error {
	return ContextualError{
		Context: c,
		Message: message,
	}
}

func (c Context) cloneFields() Context {
	fields := make(map[string]interface{}, len(c.ContextFields)+1)
	for key, value := range c.ContextFields {
		fields[key] = value
	}

	return Context{
		ContextFields: fields,
		Cause:         c.Cause,
	}
}

var _ error = ContextualError{}
var _ interface{ Unwrap() error } = ContextualError{}

type ContextualError struct {
	Context Context
	Message string
}

func (c ContextualError) Error() string {
	if c.Context.Cause == nil {
		return c.Message
	}

	return fmt.Sprintf("%s: %s", c.Message, c.Context.Cause.Error())
}

func (c ContextualError) Unwrap() error {
	return c.Context.Cause
}
