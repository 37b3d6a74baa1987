package engine

import (
	"strings"
	"sync"
)

// DatabaseError means the CVE database could not be opened or holds no data.
type DatabaseError struct {
	Err error
}

func (e *DatabaseError) Error() string {
	return "unable to connect to the vulnerability database: " + e.Err.Error()
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// ReportError means a report could not be written.
type ReportError struct {
	Err error
}

func (e *ReportError) Error() string {
	return "unable to write the report: " + e.Err.Error()
}

func (e *ReportError) Unwrap() error { return e.Err }

// UpdateError means the CVE database could not be refreshed.
type UpdateError struct {
	Err error
}

func (e *UpdateError) Error() string {
	return "unable to update the vulnerability database: " + e.Err.Error()
}

func (e *UpdateError) Unwrap() error { return e.Err }

// ExceptionCollection gathers the non-fatal errors of an analysis. The
// analysis continues past them and its results remain usable.
type ExceptionCollection struct {
	mu     sync.Mutex
	Errors []error
}

func (c *ExceptionCollection) Add(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.Errors = append(c.Errors, err)
	c.mu.Unlock()
}

func (c *ExceptionCollection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Errors)
}

func (c *ExceptionCollection) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	b.WriteString("One or more exceptions occurred during dependency-check analysis")
	for _, err := range c.Errors {
		b.WriteString("\n\t")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (c *ExceptionCollection) Unwrap() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.Errors...)
}
