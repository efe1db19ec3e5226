package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies reconciliation failures. Only transient errors are
// eligible for re-enqueue; the other kinds dead-letter immediately because
// retrying cannot fix a structurally invalid or unfair event.
// ErrNotFound marks lookups of entities the store has never seen. An event
// referencing a missing parent entity is a data integrity anomaly.
var ErrNotFound = errors.New("not found")

type ErrorKind int

const (
	ErrKindTransient ErrorKind = iota
	ErrKindIntegrity
	ErrKindBusinessRule
	ErrKindFairness
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindIntegrity:
		return "integrity"
	case ErrKindBusinessRule:
		return "business_rule"
	case ErrKindFairness:
		return "fairness"
	default:
		return "transient"
	}
}

type Error struct {
	Kind ErrorKind
	Rule string
	err  error
}

func (e *Error) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Rule, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.err)
}

func (e *Error) Unwrap() error { return e.err }

func Transientf(format string, args ...interface{}) error {
	return &Error{Kind: ErrKindTransient, err: fmt.Errorf(format, args...)}
}

func Integrityf(format string, args ...interface{}) error {
	return &Error{Kind: ErrKindIntegrity, err: fmt.Errorf(format, args...)}
}

// BusinessRulef names the violated rule so pre-ledger rejections can report it
// synchronously to the caller.
func BusinessRulef(rule, format string, args ...interface{}) error {
	return &Error{Kind: ErrKindBusinessRule, Rule: rule, err: fmt.Errorf(format, args...)}
}

func Fairnessf(format string, args ...interface{}) error {
	return &Error{Kind: ErrKindFairness, err: fmt.Errorf(format, args...)}
}

// KindOf returns the classification of err. Unclassified errors are treated as
// transient infrastructure failures, bounded by the queue's retry budget.
func KindOf(err error) ErrorKind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ErrKindTransient
}

// Retryable reports whether err may be re-enqueued for another attempt.
func Retryable(err error) bool {
	return KindOf(err) == ErrKindTransient
}
