// Package predicate provides types and interfaces for conditional operations.
// It defines predicate logic used in transactional conditional execution.
package predicate

import "fmt"

// Op is the comparison a predicate applies.
type Op int

// Comparison operators.
const (
	OpEqual Op = iota
	OpNotEqual
	OpGreater
	OpLess
)

// String returns the operator symbol, as used in logs and on the wire.
func (op Op) String() string {
	switch op {
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	case OpGreater:
		return ">"
	case OpLess:
		return "<"
	}

	return fmt.Sprintf("op(%d)", int(op))
}

// Target is the part of a record a predicate compares.
type Target int

const (
	// TargetVersion compares the mod revision; a missing key has revision 0.
	TargetVersion Target = iota
	// TargetValue compares the stored bytes; it never holds for a missing key.
	TargetValue
)

func (t Target) String() string {
	switch t {
	case TargetVersion:
		return "version"
	case TargetValue:
		return "value"
	}

	return fmt.Sprintf("target(%d)", int(t))
}

// Predicate represents a condition used for conditional operations.
// Predicates are used in transactions to specify conditions for execution.
type Predicate interface {
	// Key returns the key that this predicate applies to.
	Key() []byte
	// Operation returns the comparison operation (Equal, NotEqual, Greater, Less).
	Operation() Op
	// Target returns what aspect of the key to compare (Version, Value).
	Target() Target
	// Value returns the comparison value for the predicate.
	Value() any
}

type basePredicate struct {
	key    []byte
	op     Op
	target Target
	value  any
}

func (p basePredicate) Key() []byte    { return p.key }
func (p basePredicate) Operation() Op  { return p.op }
func (p basePredicate) Target() Target { return p.target }
func (p basePredicate) Value() any     { return p.value }

// ValueEqual creates a predicate that holds when the key's value equals value.
func ValueEqual(key []byte, value any) Predicate {
	return basePredicate{key: key, op: OpEqual, target: TargetValue, value: value}
}

// ValueNotEqual creates a predicate that holds when the key's value differs from value.
func ValueNotEqual(key []byte, value any) Predicate {
	return basePredicate{key: key, op: OpNotEqual, target: TargetValue, value: value}
}

// VersionEqual creates a predicate that holds when the key's mod revision equals version.
//
// This is the building block of optimistic concurrency: read a key, remember its
// revision, and commit writes only if the revision is unchanged.
func VersionEqual(key []byte, version int64) Predicate {
	return basePredicate{key: key, op: OpEqual, target: TargetVersion, value: version}
}

// VersionNotEqual creates a predicate that holds when the key's mod revision differs from version.
func VersionNotEqual(key []byte, version int64) Predicate {
	return basePredicate{key: key, op: OpNotEqual, target: TargetVersion, value: version}
}

// VersionGreater creates a predicate that holds when the key's mod revision is greater than version.
func VersionGreater(key []byte, version int64) Predicate {
	return basePredicate{key: key, op: OpGreater, target: TargetVersion, value: version}
}

// VersionLess creates a predicate that holds when the key's mod revision is less than version.
func VersionLess(key []byte, version int64) Predicate {
	return basePredicate{key: key, op: OpLess, target: TargetVersion, value: version}
}

// Exists creates a predicate that holds when the key is present.
// Revisions start at 1, so any stored key has a revision greater than zero.
func Exists(key []byte) Predicate {
	return VersionGreater(key, 0)
}
