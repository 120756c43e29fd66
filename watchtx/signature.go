package watchtx

import (
	"fmt"
	"maps"
)

// Args are the arguments of a dynamically bound call: positional values in
// declaration order plus named values.
type Args struct {
	Positional []any
	Named      map[string]any
}

// Positional builds Args from positional values.
func Positional(values ...any) Args {
	return Args{Positional: values, Named: nil}
}

// Named builds Args holding a single named value.
func Named(name string, value any) Args {
	return Args{Positional: nil, Named: map[string]any{name: value}}
}

// With returns a copy of a with name bound to value.
func (a Args) With(name string, value any) Args {
	named := make(map[string]any, len(a.Named)+1)
	maps.Copy(named, a.Named)
	named[name] = value

	return Args{Positional: a.Positional, Named: named}
}

// Bound maps parameter names to the values a call supplied for them.
type Bound map[string]any

// Signature lists the parameter names of an operation in declaration order.
type Signature struct {
	names []string
	index map[string]int
}

// NewSignature declares parameters. Duplicate names panic.
func NewSignature(names ...string) Signature {
	index := make(map[string]int, len(names))

	for i, name := range names {
		if _, ok := index[name]; ok {
			panic(fmt.Sprintf("watchtx: duplicate parameter %q", name))
		}

		index[name] = i
	}

	return Signature{names: append([]string(nil), names...), index: index}
}

// Names returns the declared parameter names.
func (s Signature) Names() []string {
	return append([]string(nil), s.names...)
}

// Bind matches args against the signature. Surplus positional values,
// undeclared names and values given both ways are rejected.
func (s Signature) Bind(args Args) (Bound, error) {
	if len(args.Positional) > len(s.names) {
		return nil, errUnexpectedArgument(
			fmt.Sprintf("#%d", len(s.names)+1),
			fmt.Sprintf("takes %d positional arguments", len(s.names)),
		)
	}

	bound := make(Bound, len(args.Positional)+len(args.Named))
	for i, value := range args.Positional {
		bound[s.names[i]] = value
	}

	for name, value := range args.Named {
		if _, ok := s.index[name]; !ok {
			return nil, errUnexpectedArgument(name, "not a declared parameter")
		}

		if _, ok := bound[name]; ok {
			return nil, errUnexpectedArgument(name, "given both positionally and by name")
		}

		bound[name] = value
	}

	return bound, nil
}

// Key returns a KeyFunc resolving the watched key from parameter name, whether
// the caller passed it positionally or by name.
func (s Signature) Key(name string) KeyFunc[Args] {
	return func(args Args) ([]byte, error) {
		if _, ok := s.index[name]; !ok {
			return nil, errMissingParameter(name, "not declared by the operation")
		}

		bound, err := s.Bind(args)
		if err != nil {
			return nil, err
		}

		value, ok := bound[name]
		if !ok {
			return nil, errMissingParameter(name, "no value supplied")
		}

		return KeyBytes(name, value)
	}
}
