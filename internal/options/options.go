// Package options holds the generic functional-option helpers shared by the
// public packages.
package options

// OptionConstructor builds the defaults an option set starts from.
type OptionConstructor[T any] func() T

// OptionCallback mutates an option set.
type OptionCallback[T any] func(*T)

// ApplyOptions builds T from the constructor defaults and applies cbs in order.
// A nil constructor starts from the zero value.
func ApplyOptions[T any](constructor OptionConstructor[T], cbs []OptionCallback[T]) T {
	var opts T

	if constructor != nil {
		opts = constructor()
	}

	for _, cb := range cbs {
		if cb != nil {
			cb(&opts)
		}
	}

	return opts
}

// ApplyValidated is ApplyOptions followed by validate. Options that fail
// validation are returned as they are, together with the error.
func ApplyValidated[T any](
	constructor OptionConstructor[T],
	cbs []OptionCallback[T],
	validate func(T) error,
) (T, error) {
	opts := ApplyOptions(constructor, cbs)
	if validate == nil {
		return opts, nil
	}

	return opts, validate(opts)
}
