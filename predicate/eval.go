package predicate

import "bytes"

// Holds reports whether pred is satisfied by a key currently holding value at
// mod revision rev. A missing key has revision 0 and no value, matching etcd.
// Values of unsupported types never hold.
func Holds(pred Predicate, value []byte, rev int64, exists bool) bool {
	switch pred.Target() {
	case TargetVersion:
		return versionHolds(pred, rev, exists)
	case TargetValue:
		return valueHolds(pred, value, exists)
	default:
		return false
	}
}

func versionHolds(pred Predicate, rev int64, exists bool) bool {
	version, ok := pred.Value().(int64)
	if !ok {
		return false
	}

	if !exists {
		rev = 0
	}

	switch pred.Operation() {
	case OpEqual:
		return rev == version
	case OpNotEqual:
		return rev != version
	case OpGreater:
		return rev > version
	case OpLess:
		return rev < version
	default:
		return false
	}
}

func valueHolds(pred Predicate, current []byte, exists bool) bool {
	var expected []byte

	switch v := pred.Value().(type) {
	case []byte:
		expected = v
	case string:
		expected = []byte(v)
	default:
		return false
	}

	switch pred.Operation() { //nolint:exhaustive
	case OpEqual:
		return exists && bytes.Equal(current, expected)
	case OpNotEqual:
		return !exists || !bytes.Equal(current, expected)
	default:
		return false
	}
}
