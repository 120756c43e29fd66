package etcd

import (
	"fmt"

	etcd "go.etcd.io/etcd/client/v3"

	"github.com/playhouse-bot/go-storage/predicate"
)

// etcd spells equality "=".
//
//nolint:gochecknoglobals
var cmpResults = map[predicate.Op]string{
	predicate.OpEqual:    "=",
	predicate.OpNotEqual: "!=",
	predicate.OpGreater:  ">",
	predicate.OpLess:     "<",
}

func predicatesToCmps(predicates []predicate.Predicate) ([]etcd.Cmp, error) {
	cmps := make([]etcd.Cmp, len(predicates))

	for i, pred := range predicates {
		cmp, err := predicateToCmp(pred)
		if err != nil {
			return nil, err
		}

		cmps[i] = cmp
	}

	return cmps, nil
}

func predicateToCmp(pred predicate.Predicate) (etcd.Cmp, error) {
	key := string(pred.Key())
	result, known := cmpResults[pred.Operation()]

	switch pred.Target() {
	case predicate.TargetValue:
		var value string

		switch v := pred.Value().(type) {
		case []byte:
			value = string(v)
		case string:
			value = v
		default:
			return etcd.Cmp{}, fmt.Errorf("%w: got %T", errValuePredicateRequiresBytes, v)
		}

		// Values compare for equality only.
		if !known || pred.Operation() == predicate.OpGreater || pred.Operation() == predicate.OpLess {
			return etcd.Cmp{}, fmt.Errorf("%w: %v", errUnsupportedValueOperation, pred.Operation())
		}

		return etcd.Compare(etcd.Value(key), result, value), nil

	case predicate.TargetVersion:
		version, ok := pred.Value().(int64)
		if !ok {
			return etcd.Cmp{}, errVersionPredicateRequiresInt
		}

		if !known {
			return etcd.Cmp{}, fmt.Errorf("%w: %v", errUnsupportedVersionOperation, pred.Operation())
		}

		return etcd.Compare(etcd.ModRevision(key), result, version), nil
	}

	return etcd.Cmp{}, fmt.Errorf("%w: %v", errUnsupportedPredicateTarget, pred.Target())
}
