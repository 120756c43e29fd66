package tx

import "github.com/playhouse-bot/go-storage/kv"

// Response is the outcome of Commit.
type Response struct {
	// Succeeded is true when every predicate held and the Then branch ran.
	Succeeded bool
	// Results has one entry per operation of the branch that ran, in order.
	Results []RequestResponse
}

// RequestResponse is the result of one operation: the pairs a Get read, or
// the pairs a Delete removed. Drivers differ on what a Put returns.
type RequestResponse struct {
	Values []kv.KeyValue
}

// Values flattens the key-value pairs of every operation result, in order.
func (r Response) Values() []kv.KeyValue {
	kvs := make([]kv.KeyValue, 0, len(r.Results))
	for _, result := range r.Results {
		kvs = append(kvs, result.Values...)
	}

	return kvs
}
