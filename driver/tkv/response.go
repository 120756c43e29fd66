package tkv

import (
	"github.com/playhouse-bot/go-storage/kv"
	"github.com/playhouse-bot/go-storage/tx"
)

type wireRecord struct {
	Path        []byte `msgpack:"path"`
	ModRevision int64  `msgpack:"mod_revision"`
	Value       []byte `msgpack:"value"`
}

// txnResponse is what config.storage.txn returns. Responses holds one record
// list per executed operation.
type txnResponse struct {
	Data struct {
		IsSuccess bool           `msgpack:"is_success"`
		Responses [][]wireRecord `msgpack:"responses"`
	} `msgpack:"data"`
	Revision int64 `msgpack:"revision"`
}

// asTxnResponse converts the wire form. Records written by the transaction
// itself come back without a mod revision and get the transaction revision.
func (r txnResponse) asTxnResponse() tx.Response {
	results := make([]tx.RequestResponse, len(r.Data.Responses))

	for i, records := range r.Data.Responses {
		values := make([]kv.KeyValue, len(records))

		for j, rec := range records {
			rev := rec.ModRevision
			if rev == 0 {
				rev = r.Revision
			}

			values[j] = kv.KeyValue{Key: rec.Path, Value: rec.Value, ModRevision: rev}
		}

		results[i] = tx.RequestResponse{Values: values}
	}

	return tx.Response{Succeeded: r.Data.IsSuccess, Results: results}
}
