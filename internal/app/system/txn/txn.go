// Package txn runs multi-document MongoDB transactions and recognizes the
// errors a standalone server returns when transactions are unavailable.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// Server error codes meaning "no transactions here".
var unsupportedCodes = []int{
	20,  // IllegalOperation: not a replica set member or mongos
	51,  // IllegalOperation on older servers
	263, // OperationNotSupportedInTransaction
}

var keywords = []string{"transaction", "replica set", "session", "not supported", "illegal operation"}

// IsNotSupported reports whether err indicates the deployment cannot run
// transactions, so the caller should fall back to ordered writes.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		for _, c := range unsupportedCodes {
			if se.HasErrorCode(c) {
				return true
			}
		}
	}
	msg := strings.ToLower(err.Error())
	hits := 0
	for _, k := range keywords {
		if strings.Contains(msg, k) {
			hits++
		}
	}
	return hits >= 2
}

// Run executes fn in a transaction on a fresh session. Errors from fn are
// returned as-is after the transaction is aborted.
func Run(ctx context.Context, client *mongo.Client, fn func(sc mongo.SessionContext) error) error {
	sess, err := client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
