// Package txn runs multi-document writes in a MongoDB transaction when the
// deployment supports one.
package txn

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// codeIllegalOperation is what a standalone mongod answers to a transaction.
const codeIllegalOperation = 20

// session is the slice of mongo.Session that Run needs.
type session interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	EndSession(ctx context.Context)
}

type mongoSession struct {
	s mongo.Session
}

func (m mongoSession) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := m.s.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (m mongoSession) EndSession(ctx context.Context) { m.s.EndSession(ctx) }

// Run executes fn inside a transaction. fn must do all reads and writes with
// the ctx it receives so they join the session. On a standalone server, where
// transactions are unavailable, fn runs once without one and the writes are
// applied in order on a best-effort basis.
func Run(ctx context.Context, db *mongo.Database, logger *zap.Logger, fn func(ctx context.Context) error) error {
	return run(ctx, func() (session, error) {
		s, err := db.Client().StartSession()
		if err != nil {
			return nil, err
		}
		return mongoSession{s: s}, nil
	}, logger, fn)
}

func run(ctx context.Context, start func() (session, error), logger *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := start()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	attempted := false
	err = sess.WithTransaction(ctx, func(sc context.Context) error {
		attempted = true
		return fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		// The aborted attempt left no writes behind.
		logger.Warn("transactions not supported; running without transaction",
			zap.Bool("attempted", attempted),
			zap.Error(err))
		return fn(ctx)
	}
	return err
}

// Runner binds Run to a database so callers can depend on an interface.
type Runner struct {
	DB  *mongo.Database
	Log *zap.Logger
}

func (r Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return Run(ctx, r.DB, r.Log, fn)
}

// IsNotSupported reports whether err is the server refusing transactions
// outright. Only the server error code counts: message text is not trusted,
// since a fallback re-runs fn without atomicity.
func IsNotSupported(err error) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.HasErrorCode(codeIllegalOperation)
}
