// Package pg connects to PostgreSQL through a pgx pool and applies goose
// migrations.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, postgres.Migrations, cfg, log); err != nil {
//		return err
//	}
//
// Connect retries the initial ping with exponential backoff (RetryAttempts,
// RetryInterval). Healthcheck returns a probe suitable for readiness endpoints.
//
// # Transactions
//
// WithTx attaches a pgx.Tx to a context; repositories call Conn to pick it up, so
// several writes can share one transaction:
//
//	err := pg.InTx(ctx, pool, func(ctx context.Context, tx pgx.Tx) error {
//		if err := store.DeleteAll(ctx, p); err != nil { // runs in tx
//			return err
//		}
//		return store.Delete(ctx, p)
//	})
//
// InTx reuses a transaction already present in ctx instead of nesting.
//
// # Errors
//
// IsNotFoundError, IsDuplicateKeyError, IsForeignKeyViolationError and
// IsTxClosedError classify driver errors.
package pg
