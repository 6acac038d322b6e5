// Package postgres stores MFA records and recovery codes in PostgreSQL.
//
//	pool, err := pg.Connect(ctx, pgCfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, postgres.Migrations, pgCfg, log); err != nil {
//		return err
//	}
//
//	store := postgres.New(pool)
//	svc, err := mfa.NewService(cfg, store, store, vault, tracker)
//
// Records are keyed by (tenant_id, principal_id). The replay window only moves
// forward through a conditional UPDATE, and recovery codes are consumed with
// UPDATE ... WHERE used_at IS NULL, so concurrent instances agree on a single
// winner. Replacing a recovery code set runs in one transaction, or in the
// caller's transaction when the context carries one (pg.WithTx).
package postgres
