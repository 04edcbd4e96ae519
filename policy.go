package trust

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Policies follow a two step shape. Constructing a policy loads the acting
// user's current role set from storage, inside its own transaction, so
// decisions always reflect the latest persisted state. Authorize evaluates the rules over that snapshot
// and, only on success, returns a contract.
//
// A contract is the capability: its constructor is unexported, so the only
// way to obtain one is a successful Authorize call. Contracts hold the scope
// fixed at authorization time and never re-derive or re-check it.
//
// Authorization failures are always ErrForbidden. The error never says which
// rule failed.

func loadRoleSnapshot(ctx context.Context, store Store, actingUser UserID) (RoleSet, error) {
	var roles RoleSet
	err := store.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		roles, err = store.GetUserRolesTx(ctx, tx, actingUser)
		return err
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load role snapshot").
			WithCode(goerrors.CodeInternal)
	}
	return roles, nil
}
