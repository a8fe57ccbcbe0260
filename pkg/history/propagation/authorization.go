package propagation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/history/store"
)

// SaveAuthorization derives the root process instance and removal time of
// an authorization from its current resource id and writes it. It runs on
// every save, so changing the resource id re-derives both fields. A
// wildcard resource id clears them, and so do disabled historic instance
// permissions. Existing authorizations are updated under optimistic
// locking.
func (p *Propagator) SaveAuthorization(ctx context.Context, tx store.Tx, auth *history.Authorization) error {
	tx = store.WithSession(tx)
	rootID, removal, err := p.authorizationOwner(ctx, tx, auth)
	if err != nil {
		return err
	}
	auth.SetRootProcessInstanceID(rootID)
	auth.SetRemovalTime(removal)

	if auth.Revision == 0 {
		return p.insert(ctx, tx, auth, nil)
	}
	if err := p.observe(store.UpdateRecord(ctx, tx, auth)); err != nil {
		return fmt.Errorf("failed to update authorization %s: %w", auth.ID, err)
	}
	return nil
}

// authorizationOwner looks up the historic resource an authorization points
// at. Unknown resources and non-historic resource types have no owner.
func (p *Propagator) authorizationOwner(ctx context.Context, tx store.Tx, auth *history.Authorization) (string, *time.Time, error) {
	if !p.perms || auth.ResourceID == "" || auth.ResourceID == history.WildcardResourceID {
		return "", nil, nil
	}

	switch auth.ResourceType {
	case history.ResourceHistoricProcessInstance:
		rootID, err := p.rootOfProcessInstance(ctx, tx, auth.ResourceID)
		if err != nil || rootID == "" {
			return "", nil, err
		}
		root, err := tx.GetRoot(ctx, rootID)
		if err != nil {
			return "", nil, fmt.Errorf("failed to load root instance %s: %w", rootID, err)
		}
		return rootID, p.provider.ForRoot(root), nil

	case history.ResourceHistoricTask:
		task, err := tx.Get(ctx, history.KindTaskInstance, auth.ResourceID)
		if errors.Is(err, history.ErrNotFound) {
			return "", nil, nil
		}
		if err != nil {
			return "", nil, fmt.Errorf("failed to load historic task %s: %w", auth.ResourceID, err)
		}
		return task.RootProcessInstanceID, task.RemovalTime, nil

	default:
		return "", nil, nil
	}
}

// rootOfProcessInstance maps a process instance id to its root. A root
// instance maps to itself; a sub-process instance is resolved through the
// activity instances it recorded.
func (p *Propagator) rootOfProcessInstance(ctx context.Context, tx store.Tx, processInstanceID string) (string, error) {
	_, err := tx.GetRoot(ctx, processInstanceID)
	if err == nil {
		return processInstanceID, nil
	}
	if !errors.Is(err, history.ErrNotFound) {
		return "", fmt.Errorf("failed to load root instance %s: %w", processInstanceID, err)
	}

	rows, err := tx.ListByScope(ctx, history.KindActivityInstance,
		store.Scope{By: store.ByProcessInstance, ID: processInstanceID})
	if err != nil {
		return "", fmt.Errorf("failed to resolve root of process instance %s: %w", processInstanceID, err)
	}
	for _, r := range rows {
		if r.RootProcessInstanceID != "" {
			return r.RootProcessInstanceID, nil
		}
	}
	return "", nil
}
