package service

import (
	"database/sql"
	"errors"
	"fmt"

	"driveshare-settlement/internal/domain"
)

// lookupErr turns a missing row into a not-found error and wraps anything else.
func lookupErr(err error, reason, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewNotFoundError(reason, "%s %v not found", what, id)
	}
	return fmt.Errorf("load %s %v: %w", what, id, err)
}

func requireAdmin(actor domain.Actor) error {
	if !actor.IsPrivileged() {
		return domain.NewPermissionError("admin_required", "operation requires an administrator")
	}
	return nil
}
