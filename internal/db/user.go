package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	tallyerrors "github.com/randalmurphal/tally/internal/errors"
	"github.com/randalmurphal/tally/internal/model"
)

// MakeUser creates a user and returns it with its allocated id.
func (d *DB) MakeUser(ctx context.Context, name string) (model.User, error) {
	var u model.User
	err := d.RunInTx(ctx, func(s *Scope) error {
		id, err := allocate(s, "users", "user_id", "INSERT INTO users (name) VALUES (?) RETURNING id", name)
		if err != nil {
			return err
		}
		u = model.User{ID: id, Name: name}
		return nil
	})
	return u, opError("make user", err)
}

// GetUser returns the user with id.
func (d *DB) GetUser(ctx context.Context, id int) (model.User, error) {
	u := model.User{ID: id}
	err := d.QueryRowContext(ctx, "SELECT name FROM users WHERE user_id = ?", id).Scan(&u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, userNotFound(id)
	}
	if err != nil {
		return model.User{}, opError(fmt.Sprintf("get user %d", id), err)
	}
	return u, nil
}

// ModifyUser renames the user with u.ID.
func (d *DB) ModifyUser(ctx context.Context, u model.User) error {
	op := fmt.Sprintf("modify user %d", u.ID)
	res, err := d.ExecContext(ctx, "UPDATE users SET name = ? WHERE user_id = ?", u.Name, u.ID)
	if err != nil {
		return opError(op, err)
	}
	return requireAffected(res, op, userNotFound(u.ID))
}

// MakeInstallation creates an installation owned by userID.
func (d *DB) MakeInstallation(ctx context.Context, name string, userID int) (model.Installation, error) {
	var inst model.Installation
	err := d.RunInTx(ctx, func(s *Scope) error {
		id, err := allocate(s, "installations", "inst_id",
			"INSERT INTO installations (user_id, name) VALUES (?, ?) RETURNING id", userID, name)
		if err != nil {
			return err
		}
		inst = model.Installation{ID: id, UserID: userID, Name: name}
		return nil
	})
	return inst, opError("make installation", err)
}

// GetInstallation returns the installation with id.
func (d *DB) GetInstallation(ctx context.Context, id int) (model.Installation, error) {
	inst := model.Installation{ID: id}
	err := d.QueryRowContext(ctx, "SELECT user_id, name FROM installations WHERE inst_id = ?", id).
		Scan(&inst.UserID, &inst.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Installation{}, installationNotFound(id)
	}
	if err != nil {
		return model.Installation{}, opError(fmt.Sprintf("get installation %d", id), err)
	}
	return inst, nil
}

// allocate inserts a placeholder row, reads back its sequence id and
// copies it into idColumn.
func allocate(s *Scope, table, idColumn, insert string, args ...any) (int, error) {
	var rowID int
	if err := s.QueryRow(insert, args...).Scan(&rowID); err != nil {
		return 0, scanError("insert "+table, err)
	}
	if _, err := s.Exec("UPDATE "+table+" SET "+idColumn+" = ? WHERE id = ?", rowID, rowID); err != nil {
		return 0, err
	}
	return rowID, nil
}

func userNotFound(id int) *tallyerrors.TallyError {
	return &tallyerrors.TallyError{
		Code: tallyerrors.CodeConfigInvalid,
		What: fmt.Sprintf("user %d not found", id),
		Fix:  "Run 'tally config set user_id 0' to create a new user on next start",
	}
}

func installationNotFound(id int) *tallyerrors.TallyError {
	return &tallyerrors.TallyError{
		Code: tallyerrors.CodeConfigInvalid,
		What: fmt.Sprintf("installation %d not found", id),
		Fix:  "Run 'tally config set installation_id 0' to register this installation again",
	}
}
