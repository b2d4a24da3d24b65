package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Constraint names declared in the migrations. Callers use them to tell which
// reference of a ReferenceError was missing.
const (
	MessagesChatFKey       = "messages_chat_id_fkey"
	MessagesSenderFKey     = "messages_sender_id_fkey"
	MembersChatFKey        = "chat_room_members_chat_id_fkey"
	MembersUserFKey        = "chat_room_members_user_id_fkey"
	MembersPKey            = "chat_room_members_pkey"
	ChatRoomsProjectFKey   = "chat_rooms_project_id_fkey"
	UsersEmailKey          = "users_email_key"
	pqForeignKeyViolation  = "23503"
	pqUniqueViolation      = "23505"
	pqInvalidTextRepresent = "22P02"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// ReferenceError reports an insert that pointed at a row that does not exist.
type ReferenceError struct {
	Constraint string
	Err        error
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("missing reference %s: %v", e.Constraint, e.Err)
}

func (e *ReferenceError) Unwrap() error {
	return e.Err
}

// DuplicateError reports a unique constraint violation.
type DuplicateError struct {
	Constraint string
	Err        error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s: %v", e.Constraint, e.Err)
}

func (e *DuplicateError) Unwrap() error {
	return e.Err
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// classifyError translates driver errors into the package's error types.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqForeignKeyViolation:
			return &ReferenceError{Constraint: pqErr.Constraint, Err: err}
		case pqUniqueViolation:
			return &DuplicateError{Constraint: pqErr.Constraint, Err: err}
		case pqInvalidTextRepresent:
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
	}

	return err
}
