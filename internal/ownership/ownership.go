// Package ownership verifies that a resource's foreign-key chain terminates
// at the requesting user. Every protected read or mutation goes through here
// before touching the resource.
package ownership

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kidcanvas/api/internal/auth"
	"gorm.io/gorm"
)

// ErrNotFound covers both "no such resource" and "resource belongs to
// someone else". Callers must not try to tell the two apart; conflating them
// keeps other users' resource ids unguessable.
var ErrNotFound = errors.New("resource not found")

// Resource names a protected resource type.
type Resource string

const (
	Drawing     Resource = "drawing"
	Process     Resource = "process"
	Result      Resource = "result"
	ChatSession Resource = "chat_session"
	ChatMessage Resource = "chat_message"
)

// join is one hop along an ownership path: joins table so that its primary
// key matches a foreign key already in scope.
type join struct {
	table string
	on    string
}

// path describes how to walk from a resource row to the user that owns it.
type path struct {
	table string // table holding the resource
	id    string // its primary key column
	joins []join // hops toward the owning user, outermost first
	owner string // qualified column holding the owner's user id
}

// paths is the ownership map for every protected resource. Adding a resource
// type means adding one entry here, not another hand-written query.
var paths = map[Resource]path{
	Drawing: {
		table: "drawings", id: "id",
		owner: "drawings.owner_user_id",
	},
	Process: {
		table: "ai_processes", id: "id",
		joins: []join{
			{table: "drawings", on: "drawings.id = ai_processes.drawing_id"},
		},
		owner: "drawings.owner_user_id",
	},
	Result: {
		table: "process_results", id: "id",
		joins: []join{
			{table: "ai_processes", on: "ai_processes.id = process_results.process_id"},
			{table: "drawings", on: "drawings.id = ai_processes.drawing_id"},
		},
		owner: "drawings.owner_user_id",
	},
	ChatSession: {
		table: "chat_sessions", id: "id",
		owner: "chat_sessions.owner_user_id",
	},
	ChatMessage: {
		table: "chat_messages", id: "id",
		joins: []join{
			{table: "chat_sessions", on: "chat_sessions.id = chat_messages.session_id"},
		},
		owner: "chat_sessions.owner_user_id",
	},
}

// Verify walks the ownership path for the resource in a single joined query.
// It returns nil when the chain terminates at the principal and ErrNotFound
// otherwise. Pass a transaction handle to make the check atomic with a
// following mutation. Results are never cached.
func Verify(db *gorm.DB, res Resource, id int64, principal auth.Principal) error {
	p, ok := paths[res]
	if !ok {
		return fmt.Errorf("no ownership path for resource %q", res)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT 1 FROM %s", p.table)
	for _, j := range p.joins {
		fmt.Fprintf(&b, " JOIN %s ON %s", j.table, j.on)
	}
	fmt.Fprintf(&b, " WHERE %s.%s = ? AND %s = ? LIMIT 1", p.table, p.id, p.owner)

	var found int
	result := db.Raw(b.String(), id, principal.UserID).Scan(&found)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
