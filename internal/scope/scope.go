// Package scope decides which complaints an actor may see. The rule table
// lives in exactly one place: ForActor builds a Filter, and both the SQL list
// predicate and the single-item check derive from that same value, so the two
// paths cannot drift apart.
package scope

import (
	"fmt"

	"github.com/lib/pq"

	"github.com/uniportal/ecms-api/internal/models"
)

// Actor is the authenticated principal a visibility decision is made for.
type Actor struct {
	UserID     string
	Role       models.UserRole
	Position   string
	Department string
	Faculty    string
	Courses    []string
}

// ActorFromClaims projects session claims into an Actor.
func ActorFromClaims(c *models.SessionClaims) Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{
		UserID:     c.UserID,
		Role:       c.Role,
		Position:   c.Position,
		Department: c.Department,
		Faculty:    c.Faculty,
		Courses:    c.CourseList(),
	}
}

type filterKind int

const (
	kindNone filterKind = iota // sees nothing
	kindAll                    // sees everything
	kindOwner                  // complaint.user_id == value
	kindCourse                 // complaint.course in values
	kindDepartment             // complaint.department == value
	kindFaculty                // complaint.faculty == value
)

// Filter is a visibility predicate over complaints, usable both as a SQL
// WHERE fragment and as an in-memory check.
type Filter struct {
	kind   filterKind
	values []string
}

// ForActor resolves the visibility filter for an actor.
//
//	lecturer             → course ∈ actor.Courses
//	hod                  → department == actor.Department
//	dean                 → faculty == actor.Faculty
//	system-administrator → everything (bare "admin" position treated the same)
//	anything else        → nothing
//
// An admin whose position needs a scope attribute it does not have sees
// nothing, never everything. Students are always restricted to their own
// complaints.
func ForActor(a Actor) Filter {
	if a.Role == models.RoleStudent {
		if a.UserID == "" {
			return Filter{kind: kindNone}
		}
		return Filter{kind: kindOwner, values: []string{a.UserID}}
	}
	if a.Role != models.RoleAdmin {
		return Filter{kind: kindNone}
	}

	switch models.AdminPosition(a.Position) {
	case models.PositionLecturer:
		if len(a.Courses) == 0 {
			return Filter{kind: kindNone}
		}
		return Filter{kind: kindCourse, values: a.Courses}
	case models.PositionHOD:
		if a.Department == "" {
			return Filter{kind: kindNone}
		}
		return Filter{kind: kindDepartment, values: []string{a.Department}}
	case models.PositionDean:
		if a.Faculty == "" {
			return Filter{kind: kindNone}
		}
		return Filter{kind: kindFaculty, values: []string{a.Faculty}}
	case models.PositionSystemAdmin, models.AdminPosition("admin"):
		return Filter{kind: kindAll}
	default:
		return Filter{kind: kindNone}
	}
}

// SeesAll reports whether the filter is unrestricted.
func (f Filter) SeesAll() bool {
	return f.kind == kindAll
}

// SeesNothing reports whether the filter can never match.
func (f Filter) SeesNothing() bool {
	return f.kind == kindNone
}

// SQL renders the filter as a WHERE fragment over the complaints table.
// argIndex is the 1-based index of the next positional parameter. An empty
// clause means no restriction. NULL scope columns fail every scoped
// predicate, so unassigned complaints stay hidden from scoped admins.
func (f Filter) SQL(argIndex int) (string, []interface{}) {
	switch f.kind {
	case kindAll:
		return "", nil
	case kindOwner:
		return fmt.Sprintf("user_id = $%d", argIndex), []interface{}{f.values[0]}
	case kindCourse:
		return fmt.Sprintf("course = ANY($%d)", argIndex), []interface{}{pq.Array(f.values)}
	case kindDepartment:
		return fmt.Sprintf("department = $%d", argIndex), []interface{}{f.values[0]}
	case kindFaculty:
		return fmt.Sprintf("faculty = $%d", argIndex), []interface{}{f.values[0]}
	default:
		return "1=0", nil
	}
}

// Allows evaluates the same predicate against a loaded complaint. Callers
// translate a false result into NotFound, not Forbidden: unauthorized actors
// must not learn that the complaint exists.
func (f Filter) Allows(c *models.Complaint) bool {
	if c == nil {
		return false
	}
	switch f.kind {
	case kindAll:
		return true
	case kindOwner:
		return c.UserID == f.values[0]
	case kindCourse:
		if c.Course == nil {
			return false
		}
		for _, course := range f.values {
			if *c.Course == course {
				return true
			}
		}
		return false
	case kindDepartment:
		return c.Department != nil && *c.Department == f.values[0]
	case kindFaculty:
		return c.Faculty != nil && *c.Faculty == f.values[0]
	default:
		return false
	}
}
