package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniportal/ecms-api/internal/models"
)

func strPtr(s string) *string { return &s }

func complaint(course, department, faculty string) *models.Complaint {
	c := &models.Complaint{UserID: "owner-1"}
	if course != "" {
		c.Course = strPtr(course)
	}
	if department != "" {
		c.Department = strPtr(department)
	}
	if faculty != "" {
		c.Faculty = strPtr(faculty)
	}
	return c
}

func TestLecturerSeesOnlyOwnCourses(t *testing.T) {
	filter := ForActor(Actor{
		Role:     models.RoleAdmin,
		Position: string(models.PositionLecturer),
		Courses:  []string{"CS101", "CS202"},
	})

	assert.True(t, filter.Allows(complaint("CS101", "", "")))
	assert.True(t, filter.Allows(complaint("CS202", "", "")))
	assert.False(t, filter.Allows(complaint("CS303", "", "")))
	assert.False(t, filter.Allows(complaint("", "Computer Science", "Science")))

	clause, args := filter.SQL(3)
	assert.Equal(t, "course = ANY($3)", clause)
	require.Len(t, args, 1)
}

func TestHodWithoutDepartmentSeesNothing(t *testing.T) {
	filter := ForActor(Actor{
		Role:     models.RoleAdmin,
		Position: string(models.PositionHOD),
	})

	assert.True(t, filter.SeesNothing())
	assert.False(t, filter.Allows(complaint("CS101", "Computer Science", "Science")))

	clause, args := filter.SQL(1)
	assert.Equal(t, "1=0", clause)
	assert.Empty(t, args)
}

func TestHodMatchesDepartment(t *testing.T) {
	filter := ForActor(Actor{
		Role:       models.RoleAdmin,
		Position:   string(models.PositionHOD),
		Department: "Computer Science",
	})

	assert.True(t, filter.Allows(complaint("CS101", "Computer Science", "Science")))
	assert.False(t, filter.Allows(complaint("CS101", "Mathematics", "Science")))
	assert.False(t, filter.Allows(complaint("CS101", "", "Science")))

	clause, args := filter.SQL(2)
	assert.Equal(t, "department = $2", clause)
	assert.Equal(t, []interface{}{"Computer Science"}, args)
}

func TestDeanMatchesFaculty(t *testing.T) {
	filter := ForActor(Actor{
		Role:     models.RoleAdmin,
		Position: string(models.PositionDean),
		Faculty:  "Science",
	})

	assert.True(t, filter.Allows(complaint("", "", "Science")))
	assert.False(t, filter.Allows(complaint("", "", "Arts")))
	assert.False(t, filter.Allows(complaint("", "", "")))
}

func TestSystemAdministratorSeesEverything(t *testing.T) {
	for _, position := range []string{string(models.PositionSystemAdmin), "admin"} {
		filter := ForActor(Actor{Role: models.RoleAdmin, Position: position})

		assert.True(t, filter.SeesAll(), position)
		assert.True(t, filter.Allows(complaint("", "", "")), position)
		assert.True(t, filter.Allows(complaint("CS999", "Any", "Any")), position)

		clause, args := filter.SQL(1)
		assert.Empty(t, clause, position)
		assert.Empty(t, args, position)
	}
}

func TestUnknownPositionSeesNothing(t *testing.T) {
	filter := ForActor(Actor{Role: models.RoleAdmin, Position: "registrar"})

	assert.True(t, filter.SeesNothing())
	assert.False(t, filter.Allows(complaint("CS101", "Computer Science", "Science")))
}

func TestLecturerWithoutCoursesSeesNothing(t *testing.T) {
	filter := ForActor(Actor{Role: models.RoleAdmin, Position: string(models.PositionLecturer)})

	assert.True(t, filter.SeesNothing())
}

func TestStudentRestrictedToOwnComplaints(t *testing.T) {
	filter := ForActor(Actor{Role: models.RoleStudent, UserID: "owner-1"})

	own := complaint("CS101", "", "")
	assert.True(t, filter.Allows(own))

	other := complaint("CS101", "", "")
	other.UserID = "owner-2"
	assert.False(t, filter.Allows(other))

	clause, args := filter.SQL(1)
	assert.Equal(t, "user_id = $1", clause)
	assert.Equal(t, []interface{}{"owner-1"}, args)
}

func TestActorFromClaimsParsesCourses(t *testing.T) {
	actor := ActorFromClaims(&models.SessionClaims{
		UserID:   "admin-1",
		Role:     models.RoleAdmin,
		Position: string(models.PositionLecturer),
		Courses:  "CS101, CS202 ,,CS303",
	})

	assert.Equal(t, []string{"CS101", "CS202", "CS303"}, actor.Courses)
}
