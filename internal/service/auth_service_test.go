package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/uniportal/ecms-api/internal/models"
	appErrors "github.com/uniportal/ecms-api/pkg/errors"
	"github.com/uniportal/ecms-api/pkg/mailer"
)

type mockUserRepo struct {
	users       map[string]models.User
	resetTokens map[string]models.PasswordResetToken
	passwords   map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:       make(map[string]models.User),
		resetTokens: make(map[string]models.PasswordResetToken),
		passwords:   make(map[string]string),
	}
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string, role models.UserRole) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email && u.Role == role {
			u := u
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByEmailOrStudentID(ctx context.Context, email, studentID string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
		if u.StudentID != nil && *u.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) ExistsAdminByEmail(ctx context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email && u.Role == models.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "new-user"
	}
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
		m.users[id] = u
	}
	m.passwords[id] = passwordHash
	return nil
}

func (m *mockUserRepo) CreateResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	m.resetTokens[token.Token] = *token
	return nil
}

func (m *mockUserRepo) FindValidResetToken(ctx context.Context, token, userID string) (*models.PasswordResetToken, error) {
	if t, ok := m.resetTokens[token]; ok && t.UserID == userID && t.ExpiresAt.After(time.Now()) {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) DeleteResetToken(ctx context.Context, token string) error {
	delete(m.resetTokens, token)
	return nil
}

type recordingMailer struct {
	resetEmails    []string
	responseEmails []mailer.ResponseDetails
}

func (m *recordingMailer) SendPasswordReset(ctx context.Context, toEmail, resetURL string) error {
	m.resetEmails = append(m.resetEmails, toEmail)
	return nil
}

func (m *recordingMailer) SendComplaintResponse(ctx context.Context, toEmail string, details mailer.ResponseDetails) error {
	m.responseEmails = append(m.responseEmails, details)
	return nil
}

func testAuthService(repo *mockUserRepo, m mailer.Mailer) *AuthService {
	return NewAuthService(repo, m, nil, nil, AuthConfig{
		SessionSecret: "test-secret",
		SessionExpiry: time.Hour,
		AppURL:        "http://localhost:3000",
	})
}

func seedStudent(repo *mockUserRepo, id, email, password string) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	studentID := "STU-100"
	repo.users[id] = models.User{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    "Ada",
		LastName:     "Obi",
		Role:         models.RoleStudent,
		StudentID:    &studentID,
	}
}

func TestAuthServiceRegisterStudent(t *testing.T) {
	repo := newMockUserRepo()
	svc := testAuthService(repo, nil)

	user, err := svc.RegisterStudent(context.Background(), RegisterStudentRequest{
		Email:      "ada@uni.edu",
		Password:   "correct-horse",
		FirstName:  "Ada",
		LastName:   "Obi",
		StudentID:  "STU-100",
		Level:      "300",
		Department: "Computer Science",
		Faculty:    "Science",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	// Duplicate registration is rejected.
	_, err = svc.RegisterStudent(context.Background(), RegisterStudentRequest{
		Email:      "ada@uni.edu",
		Password:   "correct-horse",
		FirstName:  "Ada",
		LastName:   "Obi",
		StudentID:  "STU-999",
		Level:      "300",
		Department: "Computer Science",
		Faculty:    "Science",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	repo := newMockUserRepo()
	seedStudent(repo, "stu-1", "ada@uni.edu", "correct-horse")
	svc := testAuthService(repo, nil)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "ada@uni.edu",
		Password: "correct-horse",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "stu-1", resp.User.ID)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "stu-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newMockUserRepo()
	seedStudent(repo, "stu-1", "ada@uni.edu", "correct-horse")
	svc := testAuthService(repo, nil)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "ada@uni.edu",
		Password: "wrong",
		Role:     models.RoleStudent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginRoleMismatch(t *testing.T) {
	repo := newMockUserRepo()
	seedStudent(repo, "stu-1", "ada@uni.edu", "correct-horse")
	svc := testAuthService(repo, nil)

	// A student cannot log in through the admin door.
	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "ada@uni.edu",
		Password: "correct-horse",
		Role:     models.RoleAdmin,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceAdminTokenCarriesScopeAttributes(t *testing.T) {
	repo := newMockUserRepo()
	hash, _ := bcrypt.GenerateFromPassword([]byte("swordfish"), bcrypt.MinCost)
	position := "lecturer"
	courses := "CS101, CS202"
	staffID := "STF-1"
	repo.users["adm-1"] = models.User{
		ID:           "adm-1",
		Email:        "bello@uni.edu",
		PasswordHash: string(hash),
		FirstName:    "Musa",
		LastName:     "Bello",
		Role:         models.RoleAdmin,
		StaffID:      &staffID,
		Position:     &position,
		Courses:      &courses,
	}
	svc := testAuthService(repo, nil)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "bello@uni.edu",
		Password: "swordfish",
		Role:     models.RoleAdmin,
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "lecturer", claims.Position)
	assert.Equal(t, []string{"CS101", "CS202"}, claims.CourseList())
}

func TestAuthServiceValidateTokenRejectsTampered(t *testing.T) {
	repo := newMockUserRepo()
	seedStudent(repo, "stu-1", "ada@uni.edu", "correct-horse")
	svc := testAuthService(repo, nil)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "ada@uni.edu",
		Password: "correct-horse",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, nil, AuthConfig{SessionSecret: "different-secret", SessionExpiry: time.Hour})
	_, err = other.ValidateToken(resp.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServicePasswordResetFlow(t *testing.T) {
	repo := newMockUserRepo()
	seedStudent(repo, "stu-1", "ada@uni.edu", "correct-horse")
	m := &recordingMailer{}
	svc := testAuthService(repo, m)

	require.NoError(t, svc.ForgotPassword(context.Background(), ForgotPasswordRequest{
		Email: "ada@uni.edu",
		Role:  models.RoleStudent,
	}))
	require.Len(t, m.resetEmails, 1)
	require.Len(t, repo.resetTokens, 1)

	var token string
	for tok := range repo.resetTokens {
		token = tok
	}
	require.NoError(t, svc.ResetPassword(context.Background(), ResetPasswordRequest{
		Token:       token,
		UserID:      "stu-1",
		NewPassword: "a-brand-new-pass",
	}))

	// Token is single use.
	err := svc.ResetPassword(context.Background(), ResetPasswordRequest{
		Token:       token,
		UserID:      "stu-1",
		NewPassword: "another-pass",
	})
	require.Error(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{
		Email:    "ada@uni.edu",
		Password: "a-brand-new-pass",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
}

func TestAuthServiceForgotPasswordUnknownEmailSucceeds(t *testing.T) {
	repo := newMockUserRepo()
	m := &recordingMailer{}
	svc := testAuthService(repo, m)

	require.NoError(t, svc.ForgotPassword(context.Background(), ForgotPasswordRequest{
		Email: "nobody@uni.edu",
		Role:  models.RoleStudent,
	}))
	assert.Empty(t, m.resetEmails)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newMockUserRepo()
	seedStudent(repo, "stu-1", "ada@uni.edu", "correct-horse")
	svc := testAuthService(repo, nil)

	err := svc.ChangePassword(context.Background(), "stu-1", ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "a-brand-new-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.ChangePassword(context.Background(), "stu-1", ChangePasswordRequest{
		CurrentPassword: "correct-horse",
		NewPassword:     "a-brand-new-pass",
	}))

	_, err = svc.Login(context.Background(), LoginRequest{
		Email:    "ada@uni.edu",
		Password: "a-brand-new-pass",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
}

func TestAuthServiceUpdateProfile(t *testing.T) {
	repo := newMockUserRepo()
	seedStudent(repo, "stu-1", "ada@uni.edu", "correct-horse")
	svc := testAuthService(repo, nil)

	user, err := svc.UpdateProfile(context.Background(), "stu-1", UpdateProfileRequest{
		FirstName:  "Adaeze",
		LastName:   "Obi",
		Email:      "adaeze@uni.edu",
		Phone:      "08030000000",
		Department: "Computer Science",
		Faculty:    "Science",
	})
	require.NoError(t, err)
	assert.Equal(t, "Adaeze", user.FirstName)
	assert.Equal(t, "adaeze@uni.edu", user.Email)
	require.NotNil(t, user.Department)
	assert.Equal(t, "Computer Science", *user.Department)

	stored := repo.users["stu-1"]
	assert.Equal(t, "adaeze@uni.edu", stored.Email)
	require.NotNil(t, stored.StudentID)
	assert.Equal(t, "STU-100", *stored.StudentID)
}

func TestAuthServiceUpdateProfileDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	seedStudent(repo, "stu-1", "ada@uni.edu", "correct-horse")
	other := models.User{ID: "stu-2", Email: "taken@uni.edu", Role: models.RoleStudent}
	repo.users[other.ID] = other
	svc := testAuthService(repo, nil)

	_, err := svc.UpdateProfile(context.Background(), "stu-1", UpdateProfileRequest{
		FirstName: "Ada",
		LastName:  "Obi",
		Email:     "taken@uni.edu",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	assert.Equal(t, "ada@uni.edu", repo.users["stu-1"].Email)
}

func TestAuthServiceUpdateProfileUnknownUser(t *testing.T) {
	svc := testAuthService(newMockUserRepo(), nil)

	_, err := svc.UpdateProfile(context.Background(), "ghost", UpdateProfileRequest{
		FirstName: "Ada",
		LastName:  "Obi",
		Email:     "ada@uni.edu",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
