package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justmusic/justmusic-api/internal/handler"
	"github.com/justmusic/justmusic-api/internal/models"
	"github.com/justmusic/justmusic-api/internal/service"
	appErrors "github.com/justmusic/justmusic-api/pkg/errors"
)

const (
	studentEmail    = "sam@example.com"
	otherStudent    = "lee@example.com"
	instructorEmail = "ivy@example.com"
	adminEmail      = "ada@example.com"
)

type roleTable map[string]models.UserRole

func (r roleTable) CheckRole(ctx context.Context, email string) (*models.RoleResponse, error) {
	role, ok := r[email]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return &models.RoleResponse{Role: role}, nil
}

// newTestEngine serves the real capability table with every handler replaced
// by a 200 stub, so only policy decides the outcome.
func newTestEngine(t *testing.T) (*gin.Engine, *service.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	routes := Routes(Handlers{})
	for i := range routes {
		routes[i].Handle = func(c *gin.Context) { c.Status(http.StatusOK) }
	}
	auth := service.NewAuthService(nil, nil, service.AuthConfig{AccessTokenSecret: "test-secret", Issuer: "test"})
	roles := roleTable{
		studentEmail:    models.RoleStudent,
		otherStudent:    models.RoleStudent,
		instructorEmail: models.RoleInstructor,
		adminEmail:      models.RoleAdmin,
	}
	return New(Options{Env: "test"}, routes, auth, roles), auth
}

func call(t *testing.T, r *gin.Engine, auth *service.AuthService, method, target, email string) int {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if email != "" {
		token, err := auth.IssueToken(models.TokenRequest{Email: email})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token.Token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestStudentCannotReachAdminRoutes(t *testing.T) {
	r, auth := newTestEngine(t)

	adminOnly := []struct{ method, target string }{
		{http.MethodGet, "/allusers"},
		{http.MethodGet, "/allclass"},
		{http.MethodPatch, "/updaterole?id=64b000000000000000000001"},
		{http.MethodPatch, "/updatestatus/64b000000000000000000001?status=approved"},
		{http.MethodPatch, "/updatefb?id=64b000000000000000000001"},
	}
	for _, tc := range adminOnly {
		assert.Equal(t, http.StatusForbidden, call(t, r, auth, tc.method, tc.target, studentEmail), tc.target)
		assert.Equal(t, http.StatusOK, call(t, r, auth, tc.method, tc.target, adminEmail), tc.target)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, auth := newTestEngine(t)

	assert.Equal(t, http.StatusUnauthorized, call(t, r, auth, http.MethodGet, "/allusers", ""))
	assert.Equal(t, http.StatusUnauthorized, call(t, r, auth, http.MethodGet, "/myselectedclass?email="+studentEmail, ""))
	assert.Equal(t, http.StatusOK, call(t, r, auth, http.MethodGet, "/popularclass", ""))
	assert.Equal(t, http.StatusOK, call(t, r, auth, http.MethodGet, "/allclasses", ""))
	assert.Equal(t, http.StatusOK, call(t, r, auth, http.MethodPost, "/jwt", ""))
}

func TestOwnerBindingEnforced(t *testing.T) {
	r, auth := newTestEngine(t)

	assert.Equal(t, http.StatusOK, call(t, r, auth, http.MethodGet, "/myselectedclass?email="+studentEmail, studentEmail))
	assert.Equal(t, http.StatusForbidden, call(t, r, auth, http.MethodGet, "/myselectedclass?email="+otherStudent, studentEmail))
	assert.Equal(t, http.StatusBadRequest, call(t, r, auth, http.MethodGet, "/enrolledclass", studentEmail))
	assert.Equal(t, http.StatusForbidden, call(t, r, auth, http.MethodPatch, "/paymentsuccess?classId=64b000000000000000000001&email="+otherStudent, studentEmail))

	assert.Equal(t, http.StatusOK, call(t, r, auth, http.MethodGet, "/users/checkrole/"+studentEmail, studentEmail))
	assert.Equal(t, http.StatusForbidden, call(t, r, auth, http.MethodGet, "/users/checkrole/"+otherStudent, studentEmail))
	assert.Equal(t, http.StatusOK, call(t, r, auth, http.MethodGet, "/users/checkrole/"+otherStudent, adminEmail))

	assert.Equal(t, http.StatusOK, call(t, r, auth, http.MethodGet, "/classes?email="+instructorEmail, instructorEmail))
	assert.Equal(t, http.StatusForbidden, call(t, r, auth, http.MethodGet, "/classes?email="+instructorEmail, studentEmail))
}

// selectionRecorder keeps one selection per class and email exactly as the
// unique index on the selections collection does.
type selectionRecorder struct {
	mu     sync.Mutex
	seen   map[string]bool
	emails []string
}

func (s *selectionRecorder) SelectClass(ctx context.Context, email string, req models.SelectClassRequest) (*models.SelectionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails = append(s.emails, email)
	key := req.ClassID + "|" + email
	if s.seen[key] {
		return &models.SelectionResult{Matched: true}, nil
	}
	s.seen[key] = true
	return &models.SelectionResult{InsertedID: "64b0000000000000000000aa"}, nil
}

func (s *selectionRecorder) DeleteSelection(ctx context.Context, email, classID string) (*models.DeleteResult, error) {
	return &models.DeleteResult{}, nil
}

func (s *selectionRecorder) ListSelected(ctx context.Context, email string) ([]models.StudentClassSelection, error) {
	return nil, nil
}

func (s *selectionRecorder) ListEnrolled(ctx context.Context, email string) ([]models.StudentClassSelection, error) {
	return nil, nil
}

func (s *selectionRecorder) PaymentHistory(ctx context.Context, email string) ([]models.StudentClassSelection, error) {
	return nil, nil
}

func TestOwnerEmailCaseVariantsReachOneOwner(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := &selectionRecorder{seen: map[string]bool{}}
	auth := service.NewAuthService(nil, nil, service.AuthConfig{AccessTokenSecret: "test-secret", Issuer: "test"})
	routes := Routes(Handlers{Enrollment: handler.NewEnrollmentHandler(recorder, nil)})
	r := New(Options{Env: "test"}, routes, auth, roleTable{studentEmail: models.RoleStudent})

	token, err := auth.IssueToken(models.TokenRequest{Email: studentEmail})
	require.NoError(t, err)

	codes := []int{}
	for _, email := range []string{"sam@example.com", "SAM@example.com", "Sam@Example.com"} {
		req := httptest.NewRequest(http.MethodPost, "/selectclass?email="+email, strings.NewReader(`{"classId":"64b000000000000000000001"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token.Token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusCreated, http.StatusOK, http.StatusOK}, codes)
	assert.Equal(t, []string{studentEmail, studentEmail, studentEmail}, recorder.emails)
}

func TestMixedCaseTokenMatchesOwner(t *testing.T) {
	r, auth := newTestEngine(t)

	assert.Equal(t, http.StatusOK, call(t, r, auth, http.MethodGet, "/myselectedclass?email="+studentEmail, "SAM@Example.com"))
	assert.Equal(t, http.StatusForbidden, call(t, r, auth, http.MethodGet, "/myselectedclass?email=LEE@example.com", "SAM@Example.com"))
}

func TestUnregisteredCallerIsForbidden(t *testing.T) {
	r, auth := newTestEngine(t)

	assert.Equal(t, http.StatusForbidden, call(t, r, auth, http.MethodPost, "/paymentintent", "ghost@example.com"))
	assert.Equal(t, http.StatusOK, call(t, r, auth, http.MethodPost, "/paymentintent", studentEmail))
}

func TestEveryRouteHasAHandler(t *testing.T) {
	seen := map[string]bool{}
	for _, rt := range Routes(Handlers{}) {
		key := rt.Method + " " + rt.Path
		assert.False(t, seen[key], "duplicate route %s", key)
		seen[key] = true
		assert.NotNil(t, rt.Handle, key)
	}
	assert.True(t, seen["PATCH /paymentsuccess"])
	assert.True(t, seen["GET /popularinstructor"])
}
