package tests

import (
	"context"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asistencia/apps/api/echo"
	"github.com/trezcool/asistencia/core/user"
	"github.com/trezcool/asistencia/services/email"
	"github.com/trezcool/asistencia/tests"
)

const strongPwd = "Xy7#kqPlm2"

func Test_userApi_login(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher@test.cd", strongPwd, user.RoleTeacher)

	tests := []httpTest{
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/api/login",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"this field is required","password":"this field is required"}`),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/api/login",
			body:     marshallObj(t, echoapi.LoginRequest{Email: usr.Email, Password: "nope"}),
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, httpErr{Error: user.ErrInvalidCredentials.Error()}),
		},
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     "/api/login",
			body:     marshallObj(t, echoapi.LoginRequest{Email: "ghost@test.cd", Password: strongPwd}),
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, httpErr{Error: user.ErrInvalidCredentials.Error()}),
		},
	}
	runHTTPTests(t, env, tests)

	t.Run("success", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/login", "", marshallObj(t, echoapi.LoginRequest{Email: " Teacher@Test.cd ", Password: strongPwd}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res echoapi.LoginResponse
		unmarshall(t, rec, &res)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, usr.ID, res.User.ID)
		assert.NotNil(t, res.User.LastLogin)

		// the issued token authenticates
		rec = env.do(http.MethodGet, "/api/me", res.Token)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_userApi_authRequired(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.usrRepo, "Student", "student@test.cd", strongPwd, user.RoleStudent)
	token := env.getToken(t, usr)

	// token of a deleted user
	ghost := testutil.CreateUser(t, env.usrRepo, "Ghost", "ghost@test.cd", strongPwd, user.RoleTeacher)
	ghostToken := env.getToken(t, ghost)
	require.NoError(t, env.usrRepo.DeleteUser(context.Background(), ghost.ID))

	tests := []httpTest{
		{
			name:     "no token",
			method:   http.MethodGet,
			path:     "/api/me",
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errMissingToken),
		},
		{
			name:     "bad token",
			method:   http.MethodGet,
			path:     "/api/me",
			token:    "not.a.token",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "deleted user",
			method:   http.MethodGet,
			path:     "/api/me",
			token:    ghostToken,
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "me",
			method:   http.MethodGet,
			path:     "/api/me",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, usr),
		},
		{
			name:     "menu",
			method:   http.MethodGet,
			path:     "/api/me/menu",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, echoapi.MenuResponse{Role: user.RoleStudent, Menu: user.StudentPortal{}.Menu()}),
		},
	}
	runHTTPTests(t, env, tests)
}

func Test_userApi_users(t *testing.T) {
	env := setup(t)
	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin@test.cd", strongPwd, user.RoleAdmin)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher@test.cd", strongPwd, user.RoleTeacher)
	adminToken := env.getToken(t, admin)
	teacherToken := env.getToken(t, teacher)

	tests := []httpTest{
		{
			name:     "teacher cannot list users",
			method:   http.MethodGet,
			path:     "/api/users",
			token:    teacherToken,
			wantCode: http.StatusForbidden,
			wantData: []byte(`{"error":"permission denied"}`),
		},
		{
			name:     "teacher reads own account",
			method:   http.MethodGet,
			path:     "/api/users/" + itoa(teacher.ID),
			token:    teacherToken,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, teacher),
		},
		{
			name:     "teacher cannot read another account",
			method:   http.MethodGet,
			path:     "/api/users/" + itoa(admin.ID),
			token:    teacherToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "admin searches users",
			method:   http.MethodGet,
			path:     "/api/users?search=teach",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, []user.User{teacher}),
		},
		{
			name:     "admin cannot delete themselves",
			method:   http.MethodDelete,
			path:     "/api/users/" + itoa(admin.ID),
			token:    adminToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unknown user",
			method:   http.MethodGet,
			path:     "/api/users/999",
			token:    adminToken,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "non-numeric id",
			method:   http.MethodGet,
			path:     "/api/users/abc",
			token:    adminToken,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "admin creates a user",
			method:   http.MethodPost,
			path:     "/api/users",
			token:    adminToken,
			body:     []byte(`{"name":"Other","email":"other@test.cd","role":"teacher","password":"` + strongPwd + `","passwordConfirm":"` + strongPwd + `"}`),
			wantCode: http.StatusCreated,
		},
		{
			name:     "duplicate email",
			method:   http.MethodPost,
			path:     "/api/users",
			token:    adminToken,
			body:     []byte(`{"name":"Other","email":"OTHER@test.cd","role":"teacher","password":"` + strongPwd + `","passwordConfirm":"` + strongPwd + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"` + user.ErrEmailExists.Error() + `"}`),
		},
	}
	runHTTPTests(t, env, tests)
}

func Test_userApi_signup(t *testing.T) {
	env := setup(t)

	body := func(role string) []byte {
		return []byte(`{"name":"New","email":"new@test.cd","role":"` + role + `","password":"` + strongPwd + `","passwordConfirm":"` + strongPwd + `"}`)
	}
	tests := []httpTest{
		{
			name:     "admins cannot sign up",
			method:   http.MethodPost,
			path:     "/api/signup",
			body:     body("admin"),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "student",
			method:   http.MethodPost,
			path:     "/api/signup",
			body:     body("student"),
			wantCode: http.StatusCreated,
		},
	}
	runHTTPTests(t, env, tests)
}

var tokenRegex = regexp.MustCompile(`token=([0-9a-f-]{36})`)

func Test_userApi_passwordRecovery(t *testing.T) {
	env := setup(t)
	usr := user.User{Name: "Lost", Email: "lost@test.cd", Role: user.RoleTeacher}
	require.NoError(t, usr.SetPassword(strongPwd))
	require.NoError(t, usr.SetRecoveryWord("Banana"))
	usr, err := env.usrRepo.CreateUser(context.Background(), usr)
	require.NoError(t, err)

	// wrong recovery word
	rec := env.do(http.MethodPost, "/api/recover-password", "", []byte(`{"email":"lost@test.cd","recoveryWord":"apple"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, emailsvc.Sent())

	rec = env.do(http.MethodPost, "/api/recover-password", "", []byte(`{"email":"lost@test.cd","recoveryWord":"banana"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sent := emailsvc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, usr.Email, sent[0].To[0].Address)
	match := tokenRegex.FindStringSubmatch(sent[0].TextContent)
	require.Len(t, match, 2, sent[0].TextContent)
	token := match[1]

	newPwd := "Nw8&zzTopq"
	reset := []byte(`{"token":"` + token + `","password":"` + newPwd + `","passwordConfirm":"` + newPwd + `"}`)
	rec = env.do(http.MethodPost, "/api/reset-password", "", reset)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// single use
	rec = env.do(http.MethodPost, "/api/reset-password", "", reset)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/login", "", marshallObj(t, echoapi.LoginRequest{Email: usr.Email, Password: newPwd}))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodPost, "/api/login", "", marshallObj(t, echoapi.LoginRequest{Email: usr.Email, Password: strongPwd}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
