package echoapi_test

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shkola/core/user"
	testutil "github.com/trezcool/shkola/tests"
)

func newPersonBody(t *testing.T, email string, extra ...map[string]interface{}) []byte {
	data := map[string]interface{}{
		"firstname":        "Dmitri",
		"lastname":         "Volkov",
		"email":            email,
		"password":         testutil.Password,
		"password_confirm": testutil.Password,
	}
	for _, e := range extra {
		for k, v := range e {
			data[k] = v
		}
	}
	return marchallObj(t, data)
}

func TestUserAPI(t *testing.T) {
	app, srv := setup(t)
	admin := app.CreateAdmin(t, "admin@shkola.test")
	teacher := app.CreateTeacher(t, "teacher@shkola.test")
	student := app.CreateStudent(t, "student@shkola.test")
	adminToken := getToken(t, app, user.RoleAdmin, admin)

	tests := []httpTest{
		{
			name:     "query: not admin",
			path:     "/v1/users/teachers",
			token:    getToken(t, app, user.RoleTeacher, teacher),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "query teachers",
			path:     "/v1/users/teachers",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t, teacher),
		},
		{
			name:     "query students",
			path:     "/v1/users/students",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t, student),
		},
		{
			name:     "query parents: none",
			path:     "/v1/users/parents",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
		{
			name:     "retrieve teacher",
			path:     "/v1/users/teachers/" + strconv.Itoa(teacher.ID),
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, teacher),
		},
		{
			name:     "retrieve: unknown admin",
			path:     "/v1/users/admins/999",
			token:    adminToken,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "create: email taken by another role",
			method:   http.MethodPost,
			path:     "/v1/users/admins",
			body:     newPersonBody(t, "Student@shkola.test"),
			token:    adminToken,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "user with email student@shkola.test already exists"}),
		},
		{
			name:     "create: passwords differ",
			method:   http.MethodPost,
			path:     "/v1/users/teachers",
			body:     newPersonBody(t, "new@shkola.test", map[string]interface{}{"password_confirm": "other"}),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "create parent: unknown student",
			method:   http.MethodPost,
			path:     "/v1/users/parents",
			body:     newPersonBody(t, "parent@shkola.test", map[string]interface{}{"student_ids": []int{999}}),
			token:    adminToken,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "update: unknown email",
			method:   http.MethodPut,
			path:     "/v1/users/by-email/ghost@shkola.test",
			body:     []byte(`{"firstname": "Ghost"}`),
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "user with email ghost@shkola.test not found"}),
		},
		{
			name:     "delete: self",
			method:   http.MethodDelete,
			path:     "/v1/users/by-email/admin@shkola.test",
			token:    adminToken,
			wantCode: http.StatusForbidden,
		},
	}
	runHTTPTests(t, srv, tests)

	t.Run("create parent of a student", func(t *testing.T) {
		body := newPersonBody(t, "parent@shkola.test", map[string]interface{}{"student_ids": []int{student.ID}})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/parents", adminToken, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var parent user.Person
		decode(t, rec, &parent)
		assert.Equal(t, "parent@shkola.test", parent.Email)

		req, rec = newAuthRequest(http.MethodGet, "/v1/users/students/"+strconv.Itoa(student.ID), adminToken)
		srv.ServeHTTP(rec, req)
		var s user.Student
		decode(t, rec, &s)
		if assert.NotNil(t, s.ParentID) {
			assert.Equal(t, parent.ID, *s.ParentID)
		}
	})

	t.Run("update then delete by email", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/by-email/teacher%40shkola.test", adminToken,
			[]byte(`{"lastname": "Sokolov", "email": "Sokolov@Shkola.test"}`))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var acc user.Account
		decode(t, rec, &acc)
		assert.Equal(t, user.RoleTeacher, acc.Role)
		assert.Equal(t, "Sokolov", acc.Person.Lastname)
		assert.Equal(t, "sokolov@shkola.test", acc.Person.Email)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/users/by-email/teacher@shkola.test", adminToken)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/users/by-email/sokolov@shkola.test", adminToken)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/users/teachers", adminToken)
		srv.ServeHTTP(rec, req)
		assert.JSONEq(t, "[]", rec.Body.String())
	})
}
