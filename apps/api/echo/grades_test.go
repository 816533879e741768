package echoapi_test

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shkola/core/school"
	"github.com/trezcool/shkola/core/user"
	emailsvc "github.com/trezcool/shkola/services/email"
)

func TestGradeAPI(t *testing.T) {
	app, srv := setup(t)
	teacher := app.CreateTeacher(t, "teacher@shkola.test")
	stranger := app.CreateTeacher(t, "stranger@shkola.test")
	student := app.CreateStudent(t, "student@shkola.test")
	classmate := app.CreateStudent(t, "classmate@shkola.test")
	parent := app.CreateParent(t, "parent@shkola.test", student.ID)

	class := app.CreateClass(t, "А", 9)
	app.Enroll(t, class.ID, student.ID, classmate.ID)
	math := app.CreateSubject(t, "Алгебра", teacher.ID, &class.ID)
	physics := app.CreateSubject(t, "Физика", stranger.ID, &class.ID)

	teacherToken := getToken(t, app, user.RoleTeacher, teacher)
	strangerToken := getToken(t, app, user.RoleTeacher, stranger)

	var grade school.Grade
	t.Run("create", func(t *testing.T) {
		emailsvc.ClearSentMessages()
		body := marchallObj(t, school.NewGrade{Mark: 5, Date: "2026-09-14", StudentID: student.ID, SubjectID: math.ID, Comment: "Молодец"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/grades", teacherToken, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		decode(t, rec, &grade)
		assert.Equal(t, 5, grade.Mark)
		assert.Equal(t, "2026-09-14", grade.Date.Format(school.DateLayout))
		assert.Len(t, emailsvc.GetSentMessages(), 1)
	})
	gradePath := "/v1/grades/" + strconv.Itoa(grade.ID)

	tests := []httpTest{
		{
			name:     "create: subject of another teacher",
			method:   http.MethodPost,
			path:     "/v1/grades",
			body:     marchallObj(t, school.NewGrade{Mark: 4, StudentID: student.ID, SubjectID: physics.ID}),
			token:    teacherToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "create: unknown subject",
			method:   http.MethodPost,
			path:     "/v1/grades",
			body:     marchallObj(t, school.NewGrade{Mark: 4, StudentID: student.ID, SubjectID: 999}),
			token:    teacherToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "subject with id 999 not found"}),
		},
		{
			name:     "create: student may not grade",
			method:   http.MethodPost,
			path:     "/v1/grades",
			body:     marchallObj(t, school.NewGrade{Mark: 5, StudentID: student.ID, SubjectID: math.ID}),
			token:    getToken(t, app, user.RoleStudent, student.Person),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "create: invalid",
			method:   http.MethodPost,
			path:     "/v1/grades",
			body:     []byte(`{"subject_id": 1}`),
			token:    teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"mark":       "this field is required",
				"student_id": "this field is required",
			}),
		},
		{
			name:     "retrieve",
			path:     gradePath,
			token:    teacherToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, grade),
		},
		{
			name:     "retrieve: other teacher",
			path:     gradePath,
			token:    strangerToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "retrieve: not found",
			path:     "/v1/grades/999",
			token:    strangerToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "grade with id 999 not found"}),
		},
		{
			name:     "update: other teacher",
			method:   http.MethodPut,
			path:     gradePath,
			body:     []byte(`{"mark": 2}`),
			token:    strangerToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "student grades: self",
			path:     "/v1/students/" + strconv.Itoa(student.ID) + "/grades",
			token:    getToken(t, app, user.RoleStudent, student.Person),
			wantCode: http.StatusOK,
			wantData: marchallList(t, grade),
		},
		{
			name:     "student grades: parent",
			path:     "/v1/students/" + strconv.Itoa(student.ID) + "/grades",
			token:    getToken(t, app, user.RoleParent, parent),
			wantCode: http.StatusOK,
			wantData: marchallList(t, grade),
		},
		{
			name:     "student grades: teacher of the class",
			path:     "/v1/students/" + strconv.Itoa(student.ID) + "/grades?subject_id=" + strconv.Itoa(physics.ID),
			token:    strangerToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
		{
			name:     "student grades: classmate",
			path:     "/v1/students/" + strconv.Itoa(student.ID) + "/grades",
			token:    getToken(t, app, user.RoleStudent, classmate.Person),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "student grades: unknown student",
			path:     "/v1/students/999/grades",
			token:    teacherToken,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "subject grades: teacher",
			path:     "/v1/subjects/" + strconv.Itoa(math.ID) + "/grades",
			token:    teacherToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t, grade),
		},
		{
			name:     "subject grades: other teacher",
			path:     "/v1/subjects/" + strconv.Itoa(math.ID) + "/grades",
			token:    strangerToken,
			wantCode: http.StatusForbidden,
		},
	}
	runHTTPTests(t, srv, tests)

	t.Run("update and delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, gradePath, teacherToken, []byte(`{"mark": 4, "comment": "Почти"}`))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated school.Grade
		decode(t, rec, &updated)
		assert.Equal(t, 4, updated.Mark)
		assert.Equal(t, "Почти", updated.Comment)
		assert.True(t, grade.Date.Equal(updated.Date))

		req, rec = newAuthRequest(http.MethodDelete, gradePath, teacherToken)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, gradePath, teacherToken)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTeacherSubjects(t *testing.T) {
	app, srv := setup(t)
	admin := app.CreateAdmin(t, "admin@shkola.test")
	teacher := app.CreateTeacher(t, "teacher@shkola.test")
	other := app.CreateTeacher(t, "other@shkola.test")
	subject := app.CreateSubject(t, "История", teacher.ID, nil)
	app.CreateSubject(t, "География", other.ID, nil)

	tests := []httpTest{
		{
			name:     "own subjects",
			path:     "/v1/teachers/me/subjects",
			token:    getToken(t, app, user.RoleTeacher, teacher),
			wantCode: http.StatusOK,
			wantData: marchallList(t, subject),
		},
		{
			name:     "admin is not a teacher",
			path:     "/v1/teachers/me/subjects",
			token:    getToken(t, app, user.RoleAdmin, admin),
			wantCode: http.StatusForbidden,
		},
	}
	runHTTPTests(t, srv, tests)
}
