package echoapi_test

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/shkola/core/school"
	"github.com/trezcool/shkola/core/user"
)

func TestHomeworkAPI(t *testing.T) {
	app, srv := setup(t)
	teacher := app.CreateTeacher(t, "teacher@shkola.test")
	stranger := app.CreateTeacher(t, "stranger@shkola.test")
	student := app.CreateStudent(t, "student@shkola.test")
	class := app.CreateClass(t, "Б", 10)
	app.Enroll(t, class.ID, student.ID)
	literature := app.CreateSubject(t, "Литература", teacher.ID, &class.ID)

	teacherToken := getToken(t, app, user.RoleTeacher, teacher)
	studentToken := getToken(t, app, user.RoleStudent, student.Person)

	var hw school.Homework
	t.Run("create", func(t *testing.T) {
		body := marchallObj(t, school.NewHomework{Title: "Читать «Отцы и дети»", Deadline: "2026-10-20", ClassID: class.ID, SubjectID: literature.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/homeworks", teacherToken, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &hw)
	})
	hwPath := "/v1/homeworks/" + strconv.Itoa(hw.ID)
	classHomeworks := "/v1/classes/" + strconv.Itoa(class.ID) + "/homeworks"

	tests := []httpTest{
		{
			name:     "create: other teacher",
			method:   http.MethodPost,
			path:     "/v1/homeworks",
			body:     marchallObj(t, school.NewHomework{Title: "Эссе", Deadline: "2026-10-21", ClassID: class.ID, SubjectID: literature.ID}),
			token:    getToken(t, app, user.RoleTeacher, stranger),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "create: bad deadline",
			method:   http.MethodPost,
			path:     "/v1/homeworks",
			body:     []byte(`{"title": "Эссе", "deadline": "21.10.2026", "class_id": 1, "subject_id": 1}`),
			token:    teacherToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "retrieve: student",
			path:     hwPath,
			token:    studentToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "class homeworks: student of the class",
			path:     classHomeworks,
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t, hw),
		},
		{
			name:     "class homeworks: unknown subject",
			path:     classHomeworks + "?subject_id=999",
			token:    studentToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "subject with id 999 not found"}),
		},
		{
			name:     "subject homeworks: student of the class",
			path:     "/v1/subjects/" + strconv.Itoa(literature.ID) + "/homeworks",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t, hw),
		},
		{
			name:     "update",
			method:   http.MethodPut,
			path:     hwPath,
			body:     []byte(`{"deadline": "2026-10-27"}`),
			token:    teacherToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     hwPath,
			token:    teacherToken,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "delete: gone",
			method:   http.MethodDelete,
			path:     hwPath,
			token:    teacherToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "homework with id " + strconv.Itoa(hw.ID) + " not found"}),
		},
	}
	runHTTPTests(t, srv, tests)
}
