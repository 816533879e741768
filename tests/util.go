// Package testutil builds an in-memory application and its fixtures for package tests.
package testutil

import (
	"context"
	"io"
	"log"
	"net/mail"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shkola/core"
	"github.com/trezcool/shkola/core/policy"
	"github.com/trezcool/shkola/core/school"
	"github.com/trezcool/shkola/core/user"
	emailsvc "github.com/trezcool/shkola/services/email"
	logsvc "github.com/trezcool/shkola/services/logger"
	inmemdb "github.com/trezcool/shkola/storage/database/inmem"
)

// Password satisfies the password policy; every fixture person uses it.
const Password = "Kl4ss-Zhurnal!"

type App struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *inmemdb.DB
	Mail       core.EmailService
	Users      *user.Service
	School     *school.Services
	Policy     *policy.Engine
	Validate   *validator.Validate
	Translator ut.Translator
}

func NewConfig() *core.Config {
	return &core.Config{
		Debug:            true,
		TestMode:         true,
		Env:              "TEST",
		Build:            "test",
		AppName:          "Shkola",
		SecretKey:        "test-secret-key",
		DefaultFromEmail: mail.Address{Name: "Shkola", Address: "noreply@shkola.test"},
		FrontendBaseURL:  "http://shkola.test",
		Server: core.ServerConfig{
			Address:                   ":0",
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: time.Hour,
			LoginRateLimit:            5,
			LoginRateWindow:           time.Minute,
		},
		Database: core.DatabaseConfig{InMemory: true},
	}
}

// NewLogger returns a silent logger with Rollbar reporting disabled.
func NewLogger(conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

// NewApp wires the services over a fresh in-memory database.
// Emails are delivered synchronously to emailsvc.SentMessages, which is cleared.
func NewApp(t testing.TB) *App {
	t.Helper()

	conf := NewConfig()
	logger := NewLogger(conf)
	db := inmemdb.Open()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	emailsvc.ClearSentMessages()

	userSvc := user.NewService(db, inmemdb.NewUserRepositories(db), mailSvc, logger)
	schoolSvcs := school.NewServices(db, inmemdb.NewSchoolRepositories(db), userSvc, mailSvc, logger)
	userSvc.AddDependentsRemover(schoolSvcs)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	return &App{
		Conf:       conf,
		Logger:     logger,
		DB:         db,
		Mail:       mailSvc,
		Users:      userSvc,
		School:     schoolSvcs,
		Policy:     policy.NewSchoolEngine(schoolSvcs, userSvc),
		Validate:   validate,
		Translator: translator,
	}
}

func newPerson(firstname, lastname, email string) user.NewPerson {
	return user.NewPerson{
		Firstname:       firstname,
		Lastname:        lastname,
		Email:           email,
		Password:        Password,
		PasswordConfirm: Password,
	}
}

func (a *App) CreateAdmin(t testing.TB, email string) user.Person {
	t.Helper()
	p, err := a.Users.RegisterAdmin(context.Background(), newPerson("Anna", "Ivanova", email))
	if err != nil {
		t.Fatalf("CreateAdmin() failed: %v", err)
	}
	return p
}

func (a *App) CreateTeacher(t testing.TB, email string) user.Person {
	t.Helper()
	p, err := a.Users.RegisterTeacher(context.Background(), newPerson("Boris", "Petrov", email))
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return p
}

func (a *App) CreateStudent(t testing.TB, email string) user.Student {
	t.Helper()
	s, err := a.Users.RegisterStudent(context.Background(), newPerson("Vera", "Smirnova", email))
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

func (a *App) CreateParent(t testing.TB, email string, studentIDs ...int) user.Person {
	t.Helper()
	p, err := a.Users.RegisterParent(context.Background(), user.NewParent{
		NewPerson:  newPerson("Galina", "Smirnova", email),
		StudentIDs: studentIDs,
	})
	if err != nil {
		t.Fatalf("CreateParent() failed: %v", err)
	}
	return p
}

func (a *App) CreateClass(t testing.TB, letter string, number int) school.Class {
	t.Helper()
	c, err := a.School.Classes.Create(context.Background(), school.NewClass{Letter: letter, Number: number})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return c
}

// CreateSubject creates a subject taught by teacherID, in classID when it is not nil.
func (a *App) CreateSubject(t testing.TB, name string, teacherID int, classID *int) school.Subject {
	t.Helper()
	s, err := a.School.Subjects.Create(context.Background(), school.NewSubject{
		Name:      name,
		Type:      "core",
		TeacherID: teacherID,
		ClassID:   classID,
	})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return s
}

// Enroll puts the students into the class.
func (a *App) Enroll(t testing.TB, classID int, studentIDs ...int) {
	t.Helper()
	if err := a.School.Classes.AddStudents(context.Background(), classID, studentIDs); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
}
