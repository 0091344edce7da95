package main

import (
	"context"
	"database/sql"
	"io/fs"
	"io/ioutil"
	"log"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/profile"
	logsvc "github.com/trezcool/darasa/services/logger"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	testutil "github.com/trezcool/darasa/tests"
)

var (
	classRepo   classroom.Repository
	profileRepo profile.Repository
)

func setup(t *testing.T) *commandLine {
	logger = log.New(ioutil.Discard, "", 0)
	conf := testutil.NewConfig()

	// set up DB & repos
	db := testutil.OpenDB(t)
	classRepo = dummydb.NewClassroomRepository(db)
	profileRepo = dummydb.NewProfileRepository(db)

	// set up validation
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	// start CLI
	return &commandLine{
		db:          &sqlx.DB{},
		conf:        conf,
		validate:    validate,
		profileRepo: profileRepo,
		profileSvc:  profile.NewService(profileRepo),
		classSvc: classroom.NewService(
			classRepo,
			profileRepo,
			nil,
			logsvc.NewStdLogger(logger),
		),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	var gotCommand string
	var gotArgs []string
	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		gotCommand = command
		gotArgs = args
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to forwards args", args: []string{"migrate", "up-to", "2"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if gotCommand != tt.args[1] {
					t.Errorf("goose command = %v, want %v", gotCommand, tt.args[1])
				}
				if len(tt.args) > 2 && (len(gotArgs) == 0 || gotArgs[0] != tt.args[2]) {
					t.Errorf("goose args = %v, want %v", gotArgs, tt.args[2:])
				}
			}
		})
	}
}

func Test_commandLine_provision(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"provision"}, wantErr: errHelp},
		{name: "user but no role", args: []string{"provision", "-user", "u1"}, wantErr: errHelp},
		{name: "invalid role", args: []string{"provision", "-user", "u1", "-role", "boss"}, wantErrStr: "invalid role"},
		{name: "invalid email", args: []string{"provision", "-user", "u1", "-role", "student", "-email", "lol"}, wantErrStr: "invalid email"},
		{name: "ok", args: []string{"provision", "-user", "u1", "-role", "Student", "-email", "u1@test.test", "-name", "User One"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErrStr != "" {
				if err == nil {
					t.Fatal("cli.run() expected an error")
				}
				return
			}
			if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	prof, err := profileRepo.GetProfileByUserID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetProfileByUserID() failed: %v", err)
	}
	if prof.Role != profile.RoleStudent {
		t.Errorf("role = %v, want %v", prof.Role, profile.RoleStudent)
	}
}

func Test_commandLine_createClassroom(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no args", args: []string{"createclassroom"}, wantErr: errHelp},
		{name: "name but no code", args: []string{"createclassroom", "-name", "Algebra"}, wantErr: errHelp},
		{name: "invalid code", args: []string{"createclassroom", "-name", "Algebra", "-code", "MATH-42"}, wantErrStr: "invalid code"},
		{name: "ok, code canonicalized", args: []string{"createclassroom", "-name", "Algebra", "-code", "math42"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErrStr != "" {
				if err == nil {
					t.Fatal("cli.run() expected an error")
				}
				return
			}
			if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	room, err := classRepo.GetClassroomByCode(context.Background(), "MATH42")
	if err != nil {
		t.Fatalf("GetClassroomByCode() failed: %v", err)
	}
	if room.Name != "Algebra" {
		t.Errorf("name = %v, want Algebra", room.Name)
	}
}

func Test_commandLine_addMember(t *testing.T) {
	cli := setup(t)
	room := testutil.CreateClassroom(t, classRepo, "History", "HIST99")

	tests := []cliTest{
		{name: "no args", args: []string{"addmember"}, wantErr: errHelp},
		{name: "classroom but no user", args: []string{"addmember", "-classroom", room.ID}, wantErr: errHelp},
		{name: "unknown classroom", args: []string{"addmember", "-classroom", "nope", "-user", "u1"}, wantErr: classroom.ErrNotFound},
		{name: "ok", args: []string{"addmember", "-classroom", room.ID, "-user", "u1"}},
		{name: "already a member is a no-op", args: []string{"addmember", "-classroom", room.ID, "-user", "u1"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); errors.Cause(err) != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	isMember, err := classRepo.HasMembership(context.Background(), room.ID, "u1")
	if err != nil {
		t.Fatalf("HasMembership() failed: %v", err)
	}
	if !isMember {
		t.Error("membership was not created")
	}
}

func Test_commandLine_whoami(t *testing.T) {
	cli := setup(t)
	testutil.CreateProfile(t, profileRepo, "u1", "u1@test.test", "User One", profile.RoleStudent)

	validToken := makeTestToken(t, cli.conf, "u1", time.Hour)
	expiredToken := makeTestToken(t, cli.conf, "u1", -time.Hour)

	type extra struct {
		token string
	}
	tests := []cliTest{
		{name: "no token", args: []string{"whoami"}, wantErr: errHelp},
		{name: "garbage token", args: []string{"whoami"}, extra: extra{token: "lol"}, wantErrStr: "parsing session token"},
		{name: "expired token is rejected", args: []string{"whoami"}, extra: extra{token: expiredToken}, wantErrStr: "parsing session token"},
		{name: "valid token", args: []string{"whoami"}, extra: extra{token: validToken}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.token), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErrStr != "" {
				if err == nil {
					t.Fatal("cli.run() expected an error")
				}
				return
			}
			if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func makeTestToken(t *testing.T, conf *core.Config, userID string, delta time.Duration) string {
	now := time.Now()
	claims := jwt.StandardClaims{
		Subject:   userID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(delta).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		t.Fatalf("makeTestToken(): %v", err)
	}
	return ss
}
