package testutil

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/profile"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
)

// NewConfig installs a self-contained test configuration as core.Conf and
// returns it. No .env file or environment is consulted.
func NewConfig() *core.Config {
	conf := &core.Config{
		Env:             "TEST",
		TestMode:        true,
		Build:           "test",
		AppName:         "Darasa",
		SecretKey:       "secret",
		WorkDir:         findRootDir(),
		FrontendBaseURL: "http://localhost:3000",
		FromEmail:       "noreply@test.test",
		Server: core.ServerConfig{
			Host:                      "localhost",
			Port:                      8000,
			JWTExpirationDelta:        7 * 24 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
	core.Conf = conf
	return conf
}

// findRootDir walks up from the test package's working directory to the
// module root (go-test chdirs into the package being tested).
func findRootDir() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			log.Fatal("project root not found")
		}
		currDir = newDir
	}
}

func OpenDB(t *testing.T) *dummydb.DB {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	return db
}

func CreateProfile(t *testing.T, repo profile.Repository, userID, email, name, role string) profile.Profile {
	p := profile.Profile{
		UserID: userID,
		Role:   role,
	}
	if email != "" {
		p.Email.SetValid(email)
	}
	if name != "" {
		p.Name.SetValid(name)
	}
	p, err := repo.CreateProfile(context.Background(), p)
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return p
}

func CreateClassroom(t *testing.T, repo classroom.Repository, name, code string) classroom.Classroom {
	now := time.Now().UTC()
	room := classroom.Classroom{
		Name:      name,
		JoinCode:  classroom.NormalizeCode(code),
		CreatedAt: now,
		UpdatedAt: now,
	}
	room, err := repo.CreateClassroom(context.Background(), room)
	if err != nil {
		t.Fatalf("CreateClassroom() failed: %v", err)
	}
	return room
}

func CreateMembership(t *testing.T, repo classroom.Repository, classroomID, userID string) classroom.Membership {
	m, err := repo.CreateMembership(context.Background(), classroomID, userID)
	if err != nil {
		t.Fatalf("CreateMembership() failed: %v", err)
	}
	return m
}

func SeedExam(t *testing.T, db *dummydb.DB, classroomID, name string) classroom.Exam {
	return db.SeedExam(classroom.Exam{
		ClassroomID: classroomID,
		Name:        name,
		StartsAt:    time.Now().UTC().Add(time.Hour),
		DurationMin: 60,
	})
}
