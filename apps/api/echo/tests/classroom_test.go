package tests

import (
	"net/http"
	"testing"

	. "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/profile"
	emailsvc "github.com/trezcool/darasa/services/email"
	testutil "github.com/trezcool/darasa/tests"
)

func Test_classroomApi_join(t *testing.T) {
	app := setup(t)

	room := testutil.CreateClassroom(t, classRepo, "Algebra II", "MATH42")
	stud := testutil.CreateProfile(t, profileRepo, "stud1", "stud1@test.test", "Student One", profile.RoleStudent)
	studToken := getToken(t, stud)

	path := "/v1/classrooms/join"
	tests := []httpTest{
		{
			name:     "anonymous is rejected",
			body:     marchallObj(t, JoinRequest{Code: "MATH42"}),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "empty code",
			body:     marchallObj(t, JoinRequest{}),
			token:    studToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"code": "empty code"}`),
		},
		{
			name:     "whitespace-only code",
			body:     marchallObj(t, JoinRequest{Code: "   "}),
			token:    studToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"code": "empty code"}`),
		},
		{
			name:     "unknown code",
			body:     marchallObj(t, JoinRequest{Code: "NOPE404"}),
			token:    studToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"code": "invalid code"}`),
		},
		{
			name:     "join succeeds, casing ignored",
			body:     marchallObj(t, JoinRequest{Code: " math42 "}),
			token:    studToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, JoinResponse{Classroom: room}),
		},
		{
			name:     "rejoin reports success",
			body:     marchallObj(t, JoinRequest{Code: "MATH42"}),
			token:    studToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, JoinResponse{Classroom: room, AlreadyMember: true}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// exactly one membership and one confirmation email across all submissions
	if db.MembershipCount() != 1 {
		t.Errorf("membership count = %v; want 1", db.MembershipCount())
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Errorf("sent emails = %v; want 1", len(emailsvc.SentMessages))
	}
}

func Test_classroomApi_queryMine(t *testing.T) {
	app := setup(t)

	mine := testutil.CreateClassroom(t, classRepo, "History", "HIST99")
	testutil.CreateClassroom(t, classRepo, "Physics", "PHYS1") // not mine
	stud := testutil.CreateProfile(t, profileRepo, "stud1", "", "", profile.RoleStudent)
	testutil.CreateMembership(t, classRepo, mine.ID, "stud1")

	tests := []httpTest{
		{
			name:     "anonymous is rejected",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "only my classrooms",
			token:    getToken(t, stud),
			wantCode: http.StatusOK,
			wantData: marchallList(t, mine),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/classrooms", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_classroomApi_retrieve(t *testing.T) {
	app := setup(t)

	room := testutil.CreateClassroom(t, classRepo, "Chemistry", "CHEM1")
	member := testutil.CreateProfile(t, profileRepo, "member1", "", "", profile.RoleStudent)
	stranger := testutil.CreateProfile(t, profileRepo, "stranger", "", "", profile.RoleStudent)
	testutil.CreateMembership(t, classRepo, room.ID, "member1")

	tests := []httpTest{
		{
			name:     "anonymous is redirected to sign-in",
			path:     "/v1/classrooms/" + room.ID,
			wantCode: http.StatusFound,
			wantLoc:  "http://localhost:3000/login",
		},
		{
			name:     "expired token counts as anonymous",
			path:     "/v1/classrooms/" + room.ID,
			token:    getExpiredToken(t, member),
			wantCode: http.StatusFound,
			wantLoc:  "http://localhost:3000/login",
		},
		{
			name:     "non-member is redirected to their classroom list",
			path:     "/v1/classrooms/" + room.ID,
			token:    getToken(t, stranger),
			wantCode: http.StatusFound,
			wantLoc:  "http://localhost:3000/classrooms",
		},
		{
			name:     "unknown classroom denies like a non-membership",
			path:     "/v1/classrooms/nope",
			token:    getToken(t, member),
			wantCode: http.StatusFound,
			wantLoc:  "http://localhost:3000/classrooms",
		},
		{
			name:     "member",
			path:     "/v1/classrooms/" + room.ID,
			token:    getToken(t, member),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, room),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_classroomApi_retrieveExam(t *testing.T) {
	app := setup(t)

	mine := testutil.CreateClassroom(t, classRepo, "Biology", "BIO101")
	other := testutil.CreateClassroom(t, classRepo, "Geology", "GEO101")
	member := testutil.CreateProfile(t, profileRepo, "member1", "", "", profile.RoleStudent)
	testutil.CreateMembership(t, classRepo, mine.ID, "member1")
	testutil.CreateMembership(t, classRepo, other.ID, "member1")
	myExam := testutil.SeedExam(t, db, mine.ID, "Midterm")
	otherExam := testutil.SeedExam(t, db, other.ID, "Final")

	stranger := testutil.CreateProfile(t, profileRepo, "stranger", "", "", profile.RoleStudent)

	tests := []httpTest{
		{
			name:     "anonymous is redirected to sign-in",
			path:     "/v1/classrooms/" + mine.ID + "/exams/" + myExam.ID,
			wantCode: http.StatusFound,
			wantLoc:  "http://localhost:3000/login",
		},
		{
			name:     "non-member is redirected",
			path:     "/v1/classrooms/" + mine.ID + "/exams/" + myExam.ID,
			token:    getToken(t, stranger),
			wantCode: http.StatusFound,
			wantLoc:  "http://localhost:3000/classrooms",
		},
		{
			name:     "unknown exam is redirected, not 404'd",
			path:     "/v1/classrooms/" + mine.ID + "/exams/nope",
			token:    getToken(t, member),
			wantCode: http.StatusFound,
			wantLoc:  "http://localhost:3000/classrooms",
		},
		{
			name:     "exam addressed through the wrong classroom",
			path:     "/v1/classrooms/" + mine.ID + "/exams/" + otherExam.ID,
			token:    getToken(t, member),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "member",
			path:     "/v1/classrooms/" + mine.ID + "/exams/" + myExam.ID,
			token:    getToken(t, member),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, myExam),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
