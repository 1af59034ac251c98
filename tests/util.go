package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"os"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/bulletin/core"
	"github.com/trezcool/bulletin/core/grading"
	"github.com/trezcool/bulletin/core/result"
	logsvc "github.com/trezcool/bulletin/services/logger"
	"github.com/trezcool/bulletin/storage/database"
)

// Config returns the TEST configuration.
func Config() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.RollbarToken = ""
	conf.Grading.Bands = ""
	return conf
}

// Logger returns a silent logger that never reports to rollbar.
func Logger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

func Validator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	result.InitValidators(validate, translator)
	return validate, translator
}

// CreateResult grades `marks` into a new result and stores it.
func CreateResult(t *testing.T, repo result.Repository, id grading.Identity, marks ...grading.SubjectMark) result.Record {
	t.Helper()

	var res *grading.ExamResult
	for _, m := range marks {
		updated, err := grading.UpsertSubjectMark(res, id, m)
		if err != nil {
			t.Fatalf("CreateResult() failed: %v", err)
		}
		res = &updated
	}
	if res == nil {
		t.Fatal("CreateResult() failed: no marks")
	}

	now := time.Now().UTC()
	rec, err := repo.SaveResult(context.Background(), result.Record{ExamResult: *res, CreatedAt: now, UpdatedAt: now}, 0)
	if err != nil {
		t.Fatalf("CreateResult() failed: %v", err)
	}
	return rec
}

// Mark builds a SubjectMark named after its subject ID.
func Mark(subjectID string, obtained, max float64) grading.SubjectMark {
	return grading.SubjectMark{SubjectID: subjectID, SubjectName: subjectID, MarksObtained: obtained, MaxMarks: max}
}

// Student builds an exam Identity for a student of class "class-5".
func Student(studentID, roll, examID string) grading.Identity {
	return grading.Identity{
		StudentID:   studentID,
		StudentName: "Student " + studentID,
		RollNumber:  roll,
		ExamID:      examID,
		ExamName:    "Exam " + examID,
		ClassID:     "class-5",
	}
}

// PrepareDB creates & migrates the TEST database and empties its tables.
// Tests are skipped unless TEST_DATABASE is set (eg: TEST_DATABASE=1 with TEST_DB* settings).
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("TEST_DATABASE") == "" {
		t.Skip("TEST_DATABASE not set")
	}

	conf := Config()
	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db, err := database.OpenX(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if _, err = db.Exec("TRUNCATE exam_results"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}
