package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/trezcool/bulletin/core"
	"github.com/trezcool/bulletin/core/result"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf      *core.Config
	db        *sql.DB
	resultSvc *result.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS...] - run goose migration COMMAND (up, down, status, ...)")
	fmt.Println("  import -exam ID -subject ID -max N -file marks.xlsx - submit a subject's marks from a spreadsheet")
	fmt.Println("  template -out marks.xlsx - write an empty marks spreadsheet")
	fmt.Println("  lock -exam ID [-students ID,ID...] - finalize results (the whole exam if no student given)")
	fmt.Println("  unlock -exam ID [-students ID,ID...] - reopen results for correction")
	fmt.Println("  token -subject ID -role admin|teacher [-email EMAIL] - generate an API token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importExam := importCmd.String("exam", "", "The exam ID.")
	importExamName := importCmd.String("name", "", "The exam name.")
	importSubject := importCmd.String("subject", "", "The subject ID.")
	importSubjectName := importCmd.String("subject-name", "", "The subject name.")
	importMax := importCmd.Float64("max", 100, "The maximum marks of the subject.")
	importFile := importCmd.String("file", "", "The .xlsx file holding the marks.")

	templateCmd := flag.NewFlagSet("template", flag.ExitOnError)
	templateOut := templateCmd.String("out", "marks.xlsx", "The .xlsx file to write.")

	lockCmd := flag.NewFlagSet("lock", flag.ExitOnError)
	lockExam := lockCmd.String("exam", "", "The exam ID.")
	lockStudents := lockCmd.String("students", "", "Comma separated student IDs.")

	unlockCmd := flag.NewFlagSet("unlock", flag.ExitOnError)
	unlockExam := unlockCmd.String("exam", "", "The exam ID.")
	unlockStudents := unlockCmd.String("students", "", "Comma separated student IDs.")

	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenSubject := tokenCmd.String("subject", "", "The staff member's ID.")
	tokenRole := tokenCmd.String("role", "", "The staff member's role.")
	tokenEmail := tokenCmd.String("email", "", "The staff member's email.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			fmt.Println("Usage: migrate COMMAND [ARGS...]")
			return errHelp
		}
		return cli.migrate(args[2:])
	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importExam == "" || *importSubject == "" || *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importMarks(result.SubmitMarks{
			ExamID:      *importExam,
			ExamName:    *importExamName,
			SubjectID:   *importSubject,
			SubjectName: *importSubjectName,
			MaxMarks:    *importMax,
		}, *importFile)
	case "template":
		if err := templateCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.writeTemplate(*templateOut)
	case "lock":
		if err := lockCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *lockExam == "" {
			lockCmd.Usage()
			return errHelp
		}
		return cli.setLocked(true, *lockExam, splitIDs(*lockStudents)...)
	case "unlock":
		if err := unlockCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *unlockExam == "" {
			unlockCmd.Usage()
			return errHelp
		}
		return cli.setLocked(false, *unlockExam, splitIDs(*unlockStudents)...)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenSubject == "" || *tokenRole == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenSubject, *tokenRole, *tokenEmail)
	default:
		cli.printUsage()
		return errHelp
	}
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
