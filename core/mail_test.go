package core

import (
	"fmt"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger fails the test on any reported error.
type testLogger struct {
	t *testing.T
}

func (l testLogger) Debug(string, ...interface{}) {}
func (l testLogger) Info(string, ...interface{})  {}
func (l testLogger) Warn(string, ...interface{})  {}
func (l testLogger) Error(msg string, args ...interface{}) {
	l.t.Errorf("logger.Error(%s): %v", msg, args)
}
func (l testLogger) Fatal(msg string, args ...interface{}) {
	l.t.Fatalf("logger.Fatal(%s): %v", msg, args)
}

type testMark struct {
	SubjectName   string
	MarksObtained float64
	MaxMarks      float64
	Grade         string
}

type testMarksheet struct {
	StudentName   string
	RollNumber    string
	ExamName      string
	Marks         []testMark
	TotalMarks    float64
	MaxTotalMarks float64
	Percentage    float64
	FinalGrade    string
	Status        string
}

func TestParseEmailTemplates(t *testing.T) {
	ParseEmailTemplates(testLogger{t: t})

	entry, ok := templates["marksheet_published"]
	require.True(t, ok, "marksheet_published not parsed")
	assert.NotNil(t, entry.text)
	assert.NotNil(t, entry.html)
	_, ok = templates["_base"]
	assert.False(t, ok, "layouts are not templates on their own")
}

func TestEmailMessage_Render(t *testing.T) {
	ParseEmailTemplates(testLogger{t: t})

	msg := &EmailMessage{
		To:           []mail.Address{{Address: "parent@bulletin.test"}},
		Subject:      "Midterm marksheet",
		TemplateName: "marksheet_published",
		TemplateData: testMarksheet{
			StudentName:   "John Doe",
			RollNumber:    "01",
			ExamName:      "Midterm",
			Marks:         []testMark{{SubjectName: "Mathematics", MarksObtained: 91, MaxMarks: 100, Grade: "A+"}},
			TotalMarks:    91,
			MaxTotalMarks: 100,
			Percentage:    91,
			FinalGrade:    "A+",
			Status:        "Pass",
		},
	}
	require.NoError(t, msg.Render("https://bulletin.test"))
	require.True(t, msg.HasContent())

	for name, content := range map[string]string{"text": msg.TextContent, "html": msg.HTMLContent} {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, content, "John Doe")
			assert.Contains(t, content, "Mathematics")
			assert.Contains(t, content, "91/100")
			assert.Contains(t, content, fmt.Sprintf("(%.2f%%)", 91.0))
			assert.Contains(t, content, "https://bulletin.test")
		})
	}
}

func TestEmailMessage_Render_unknownTemplate(t *testing.T) {
	ParseEmailTemplates(testLogger{t: t})

	msg := &EmailMessage{TemplateName: "nope"}
	assert.EqualError(t, msg.Render(""), `email template "nope" not found`)
	assert.False(t, msg.HasContent())

	msg = &EmailMessage{BodyStr: "plain body"}
	require.NoError(t, msg.Render(""))
	assert.Equal(t, "plain body", msg.TextContent)
}
