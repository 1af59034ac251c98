package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/bulletin/core/grading"
	"github.com/trezcool/bulletin/core/result"
)

type gradingApi struct {
	grader grading.Grader
}

func registerGradingAPI(g *echo.Group, svc *result.Service) {
	api := gradingApi{grader: svc.Grader()}

	gg := g.Group("/grading")
	gg.GET("/table", api.table)
	gg.GET("/grade", api.grade)
}

func (api *gradingApi) table(ctx echo.Context) error {
	tbl := api.grader.Table()
	return ctx.JSON(http.StatusOK, TableResponse{Bands: tbl.Bands(), Below: tbl.Below()})
}

func (api *gradingApi) grade(ctx echo.Context) error {
	var query GradeQuery
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to GradeQuery")
	}

	if query.Marks < 0 || query.Marks > query.Max {
		return errors.Wrapf(grading.ErrInvalidInput, "marks %v outside [0, %v]", query.Marks, query.Max)
	}
	grade, err := api.grader.GradeFor(query.Marks, query.Max)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, GradeResponse{
		Percentage: grading.Percentage(query.Marks, query.Max),
		Grade:      grade,
		Status:     api.grader.StatusFor(grade),
	})
}

// Requests & Responses

type GradeQuery struct {
	Marks float64 `query:"marks"`
	Max   float64 `query:"max"`
}

type GradeResponse struct {
	Percentage float64        `json:"percentage"`
	Grade      grading.Grade  `json:"grade"`
	Status     grading.Status `json:"status"`
}

type TableResponse struct {
	Bands []grading.Band `json:"bands"`
	Below string         `json:"below"`
}
