package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/bulletin/core/result"
	sheetsvc "github.com/trezcool/bulletin/services/sheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type resultApi struct {
	svc *result.Service
}

func registerResultAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *result.Service) {
	api := resultApi{svc: svc}

	// authed endpoints
	ag := g.Group("", jwt, staffMiddleware())
	ag.GET("/results", api.query)

	eg := ag.Group("/exams/:examId")
	eg.POST("/marks", api.submitMarks)
	eg.POST("/lock", api.lock, adminMiddleware())
	eg.POST("/unlock", api.unlock, adminMiddleware())
	eg.GET("/classes/:classId/report", api.classReport)
	eg.GET("/classes/:classId/report.xlsx", api.classReportSheet)

	// detail endpoints
	dg := eg.Group("/students/:studentId/result")
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

func (api *resultApi) submitMarks(ctx echo.Context) error {
	var data result.SubmitMarks
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitMarks")
	}
	data.ExamID = ctx.Param("examId")

	report, err := api.svc.SubmitMarks(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *resultApi) query(ctx echo.Context) error {
	filter := new(result.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	recs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *resultApi) retrieve(ctx echo.Context) error {
	rec, err := api.svc.Get(ctx.Request().Context(), ctx.Param("studentId"), ctx.Param("examId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *resultApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("studentId"), ctx.Param("examId")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *resultApi) lock(ctx echo.Context) error {
	var data LockRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LockRequest")
	}
	recs, err := api.svc.Lock(ctx.Request().Context(), ctx.Param("examId"), data.StudentIDs...)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *resultApi) unlock(ctx echo.Context) error {
	var data LockRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LockRequest")
	}
	recs, err := api.svc.Unlock(ctx.Request().Context(), ctx.Param("examId"), data.StudentIDs...)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *resultApi) classReport(ctx echo.Context) error {
	rep, err := api.svc.ClassReport(ctx.Request().Context(), ctx.Param("examId"), ctx.Param("classId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *resultApi) classReportSheet(ctx echo.Context) error {
	rep, err := api.svc.ClassReport(ctx.Request().Context(), ctx.Param("examId"), ctx.Param("classId"))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := sheetsvc.WriteReport(&buf, rep); err != nil {
		return errors.Wrap(err, "writing report sheet")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s-%s.xlsx", rep.ExamID, rep.ClassID)))
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Requests

type LockRequest struct {
	StudentIDs []string `json:"student_ids"`
}
