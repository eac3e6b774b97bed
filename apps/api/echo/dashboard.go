package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/skripsi/core/progress"
	"github.com/trezcool/skripsi/core/thesis"
)

type dashboardApi struct {
	auth *authenticator
	svc  thesis.Service
}

type (
	ChairDashboard struct {
		Summary   []thesis.StageCount  `json:"summary"`
		Proposals []thesis.ProgressRow `json:"proposals"`
	}

	StaffDashboard struct {
		Proposals        []thesis.ProgressRow     `json:"proposals"`
		PendingDocuments []thesis.SeminarDocument `json:"pending_documents"`
	}
)

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svc thesis.Service) {
	api := dashboardApi{auth: auth, svc: svc}

	// the stage table is public: frontends render progress bars from it
	g.GET("/progress/timeline", api.timeline)

	dg := g.Group("/dashboard", jwt)
	dg.GET("/student", api.student, portalMiddleware(auth, studentPortal))
	dg.GET("/supervisor", api.supervisor, portalMiddleware(auth, lecturerPortal))
	dg.GET("/chair", api.chair, portalMiddleware(auth, chairPortal))
	dg.GET("/staff", api.staff, portalMiddleware(auth, staffPortal))
}

func (api *dashboardApi) bindFilter(ctx echo.Context) (thesis.DashboardFilter, error) {
	var query DashboardQuery
	if err := ctx.Bind(&query); err != nil {
		return thesis.DashboardFilter{}, errHttpBadQuery
	}
	return query.Filter(), nil
}

func (api *dashboardApi) timeline(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, progress.Timeline())
}

func (api *dashboardApi) student(ctx echo.Context) error {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	// a student only ever sees their own proposals
	rows, err := api.svc.Dashboard(ctx.Request().Context(), thesis.DashboardFilter{StudentID: claims.Subject})
	if err != nil {
		return errors.Wrap(err, "loading student dashboard")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *dashboardApi) supervisor(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	filter.SupervisorID = claims.Subject

	rows, err := api.svc.Dashboard(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "loading supervisor dashboard")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *dashboardApi) chair(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	rows, err := api.svc.Dashboard(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "loading chair dashboard")
	}
	return ctx.JSON(http.StatusOK, ChairDashboard{Summary: thesis.StageSummary(rows), Proposals: rows})
}

func (api *dashboardApi) staff(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	rows, err := api.svc.Dashboard(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "loading staff dashboard")
	}
	docs, err := api.svc.PendingDocuments(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading pending documents")
	}
	return ctx.JSON(http.StatusOK, StaffDashboard{Proposals: rows, PendingDocuments: docs})
}
