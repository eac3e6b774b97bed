package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/skripsi/core/thesis"
)

type thesisApi struct {
	auth     *authenticator
	svc      thesis.Service
	validate *validator.Validate
}

func registerThesisAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	svc thesis.Service,
	validate *validator.Validate,
) {
	api := thesisApi{
		auth:     auth,
		svc:      svc,
		validate: validate,
	}
	students := portalMiddleware(auth, studentPortal)
	lecturers := portalMiddleware(auth, lecturerPortal)
	staff := portalMiddleware(auth, staffPortal)

	pg := g.Group("/proposals", jwt)
	pg.POST("", api.submitProposal, students)
	pg.GET("/:id", api.retrieveProposal)
	pg.GET("/:id/progress", api.progress)
	pg.POST("/:id/review", api.reviewProposal, lecturers)
	pg.POST("/:id/graduate", api.graduate, portalMiddleware(auth, graduationPortal))
	pg.POST("/:id/guidance", api.logGuidance, students)
	pg.POST("/:id/seminar", api.requestSeminar, students)
	pg.POST("/:id/documents", api.uploadDocument, students)
	pg.POST("/:id/defense", api.requestDefense, students)
	pg.PUT("/:id/defense/schedule", api.scheduleDefense, staff)

	g.PUT("/guidance/:id/review", api.reviewGuidance, jwt, lecturers)

	sg := g.Group("/seminars", jwt)
	sg.POST("/:id/approve", api.approveSeminar, lecturers)
	sg.PUT("/:id/schedule", api.scheduleSeminar, staff)
	sg.POST("/:id/complete", api.completeSeminar, staff)

	g.POST("/documents/:id/verify", api.verifyDocument, jwt, staff)
}

// viewable returns the proposal if the context user may see it:
// its student & supervisors, staff, the program chair and admins.
func (api *thesisApi) viewable(ctx echo.Context) (thesis.Proposal, error) {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return thesis.Proposal{}, errors.Wrap(err, "getting context claims")
	}
	p, err := api.svc.GetProposal(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return thesis.Proposal{}, err
	}
	if p.IsParticipant(claims.Subject) || staffPortal(claims) || chairPortal(claims) {
		return p, nil
	}
	// do not leak the existence of other students' proposals
	return thesis.Proposal{}, thesis.ErrNotFound
}

// Proposals

func (api *thesisApi) submitProposal(ctx echo.Context) error {
	var data thesis.NewProposal
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProposal")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	p, err := api.svc.SubmitProposal(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "submitting proposal")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *thesisApi) retrieveProposal(ctx echo.Context) error {
	p, err := api.viewable(ctx)
	if err != nil {
		return err
	}
	detail, err := api.svc.Detail(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "getting proposal detail")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *thesisApi) progress(ctx echo.Context) error {
	p, err := api.viewable(ctx)
	if err != nil {
		return err
	}
	row, err := api.svc.Progress(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "resolving progress")
	}
	return ctx.JSON(http.StatusOK, row)
}

func (api *thesisApi) reviewProposal(ctx echo.Context) error {
	var data thesis.Decision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Decision")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	p, err := api.svc.ReviewProposal(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing proposal")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *thesisApi) graduate(ctx echo.Context) error {
	p, err := api.svc.MarkGraduated(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking graduated")
	}
	return ctx.JSON(http.StatusOK, p)
}

// Guidance

func (api *thesisApi) logGuidance(ctx echo.Context) error {
	var data thesis.NewGuidanceSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGuidanceSession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	g, err := api.svc.LogGuidance(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "logging guidance")
	}
	return ctx.JSON(http.StatusCreated, g)
}

func (api *thesisApi) reviewGuidance(ctx echo.Context) error {
	var data thesis.GuidanceReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GuidanceReview")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	g, err := api.svc.ReviewGuidance(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing guidance")
	}
	return ctx.JSON(http.StatusOK, g)
}

// Seminar

func (api *thesisApi) requestSeminar(ctx echo.Context) error {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	req, err := api.svc.RequestSeminar(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "requesting seminar")
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *thesisApi) approveSeminar(ctx echo.Context) error {
	var data thesis.Decision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Decision")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	req, err := api.svc.ApproveSeminar(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "approving seminar")
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *thesisApi) scheduleSeminar(ctx echo.Context) error {
	var data thesis.Schedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Schedule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	req, err := api.svc.ScheduleSeminar(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "scheduling seminar")
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *thesisApi) completeSeminar(ctx echo.Context) error {
	req, err := api.svc.CompleteSeminar(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "completing seminar")
	}
	return ctx.JSON(http.StatusOK, req)
}

// Documents

func (api *thesisApi) uploadDocument(ctx echo.Context) error {
	var data thesis.NewDocument
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDocument")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	doc, err := api.svc.UploadDocument(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "uploading document")
	}
	return ctx.JSON(http.StatusCreated, doc)
}

func (api *thesisApi) verifyDocument(ctx echo.Context) error {
	var data thesis.Decision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Decision")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	doc, err := api.svc.VerifyDocument(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "verifying document")
	}
	return ctx.JSON(http.StatusOK, doc)
}

// Defense

func (api *thesisApi) requestDefense(ctx echo.Context) error {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	req, err := api.svc.RequestDefense(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "requesting defense")
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *thesisApi) scheduleDefense(ctx echo.Context) error {
	var data thesis.Schedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Schedule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	req, err := api.svc.ScheduleDefense(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "scheduling defense")
	}
	return ctx.JSON(http.StatusOK, req)
}
