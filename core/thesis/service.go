package thesis

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/notification"
	"github.com/trezcool/skripsi/core/progress"
	"github.com/trezcool/skripsi/core/user"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("you are not allowed to perform this action")
	ErrInvalidTransition = errors.New("invalid status transition")
)

func transitionErr(msg string) error {
	return errors.Wrap(ErrInvalidTransition, msg)
}

type (
	Repository interface {
		CreateProposal(ctx context.Context, p Proposal) (Proposal, error)
		GetProposal(ctx context.Context, id string) (Proposal, error)
		// QueryProposals applies AND operation on available ProposalFilter fields.
		QueryProposals(ctx context.Context, filter ProposalFilter) ([]Proposal, error)
		UpdateProposal(ctx context.Context, p Proposal) (Proposal, error)

		CreateGuidanceSession(ctx context.Context, g GuidanceSession) (GuidanceSession, error)
		GetGuidanceSession(ctx context.Context, id string) (GuidanceSession, error)
		// QueryGuidanceSessions returns the proposal's sessions, oldest first.
		QueryGuidanceSessions(ctx context.Context, proposalID string) ([]GuidanceSession, error)
		UpdateGuidanceSession(ctx context.Context, g GuidanceSession) (GuidanceSession, error)

		CreateSeminarRequest(ctx context.Context, s SeminarRequest) (SeminarRequest, error)
		GetSeminarRequest(ctx context.Context, id string) (SeminarRequest, error)
		// LatestSeminarRequest returns the most recently created request of the proposal, or ErrNotFound.
		LatestSeminarRequest(ctx context.Context, proposalID string) (SeminarRequest, error)
		UpdateSeminarRequest(ctx context.Context, s SeminarRequest) (SeminarRequest, error)

		// SaveDocument inserts the document or replaces the proposal's document of the same kind.
		SaveDocument(ctx context.Context, d SeminarDocument) (SeminarDocument, error)
		GetDocument(ctx context.Context, id string) (SeminarDocument, error)
		QueryDocuments(ctx context.Context, filter DocumentFilter) ([]SeminarDocument, error)
		UpdateDocument(ctx context.Context, d SeminarDocument) (SeminarDocument, error)

		CreateDefenseRequest(ctx context.Context, d DefenseRequest) (DefenseRequest, error)
		// GetDefenseRequest returns the proposal's defense request, or ErrNotFound.
		GetDefenseRequest(ctx context.Context, proposalID string) (DefenseRequest, error)
		UpdateDefenseRequest(ctx context.Context, d DefenseRequest) (DefenseRequest, error)

		// QueryProgressFacts loads the progress facts of every proposal matching the filter.
		QueryProgressFacts(ctx context.Context, filter ProposalFilter) ([]ProgressFacts, error)
	}

	// UserDirectory resolves students, supervisors & staff.
	UserDirectory interface {
		GetByID(ctx context.Context, id string) (user.User, error)
		Query(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error)
	}

	Notifier interface {
		Notify(ctx context.Context, notes ...notification.New) error
	}

	// StageObserver is told every stage resolved for a proposal.
	StageObserver interface {
		ObserveStage(stage progress.Stage)
	}

	Service interface {
		SubmitProposal(ctx context.Context, studentID string, np NewProposal) (Proposal, error)
		ReviewProposal(ctx context.Context, supervisorID, proposalID string, d Decision) (Proposal, error)
		GetProposal(ctx context.Context, id string) (Proposal, error)
		QueryProposals(ctx context.Context, filter ProposalFilter) ([]Proposal, error)
		MarkGraduated(ctx context.Context, proposalID string) (Proposal, error)

		LogGuidance(ctx context.Context, studentID, proposalID string, ng NewGuidanceSession) (GuidanceSession, error)
		ReviewGuidance(ctx context.Context, supervisorID, sessionID string, r GuidanceReview) (GuidanceSession, error)

		RequestSeminar(ctx context.Context, studentID, proposalID string) (SeminarRequest, error)
		ApproveSeminar(ctx context.Context, supervisorID, requestID string, d Decision) (SeminarRequest, error)
		ScheduleSeminar(ctx context.Context, requestID string, s Schedule) (SeminarRequest, error)
		CompleteSeminar(ctx context.Context, requestID string) (SeminarRequest, error)

		UploadDocument(ctx context.Context, studentID, proposalID string, nd NewDocument) (SeminarDocument, error)
		VerifyDocument(ctx context.Context, staffID, documentID string, d Decision) (SeminarDocument, error)
		PendingDocuments(ctx context.Context) ([]SeminarDocument, error)

		RequestDefense(ctx context.Context, studentID, proposalID string) (DefenseRequest, error)
		ScheduleDefense(ctx context.Context, proposalID string, s Schedule) (DefenseRequest, error)

		Progress(ctx context.Context, proposalID string) (ProgressRow, error)
		Detail(ctx context.Context, proposalID string) (ProposalDetail, error)
		Dashboard(ctx context.Context, filter DashboardFilter) ([]ProgressRow, error)
	}

	service struct {
		repo     Repository
		users    UserDirectory
		notifier Notifier
		observer StageObserver
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	users UserDirectory,
	notifier Notifier,
	observer StageObserver,
	logger core.Logger,
) Service {
	if observer == nil {
		observer = nopObserver{}
	}
	return &service{
		repo:     repo,
		users:    users,
		notifier: notifier,
		observer: observer,
		logger:   logger,
	}
}

func (svc *service) SubmitProposal(ctx context.Context, studentID string, np NewProposal) (Proposal, error) {
	np.Clean()

	active, err := svc.repo.QueryProposals(ctx, ProposalFilter{StudentID: studentID, Statuses: ActiveProposalStatuses})
	if err != nil {
		return Proposal{}, errors.Wrap(err, "querying active proposals")
	}
	if len(active) > 0 {
		return Proposal{}, transitionErr("the student already has an active proposal")
	}

	if np.PrimarySupervisorID == np.SecondarySupervisorID {
		return Proposal{}, core.NewFieldValidationError("secondary_supervisor_id", nefieldText)
	}
	if err := svc.checkLecturer(ctx, "primary_supervisor_id", np.PrimarySupervisorID); err != nil {
		return Proposal{}, err
	}
	if err := svc.checkLecturer(ctx, "secondary_supervisor_id", np.SecondarySupervisorID); err != nil {
		return Proposal{}, err
	}

	now := nowFunc().UTC()
	p, err := svc.repo.CreateProposal(ctx, Proposal{
		StudentID:             studentID,
		Title:                 np.Title,
		Abstract:              np.Abstract,
		PrimarySupervisorID:   np.PrimarySupervisorID,
		SecondarySupervisorID: np.SecondarySupervisorID,
		Status:                ProposalAwaitingSupervisor,
		CreatedAt:             now,
		UpdatedAt:             now,
	})
	if err != nil {
		return Proposal{}, errors.Wrap(err, "creating proposal")
	}

	svc.notify(ctx,
		notification.New{
			UserID:  p.PrimarySupervisorID,
			Title:   "Pengajuan proposal baru",
			Message: fmt.Sprintf("Proposal \"%s\" menunggu persetujuan Anda.", p.Title),
			Link:    proposalLink(p.ID),
			Email:   true,
		},
		notification.New{
			UserID:  p.SecondarySupervisorID,
			Title:   "Pengajuan proposal baru",
			Message: fmt.Sprintf("Anda diajukan sebagai pembimbing kedua untuk proposal \"%s\".", p.Title),
			Link:    proposalLink(p.ID),
		},
	)
	return p, nil
}

// checkLecturer checks that the user exists and is an active lecturer.
func (svc *service) checkLecturer(ctx context.Context, field, id string) error {
	usr, err := svc.users.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewFieldValidationError(field, "lecturer not found")
		}
		return errors.Wrap(err, "fetching lecturer")
	}
	if !usr.IsActive || !usr.IsLecturer() {
		return core.NewFieldValidationError(field, "lecturer not found")
	}
	return nil
}

func (svc *service) ReviewProposal(ctx context.Context, supervisorID, proposalID string, d Decision) (Proposal, error) {
	d.Clean()

	p, err := svc.repo.GetProposal(ctx, proposalID)
	if err != nil {
		return Proposal{}, err
	}
	if p.PrimarySupervisorID != supervisorID {
		return Proposal{}, ErrForbidden
	}
	if p.Status != ProposalAwaitingSupervisor {
		return Proposal{}, transitionErr("the proposal has already been reviewed")
	}

	title := "Proposal diterima"
	if d.Approve {
		p.Status = ProposalAccepted
	} else {
		p.Status = ProposalRejected
		title = "Proposal ditolak"
	}
	p.Note = d.Note
	p.UpdatedAt = nowFunc().UTC()
	if p, err = svc.repo.UpdateProposal(ctx, p); err != nil {
		return Proposal{}, errors.Wrap(err, "updating proposal")
	}

	svc.notify(ctx, notification.New{
		UserID:  p.StudentID,
		Title:   title,
		Message: withNote(fmt.Sprintf("Proposal \"%s\" telah ditinjau oleh pembimbing.", p.Title), p.Note),
		Link:    proposalLink(p.ID),
		Email:   true,
	})
	return p, nil
}

func (svc *service) GetProposal(ctx context.Context, id string) (Proposal, error) {
	return svc.repo.GetProposal(ctx, id)
}

func (svc *service) QueryProposals(ctx context.Context, filter ProposalFilter) ([]Proposal, error) {
	return svc.repo.QueryProposals(ctx, filter)
}

func (svc *service) MarkGraduated(ctx context.Context, proposalID string) (Proposal, error) {
	p, err := svc.repo.GetProposal(ctx, proposalID)
	if err != nil {
		return Proposal{}, err
	}
	if p.Status != ProposalAccepted {
		return Proposal{}, transitionErr("only an accepted proposal can graduate")
	}
	if _, err := svc.repo.GetDefenseRequest(ctx, p.ID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Proposal{}, transitionErr("the defense has not been requested")
		}
		return Proposal{}, err
	}

	p.Status = ProposalGraduated
	p.UpdatedAt = nowFunc().UTC()
	if p, err = svc.repo.UpdateProposal(ctx, p); err != nil {
		return Proposal{}, errors.Wrap(err, "updating proposal")
	}

	svc.notify(ctx, notification.New{
		UserID:  p.StudentID,
		Title:   "Selamat, Anda dinyatakan lulus",
		Message: fmt.Sprintf("Skripsi \"%s\" telah selesai.", p.Title),
		Link:    proposalLink(p.ID),
		Email:   true,
	})
	return p, nil
}

// notify never fails the calling operation.
func (svc *service) notify(ctx context.Context, notes ...notification.New) {
	if err := svc.notifier.Notify(ctx, notes...); err != nil {
		svc.logger.Warn(fmt.Sprintf("thesis.notify: %v", err), err)
	}
}

// staffNotes builds the same notification for every active user holding one of the roles.
func (svc *service) staffNotes(ctx context.Context, roles []string, title, msg, link string) []notification.New {
	active := true
	users, err := svc.users.Query(ctx, &user.QueryFilter{Roles: roles, IsActive: &active}, nil)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("thesis.staffNotes: %v", err), err)
		return nil
	}
	notes := make([]notification.New, 0, len(users))
	for _, usr := range users {
		notes = append(notes, notification.New{UserID: usr.ID, Title: title, Message: msg, Link: link})
	}
	return notes
}

func proposalLink(id string) string {
	return "/proposals/" + id
}

func withNote(msg, note string) string {
	if note == "" {
		return msg
	}
	return msg + " Catatan: " + note
}

type nopObserver struct{}

func (nopObserver) ObserveStage(progress.Stage) {}
