package thesis

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/notification"
)

func (svc *service) LogGuidance(ctx context.Context, studentID, proposalID string, ng NewGuidanceSession) (GuidanceSession, error) {
	ng.Clean()

	p, err := svc.repo.GetProposal(ctx, proposalID)
	if err != nil {
		return GuidanceSession{}, err
	}
	if p.StudentID != studentID {
		return GuidanceSession{}, ErrForbidden
	}
	if p.Status != ProposalAccepted {
		return GuidanceSession{}, transitionErr("guidance can only be logged on an accepted proposal")
	}
	if !p.IsSupervisedBy(ng.SupervisorID) {
		return GuidanceSession{}, core.NewFieldValidationError("supervisor_id", "not a supervisor of this proposal")
	}

	now := nowFunc().UTC()
	g, err := svc.repo.CreateGuidanceSession(ctx, GuidanceSession{
		ProposalID:   p.ID,
		SupervisorID: ng.SupervisorID,
		HeldOn:       ng.HeldOn.UTC(),
		Topic:        ng.Topic,
		Notes:        ng.Notes,
		Status:       GuidancePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return GuidanceSession{}, errors.Wrap(err, "creating guidance session")
	}

	svc.notify(ctx, notification.New{
		UserID:  g.SupervisorID,
		Title:   "Bimbingan baru",
		Message: fmt.Sprintf("Catatan bimbingan \"%s\" menunggu persetujuan Anda.", g.Topic),
		Link:    proposalLink(p.ID),
	})
	return g, nil
}

// ReviewGuidance may be repeated to correct an earlier review.
func (svc *service) ReviewGuidance(ctx context.Context, supervisorID, sessionID string, r GuidanceReview) (GuidanceSession, error) {
	r.Feedback = core.CleanString(r.Feedback)

	g, err := svc.repo.GetGuidanceSession(ctx, sessionID)
	if err != nil {
		return GuidanceSession{}, err
	}
	if g.SupervisorID != supervisorID {
		return GuidanceSession{}, ErrForbidden
	}
	p, err := svc.repo.GetProposal(ctx, g.ProposalID)
	if err != nil {
		return GuidanceSession{}, err
	}
	if p.Status != ProposalAccepted {
		return GuidanceSession{}, transitionErr("the proposal is no longer in guidance")
	}

	title := "Bimbingan disetujui"
	g.Attended = r.Attended
	g.Feedback = r.Feedback
	if r.Approve {
		g.Status = GuidanceApproved
	} else {
		g.Status = GuidanceRevision
		title = "Bimbingan perlu revisi"
	}
	g.UpdatedAt = nowFunc().UTC()
	if g, err = svc.repo.UpdateGuidanceSession(ctx, g); err != nil {
		return GuidanceSession{}, errors.Wrap(err, "updating guidance session")
	}

	svc.notify(ctx, notification.New{
		UserID:  p.StudentID,
		Title:   title,
		Message: withNote(fmt.Sprintf("Bimbingan \"%s\" telah ditinjau.", g.Topic), g.Feedback),
		Link:    proposalLink(p.ID),
	})
	return g, nil
}
