package thesis

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/notification"
	"github.com/trezcool/skripsi/core/progress"
	"github.com/trezcool/skripsi/core/user"
)

func (svc *service) RequestSeminar(ctx context.Context, studentID, proposalID string) (SeminarRequest, error) {
	facts, err := svc.facts(ctx, proposalID)
	if err != nil {
		return SeminarRequest{}, err
	}
	p := facts.Proposal
	if p.StudentID != studentID {
		return SeminarRequest{}, ErrForbidden
	}
	if p.Status != ProposalAccepted {
		return SeminarRequest{}, transitionErr("the proposal is not accepted")
	}
	if !facts.Tally.Complete() {
		return SeminarRequest{}, transitionErr(fmt.Sprintf(
			"at least %d approved guidance sessions with each supervisor are required (%d/%d)",
			progress.RequiredSessions, facts.Tally.Primary, facts.Tally.Secondary,
		))
	}
	if facts.LatestSeminar != nil && facts.LatestSeminar.IsOpen() {
		return SeminarRequest{}, transitionErr("a seminar request already exists")
	}

	now := nowFunc().UTC()
	req, err := svc.repo.CreateSeminarRequest(ctx, SeminarRequest{
		ProposalID: p.ID,
		Status:     SeminarAwaitingApproval,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return SeminarRequest{}, errors.Wrap(err, "creating seminar request")
	}

	msg := fmt.Sprintf("Mahasiswa mengajukan seminar hasil untuk \"%s\".", p.Title)
	svc.notify(ctx,
		notification.New{UserID: p.PrimarySupervisorID, Title: "Pengajuan seminar hasil", Message: msg, Link: proposalLink(p.ID), Email: true},
		notification.New{UserID: p.SecondarySupervisorID, Title: "Pengajuan seminar hasil", Message: msg, Link: proposalLink(p.ID), Email: true},
	)
	return req, nil
}

// ApproveSeminar records the supervisor's answer in their own slot; a rejection closes the request.
func (svc *service) ApproveSeminar(ctx context.Context, supervisorID, requestID string, d Decision) (SeminarRequest, error) {
	d.Clean()

	req, err := svc.repo.GetSeminarRequest(ctx, requestID)
	if err != nil {
		return SeminarRequest{}, err
	}
	p, err := svc.repo.GetProposal(ctx, req.ProposalID)
	if err != nil {
		return SeminarRequest{}, err
	}
	primary, secondary := p.SupervisorSlot(supervisorID)
	if !primary && !secondary {
		return SeminarRequest{}, ErrForbidden
	}
	if req.Status != SeminarAwaitingApproval {
		return SeminarRequest{}, transitionErr("the seminar request is not awaiting approval")
	}

	switch {
	case !d.Approve:
		req.Status = SeminarRejected
		req.ApprovedByPrimary, req.ApprovedBySecondary = false, false
	case primary:
		req.ApprovedByPrimary = true
	default:
		req.ApprovedBySecondary = true
	}
	req.Note = d.Note
	req.UpdatedAt = nowFunc().UTC()
	if req, err = svc.repo.UpdateSeminarRequest(ctx, req); err != nil {
		return SeminarRequest{}, errors.Wrap(err, "updating seminar request")
	}

	link := proposalLink(p.ID)
	switch {
	case req.Status == SeminarRejected:
		svc.notify(ctx, notification.New{
			UserID:  p.StudentID,
			Title:   "Pengajuan seminar ditolak",
			Message: withNote("Pengajuan seminar hasil ditolak oleh pembimbing.", req.Note),
			Link:    link,
			Email:   true,
		})
	case req.Approval().Approved():
		notes := svc.staffNotes(ctx, user.StaffRoles, "Seminar siap dijadwalkan",
			fmt.Sprintf("Seminar hasil \"%s\" telah disetujui kedua pembimbing.", p.Title), link)
		notes = append(notes, notification.New{
			UserID:  p.StudentID,
			Title:   "Seminar disetujui",
			Message: "Kedua pembimbing telah menyetujui seminar hasil Anda.",
			Link:    link,
			Email:   true,
		})
		svc.notify(ctx, notes...)
	default:
		svc.notify(ctx, notification.New{
			UserID:  p.StudentID,
			Title:   "Persetujuan seminar",
			Message: "Satu pembimbing telah menyetujui seminar hasil Anda.",
			Link:    link,
		})
	}
	return req, nil
}

// ScheduleSeminar schedules an approved request, or reschedules a scheduled one.
func (svc *service) ScheduleSeminar(ctx context.Context, requestID string, s Schedule) (SeminarRequest, error) {
	s.Room = core.CleanString(s.Room)

	req, err := svc.repo.GetSeminarRequest(ctx, requestID)
	if err != nil {
		return SeminarRequest{}, err
	}
	switch req.Status {
	case SeminarAwaitingApproval:
		if !req.Approval().Approved() {
			return SeminarRequest{}, transitionErr("both supervisors must approve the seminar first")
		}
	case SeminarScheduled:
	default:
		return SeminarRequest{}, transitionErr("the seminar can no longer be scheduled")
	}
	p, err := svc.repo.GetProposal(ctx, req.ProposalID)
	if err != nil {
		return SeminarRequest{}, err
	}

	at := s.At.UTC()
	req.Status = SeminarScheduled
	req.ScheduledAt = &at
	req.Room = s.Room
	req.UpdatedAt = nowFunc().UTC()
	if req, err = svc.repo.UpdateSeminarRequest(ctx, req); err != nil {
		return SeminarRequest{}, errors.Wrap(err, "updating seminar request")
	}

	msg := fmt.Sprintf("Seminar hasil \"%s\" dijadwalkan pada %s di %s.", p.Title, at.Format("2006-01-02 15:04 MST"), req.Room)
	link := proposalLink(p.ID)
	svc.notify(ctx,
		notification.New{UserID: p.StudentID, Title: "Jadwal seminar hasil", Message: msg, Link: link, Email: true},
		notification.New{UserID: p.PrimarySupervisorID, Title: "Jadwal seminar hasil", Message: msg, Link: link, Email: true},
		notification.New{UserID: p.SecondarySupervisorID, Title: "Jadwal seminar hasil", Message: msg, Link: link, Email: true},
	)
	return req, nil
}

func (svc *service) CompleteSeminar(ctx context.Context, requestID string) (SeminarRequest, error) {
	req, err := svc.repo.GetSeminarRequest(ctx, requestID)
	if err != nil {
		return SeminarRequest{}, err
	}
	if req.Status != SeminarScheduled {
		return SeminarRequest{}, transitionErr("the seminar has not been scheduled")
	}
	p, err := svc.repo.GetProposal(ctx, req.ProposalID)
	if err != nil {
		return SeminarRequest{}, err
	}

	req.Status = SeminarDone
	req.UpdatedAt = nowFunc().UTC()
	if req, err = svc.repo.UpdateSeminarRequest(ctx, req); err != nil {
		return SeminarRequest{}, errors.Wrap(err, "updating seminar request")
	}

	svc.notify(ctx, notification.New{
		UserID:  p.StudentID,
		Title:   "Seminar hasil selesai",
		Message: "Silakan lakukan perbaikan pasca seminar lalu ajukan sidang skripsi.",
		Link:    proposalLink(p.ID),
		Email:   true,
	})
	return req, nil
}
