package thesis

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/notification"
	"github.com/trezcool/skripsi/core/user"
)

func (svc *service) RequestDefense(ctx context.Context, studentID, proposalID string) (DefenseRequest, error) {
	p, err := svc.repo.GetProposal(ctx, proposalID)
	if err != nil {
		return DefenseRequest{}, err
	}
	if p.StudentID != studentID {
		return DefenseRequest{}, ErrForbidden
	}
	if p.Status != ProposalAccepted {
		return DefenseRequest{}, transitionErr("the proposal is not accepted")
	}
	req, err := svc.repo.LatestSeminarRequest(ctx, p.ID)
	if err != nil && errors.Cause(err) != ErrNotFound {
		return DefenseRequest{}, err
	}
	if err != nil || req.Status != SeminarDone {
		return DefenseRequest{}, transitionErr("the seminar must be completed first")
	}
	if _, err := svc.repo.GetDefenseRequest(ctx, p.ID); err == nil {
		return DefenseRequest{}, transitionErr("the defense has already been requested")
	} else if errors.Cause(err) != ErrNotFound {
		return DefenseRequest{}, err
	}

	now := nowFunc().UTC()
	def, err := svc.repo.CreateDefenseRequest(ctx, DefenseRequest{
		ProposalID: p.ID,
		Status:     DefenseRequested,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return DefenseRequest{}, errors.Wrap(err, "creating defense request")
	}

	link := proposalLink(p.ID)
	msg := fmt.Sprintf("Mahasiswa mengajukan sidang skripsi untuk \"%s\".", p.Title)
	notes := svc.staffNotes(ctx, []string{user.RoleStaff, user.RoleProgramChair}, "Pengajuan sidang skripsi", msg, link)
	notes = append(notes,
		notification.New{UserID: p.PrimarySupervisorID, Title: "Pengajuan sidang skripsi", Message: msg, Link: link},
		notification.New{UserID: p.SecondarySupervisorID, Title: "Pengajuan sidang skripsi", Message: msg, Link: link},
	)
	svc.notify(ctx, notes...)
	return def, nil
}

func (svc *service) ScheduleDefense(ctx context.Context, proposalID string, s Schedule) (DefenseRequest, error) {
	s.Room = core.CleanString(s.Room)

	p, err := svc.repo.GetProposal(ctx, proposalID)
	if err != nil {
		return DefenseRequest{}, err
	}
	if p.Status != ProposalAccepted {
		return DefenseRequest{}, transitionErr("the proposal is not accepted")
	}
	def, err := svc.repo.GetDefenseRequest(ctx, p.ID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return DefenseRequest{}, transitionErr("the defense has not been requested")
		}
		return DefenseRequest{}, err
	}

	at := s.At.UTC()
	def.Status = DefenseScheduled
	def.ScheduledAt = &at
	def.Room = s.Room
	def.UpdatedAt = nowFunc().UTC()
	if def, err = svc.repo.UpdateDefenseRequest(ctx, def); err != nil {
		return DefenseRequest{}, errors.Wrap(err, "updating defense request")
	}

	msg := fmt.Sprintf("Sidang skripsi \"%s\" dijadwalkan pada %s di %s.", p.Title, at.Format("2006-01-02 15:04 MST"), def.Room)
	link := proposalLink(p.ID)
	svc.notify(ctx,
		notification.New{UserID: p.StudentID, Title: "Jadwal sidang skripsi", Message: msg, Link: link, Email: true},
		notification.New{UserID: p.PrimarySupervisorID, Title: "Jadwal sidang skripsi", Message: msg, Link: link, Email: true},
		notification.New{UserID: p.SecondarySupervisorID, Title: "Jadwal sidang skripsi", Message: msg, Link: link, Email: true},
	)
	return def, nil
}
