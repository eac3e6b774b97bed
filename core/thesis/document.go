package thesis

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/notification"
	"github.com/trezcool/skripsi/core/user"
)

// UploadDocument records a seminar document already stored by the file storage.
// The student must be eligible for the seminar. A document may be uploaded again until it is verified.
func (svc *service) UploadDocument(ctx context.Context, studentID, proposalID string, nd NewDocument) (SeminarDocument, error) {
	nd.FilePath = core.CleanString(nd.FilePath)

	facts, err := svc.facts(ctx, proposalID)
	if err != nil {
		return SeminarDocument{}, err
	}
	p := facts.Proposal
	if p.StudentID != studentID {
		return SeminarDocument{}, ErrForbidden
	}
	if p.Status != ProposalAccepted {
		return SeminarDocument{}, transitionErr("the proposal is not accepted")
	}
	if facts.LatestSeminar == nil || !facts.LatestSeminar.IsOpen() {
		return SeminarDocument{}, transitionErr("request the seminar before uploading documents")
	}
	// documents follow the seminar readiness stage: both tallies complete & both approvals given
	if !facts.Snapshot().IsEligible {
		return SeminarDocument{}, transitionErr("both supervisors must approve the seminar request before uploading documents")
	}

	docs, err := svc.repo.QueryDocuments(ctx, DocumentFilter{ProposalID: p.ID})
	if err != nil {
		return SeminarDocument{}, errors.Wrap(err, "querying documents")
	}
	for _, doc := range docs {
		if doc.Kind == nd.Kind && doc.Status == DocumentVerified {
			return SeminarDocument{}, transitionErr("the document has already been verified")
		}
	}

	now := nowFunc().UTC()
	doc, err := svc.repo.SaveDocument(ctx, SeminarDocument{
		ProposalID: p.ID,
		Kind:       nd.Kind,
		FilePath:   nd.FilePath,
		Status:     DocumentPending,
		UploadedAt: now,
		UpdatedAt:  now,
	})
	if err != nil {
		return SeminarDocument{}, errors.Wrap(err, "saving document")
	}

	svc.notify(ctx, svc.staffNotes(ctx, user.StaffRoles, "Dokumen seminar baru",
		fmt.Sprintf("Dokumen %s untuk \"%s\" menunggu verifikasi.", doc.Kind, p.Title), proposalLink(p.ID))...)
	return doc, nil
}

func (svc *service) VerifyDocument(ctx context.Context, staffID, documentID string, d Decision) (SeminarDocument, error) {
	d.Clean()

	doc, err := svc.repo.GetDocument(ctx, documentID)
	if err != nil {
		return SeminarDocument{}, err
	}
	if doc.Status != DocumentPending {
		return SeminarDocument{}, transitionErr("the document is not awaiting verification")
	}
	p, err := svc.repo.GetProposal(ctx, doc.ProposalID)
	if err != nil {
		return SeminarDocument{}, err
	}

	title := "Dokumen terverifikasi"
	now := nowFunc().UTC()
	if d.Approve {
		doc.Status = DocumentVerified
	} else {
		doc.Status = DocumentRejected
		title = "Dokumen ditolak"
	}
	doc.Note = d.Note
	doc.VerifiedBy = staffID
	doc.VerifiedAt = &now
	doc.UpdatedAt = now
	if doc, err = svc.repo.UpdateDocument(ctx, doc); err != nil {
		return SeminarDocument{}, errors.Wrap(err, "updating document")
	}

	svc.notify(ctx, notification.New{
		UserID:  p.StudentID,
		Title:   title,
		Message: withNote(fmt.Sprintf("Dokumen %s telah diperiksa.", doc.Kind), doc.Note),
		Link:    proposalLink(p.ID),
		Email:   !d.Approve,
	})
	return doc, nil
}

func (svc *service) PendingDocuments(ctx context.Context) ([]SeminarDocument, error) {
	return svc.repo.QueryDocuments(ctx, DocumentFilter{Statuses: []string{DocumentPending}})
}
