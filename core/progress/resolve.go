// Package progress derives the single canonical timeline stage of a thesis record.
// Every dashboard resolves status through Resolve; none computes it on its own.
package progress

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Status values read from upstream records.
const (
	ProposalAwaitingSupervisor = "Menunggu Persetujuan Dosbing"
	ProposalAccepted           = "Diterima"
	ProposalGraduated          = "Lulus"

	SeminarDone = "Selesai"

	// DocumentVerified marks a seminar document as complete.
	DocumentVerified = "Lengkap"
)

// RequiredDocuments is the number of seminar documents a student submits.
const RequiredDocuments = 3

// Snapshot is the set of facts about one thesis record that determines its stage.
// It is assembled fresh by the caller for every resolution.
type Snapshot struct {
	ProposalStatus string `json:"proposal_status"`
	HasSeminar     bool   `json:"has_seminar"`
	SeminarStatus  string `json:"seminar_status,omitempty"` // empty when no seminar request exists
	HasSidang      bool   `json:"has_sidang"`
	UploadedDocs   int    `json:"uploaded_docs"`
	VerifiedDocs   int    `json:"verified_docs"`
	IsEligible     bool   `json:"is_eligible"`
}

// Validate reports the invariants the snapshot violates. Resolve does not require a valid snapshot.
func (s Snapshot) Validate() error {
	var problems []string
	if s.UploadedDocs < 0 {
		problems = append(problems, fmt.Sprintf("uploaded docs count is negative (%d)", s.UploadedDocs))
	}
	if s.VerifiedDocs < 0 {
		problems = append(problems, fmt.Sprintf("verified docs count is negative (%d)", s.VerifiedDocs))
	}
	if s.VerifiedDocs > s.UploadedDocs {
		problems = append(problems, fmt.Sprintf("verified docs (%d) exceed uploaded docs (%d)", s.VerifiedDocs, s.UploadedDocs))
	}
	if !s.HasSeminar && s.SeminarStatus != "" {
		problems = append(problems, fmt.Sprintf("seminar status %q without a seminar request", s.SeminarStatus))
	}
	// rule 4 still resolves these to Seminar Hasil; reported so callers can flag the record.
	if !s.HasSeminar && s.VerifiedDocs >= RequiredDocuments {
		problems = append(problems, "verified docs without a seminar request")
	}
	if len(problems) > 0 {
		return errors.New("invalid progress snapshot: " + strings.Join(problems, "; "))
	}
	return nil
}

// normalize clamps counts to 0 <= verified <= uploaded.
func (s Snapshot) normalize() Snapshot {
	if s.UploadedDocs < 0 {
		s.UploadedDocs = 0
	}
	if s.VerifiedDocs < 0 {
		s.VerifiedDocs = 0
	}
	if s.VerifiedDocs > s.UploadedDocs {
		s.VerifiedDocs = s.UploadedDocs
	}
	return s
}

// Resolve maps a snapshot to its timeline stage. The first matching rule wins:
//
//  1. proposal graduated          -> Lulus / Selesai          (9)
//  2. defense requested           -> Sidang Skripsi           (8)
//  3. seminar done                -> Perbaikan Pasca Seminar  (7)
//  4. >= 3 verified documents     -> Seminar Hasil            (6)
//  5. awaiting supervisor         -> Persetujuan Dosbing      (1)
//  6. proposal accepted           -> steps 2..5, see resolveAccepted
//  7. anything else               -> Pengajuan Proposal       (0)
//
// Rule 4 does not look at the seminar request or the proposal status.
func Resolve(s Snapshot) Stage {
	s = s.normalize()

	switch {
	case s.ProposalStatus == ProposalGraduated:
		return timeline[StepGraduated]
	case s.HasSidang:
		return timeline[StepDefense]
	case s.SeminarStatus == SeminarDone:
		return timeline[StepPostSeminarRevision]
	case s.VerifiedDocs >= RequiredDocuments:
		return timeline[StepResultsSeminar]
	case s.ProposalStatus == ProposalAwaitingSupervisor:
		return timeline[StepSupervisorApproval]
	case s.ProposalStatus == ProposalAccepted:
		return resolveAccepted(s)
	}
	return timeline[StepProposalSubmission]
}

// resolveAccepted sub-resolves an accepted proposal. Upload upgrades are checked independently, the last match wins.
func resolveAccepted(s Snapshot) Stage {
	if !s.IsEligible {
		return timeline[StepGuidance]
	}

	stage := timeline[StepSeminarReadiness]
	if s.UploadedDocs > 0 {
		stage = timeline[StepSeminarDocuments]
	}
	if s.UploadedDocs >= RequiredDocuments {
		stage = timeline[StepDocumentVerification]
	}
	return stage
}
