package thesis

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/progress"
)

// Proposal statuses
const (
	ProposalAwaitingSupervisor = progress.ProposalAwaitingSupervisor
	ProposalAccepted           = progress.ProposalAccepted
	ProposalRejected           = "Ditolak"
	ProposalGraduated          = progress.ProposalGraduated
)

// Guidance session statuses
const (
	GuidancePending  = "Menunggu"
	GuidanceApproved = "Disetujui"
	GuidanceRevision = "Revisi"
)

// Seminar request statuses
const (
	SeminarAwaitingApproval = "Menunggu Persetujuan"
	SeminarScheduled        = "Dijadwalkan"
	SeminarDone             = progress.SeminarDone
	SeminarRejected         = "Ditolak"
)

// Seminar document statuses
const (
	DocumentPending  = "Menunggu Verifikasi"
	DocumentVerified = progress.DocumentVerified
	DocumentRejected = "Ditolak"
)

// Defense request statuses
const (
	DefenseRequested = "Diajukan"
	DefenseScheduled = "Dijadwalkan"
)

// Seminar document kinds; one document of each kind is required.
const (
	DocumentDraft         = "draft_skripsi"
	DocumentApprovalSheet = "lembar_persetujuan"
	DocumentGuidanceCard  = "kartu_bimbingan"
)

var (
	DocumentKinds = []string{DocumentDraft, DocumentApprovalSheet, DocumentGuidanceCard}

	// ActiveProposalStatuses are the statuses of a proposal that blocks a new submission.
	ActiveProposalStatuses = []string{ProposalAwaitingSupervisor, ProposalAccepted, ProposalGraduated}
)

type Proposal struct {
	ID                    string    `json:"id"`
	StudentID             string    `json:"student_id"`
	Title                 string    `json:"title"`
	Abstract              string    `json:"abstract"`
	PrimarySupervisorID   string    `json:"primary_supervisor_id"`
	SecondarySupervisorID string    `json:"secondary_supervisor_id"`
	Status                string    `json:"status"`
	Note                  string    `json:"note"`
	CreatedAt             time.Time `json:"created_at"` // UTC
	UpdatedAt             time.Time `json:"updated_at"` // UTC
}

func (p Proposal) Supervisors() progress.Supervisors {
	return progress.Supervisors{Primary: p.PrimarySupervisorID, Secondary: p.SecondarySupervisorID}
}

// SupervisorSlot tells which supervisor slot(s) the lecturer holds on the proposal.
func (p Proposal) SupervisorSlot(lecturerID string) (primary, secondary bool) {
	if lecturerID == "" {
		return false, false
	}
	return p.PrimarySupervisorID == lecturerID, p.SecondarySupervisorID == lecturerID
}

func (p Proposal) IsSupervisedBy(lecturerID string) bool {
	primary, secondary := p.SupervisorSlot(lecturerID)
	return primary || secondary
}

// IsParticipant reports whether the user is the proposal's student or one of its supervisors.
func (p Proposal) IsParticipant(userID string) bool {
	return userID != "" && (p.StudentID == userID || p.IsSupervisedBy(userID))
}

type GuidanceSession struct {
	ID           string    `json:"id"`
	ProposalID   string    `json:"proposal_id"`
	SupervisorID string    `json:"supervisor_id"`
	HeldOn       time.Time `json:"held_on"`
	Topic        string    `json:"topic"`
	Notes        string    `json:"notes"`
	Attended     bool      `json:"attended"`
	Status       string    `json:"status"`
	Feedback     string    `json:"feedback"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (g GuidanceSession) Session() progress.Session {
	return progress.Session{SupervisorID: g.SupervisorID, Attended: g.Attended, Approved: g.Status == GuidanceApproved}
}

type SeminarRequest struct {
	ID                  string     `json:"id"`
	ProposalID          string     `json:"proposal_id"`
	Status              string     `json:"status"`
	ApprovedByPrimary   bool       `json:"approved_by_primary"`
	ApprovedBySecondary bool       `json:"approved_by_secondary"`
	ScheduledAt         *time.Time `json:"scheduled_at"`
	Room                string     `json:"room"`
	Note                string     `json:"note"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (s SeminarRequest) Approval() *progress.SeminarApproval {
	return &progress.SeminarApproval{Primary: s.ApprovedByPrimary, Secondary: s.ApprovedBySecondary}
}

// IsOpen reports whether the request still blocks a new seminar request.
func (s SeminarRequest) IsOpen() bool {
	return s.Status != SeminarRejected
}

type SeminarDocument struct {
	ID         string     `json:"id"`
	ProposalID string     `json:"proposal_id"`
	Kind       string     `json:"kind"`
	FilePath   string     `json:"file_path"` // object key in the file storage
	Status     string     `json:"status"`
	Note       string     `json:"note"`
	VerifiedBy string     `json:"verified_by"`
	VerifiedAt *time.Time `json:"verified_at"`
	UploadedAt time.Time  `json:"uploaded_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type DefenseRequest struct {
	ID          string     `json:"id"`
	ProposalID  string     `json:"proposal_id"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Room        string     `json:"room"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewProposal contains information needed to submit a Proposal.
type NewProposal struct {
	Title                 string `json:"title" validate:"required,notblank,max=300"`
	Abstract              string `json:"abstract" validate:"max=5000"`
	PrimarySupervisorID   string `json:"primary_supervisor_id" validate:"required,uuid"`
	SecondarySupervisorID string `json:"secondary_supervisor_id" validate:"required,uuid,nefield=PrimarySupervisorID"`
}

func (np *NewProposal) Clean() {
	np.Title = core.CleanString(np.Title)
	np.Abstract = core.CleanString(np.Abstract)
	np.PrimarySupervisorID = core.CleanString(np.PrimarySupervisorID, true /* lower */)
	np.SecondarySupervisorID = core.CleanString(np.SecondarySupervisorID, true /* lower */)
}

func (np *NewProposal) Validate(validate *validator.Validate) error {
	np.Clean()
	return validate.Struct(np)
}

// Decision is an approve/reject answer; a rejection must be explained.
type Decision struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note" validate:"max=2000"`
}

func (d *Decision) Clean() {
	d.Note = core.CleanString(d.Note)
}

func (d *Decision) Validate(validate *validator.Validate) error {
	d.Clean()
	return validate.Struct(d)
}

type NewGuidanceSession struct {
	SupervisorID string    `json:"supervisor_id" validate:"required,uuid"`
	HeldOn       time.Time `json:"held_on" validate:"required,notfuture"`
	Topic        string    `json:"topic" validate:"required,notblank,max=300"`
	Notes        string    `json:"notes" validate:"max=5000"`
}

func (ng *NewGuidanceSession) Clean() {
	ng.SupervisorID = core.CleanString(ng.SupervisorID, true /* lower */)
	ng.Topic = core.CleanString(ng.Topic)
	ng.Notes = core.CleanString(ng.Notes)
}

func (ng *NewGuidanceSession) Validate(validate *validator.Validate) error {
	ng.Clean()
	return validate.Struct(ng)
}

type GuidanceReview struct {
	Attended bool   `json:"attended"`
	Approve  bool   `json:"approve"`
	Feedback string `json:"feedback" validate:"max=2000"`
}

func (r *GuidanceReview) Validate(validate *validator.Validate) error {
	r.Feedback = core.CleanString(r.Feedback)
	return validate.Struct(r)
}

type Schedule struct {
	At   time.Time `json:"at" validate:"required"`
	Room string    `json:"room" validate:"required,notblank,max=100"`
}

func (s *Schedule) Validate(validate *validator.Validate) error {
	s.Room = core.CleanString(s.Room)
	return validate.Struct(s)
}

type NewDocument struct {
	Kind     string `json:"kind" validate:"required,dockind"`
	FilePath string `json:"file_path" validate:"required,notblank,max=1000"`
}

func (nd *NewDocument) Validate(validate *validator.Validate) error {
	nd.Kind = core.CleanString(nd.Kind, true /* lower */)
	nd.FilePath = core.CleanString(nd.FilePath)
	return validate.Struct(nd)
}

type ProposalFilter struct {
	IDs          []string
	StudentID    string
	SupervisorID string // either slot
	Statuses     []string
	Search       string // title
}

type DocumentFilter struct {
	ProposalID string
	Statuses   []string
}
