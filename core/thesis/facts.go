package thesis

import (
	"github.com/trezcool/skripsi/core/progress"
)

// ProgressFacts is the normalised query shape every dashboard loads per proposal.
type ProgressFacts struct {
	Proposal      Proposal
	LatestSeminar *SeminarRequest // nil when no seminar request exists
	HasDefense    bool
	UploadedDocs  int
	VerifiedDocs  int
	Tally         progress.Tally // counted guidance sessions per supervisor
}

// Snapshot converts the facts to the resolver input.
func (f ProgressFacts) Snapshot() progress.Snapshot {
	snap := progress.Snapshot{
		ProposalStatus: f.Proposal.Status,
		HasSidang:      f.HasDefense,
		UploadedDocs:   f.UploadedDocs,
		VerifiedDocs:   f.VerifiedDocs,
	}

	var approval *progress.SeminarApproval
	if f.LatestSeminar != nil {
		snap.HasSeminar = true
		snap.SeminarStatus = f.LatestSeminar.Status
		approval = f.LatestSeminar.Approval()
	}
	if f.Proposal.Supervisors().Valid() {
		snap.IsEligible = progress.IsEligible(f.Tally, approval)
	}
	return snap
}

// Stage resolves the facts to their timeline stage.
func (f ProgressFacts) Stage() progress.Stage {
	return progress.Resolve(f.Snapshot())
}

// Person is the public summary of a user shown next to a proposal.
type Person struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	IdentityNumber string `json:"identity_number"`
}

type ProgressRow struct {
	Proposal            Proposal          `json:"proposal"`
	Student             Person            `json:"student"`
	PrimarySupervisor   Person            `json:"primary_supervisor"`
	SecondarySupervisor Person            `json:"secondary_supervisor"`
	Guidance            progress.Tally    `json:"guidance"`
	Facts               progress.Snapshot `json:"facts"`
	Stage               progress.Stage    `json:"stage"`
	Percent             int               `json:"percent"`
}

type StageCount struct {
	progress.Stage
	Count int `json:"count"`
}

// StageSummary counts rows per stage, over the whole timeline.
func StageSummary(rows []ProgressRow) []StageCount {
	stages := progress.Timeline()
	summary := make([]StageCount, 0, len(stages))
	counts := make(map[int]int, len(stages))
	for _, row := range rows {
		counts[row.Stage.Step]++
	}
	for _, st := range stages {
		summary = append(summary, StageCount{Stage: st, Count: counts[st.Step]})
	}
	return summary
}

// ProposalDetail is everything recorded about one proposal.
type ProposalDetail struct {
	ProgressRow
	GuidanceSessions []GuidanceSession `json:"guidance_sessions"`
	Seminar          *SeminarRequest   `json:"seminar"`
	Documents        []SeminarDocument `json:"documents"`
	Defense          *DefenseRequest   `json:"defense"`
	Timeline         []progress.Stage  `json:"timeline"`
}
