package thesis

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/progress"
)

func TestProgressFacts_Snapshot(t *testing.T) {
	accepted := Proposal{Status: ProposalAccepted, PrimarySupervisorID: "a", SecondarySupervisorID: "b"}
	complete := progress.Tally{Primary: 10, Secondary: 12}

	tests := []struct {
		name  string
		facts ProgressFacts
		want  progress.Snapshot
	}{
		{
			name:  "no seminar request",
			facts: ProgressFacts{Proposal: accepted, Tally: complete},
			want:  progress.Snapshot{ProposalStatus: ProposalAccepted},
		},
		{
			name: "approved by both",
			facts: ProgressFacts{
				Proposal:      accepted,
				Tally:         complete,
				LatestSeminar: &SeminarRequest{Status: SeminarAwaitingApproval, ApprovedByPrimary: true, ApprovedBySecondary: true},
				UploadedDocs:  2,
				VerifiedDocs:  1,
			},
			want: progress.Snapshot{
				ProposalStatus: ProposalAccepted,
				HasSeminar:     true,
				SeminarStatus:  SeminarAwaitingApproval,
				UploadedDocs:   2,
				VerifiedDocs:   1,
				IsEligible:     true,
			},
		},
		{
			name: "incomplete tally",
			facts: ProgressFacts{
				Proposal:      accepted,
				Tally:         progress.Tally{Primary: 10, Secondary: 9},
				LatestSeminar: &SeminarRequest{Status: SeminarAwaitingApproval, ApprovedByPrimary: true, ApprovedBySecondary: true},
			},
			want: progress.Snapshot{ProposalStatus: ProposalAccepted, HasSeminar: true, SeminarStatus: SeminarAwaitingApproval},
		},
		{
			name: "missing secondary supervisor",
			facts: ProgressFacts{
				Proposal:      Proposal{Status: ProposalAccepted, PrimarySupervisorID: "a"},
				Tally:         complete,
				LatestSeminar: &SeminarRequest{Status: SeminarDone, ApprovedByPrimary: true, ApprovedBySecondary: true},
				HasDefense:    true,
			},
			want: progress.Snapshot{ProposalStatus: ProposalAccepted, HasSeminar: true, SeminarStatus: SeminarDone, HasSidang: true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.facts.Snapshot())
			assert.Equal(t, progress.Resolve(tc.want), tc.facts.Stage())
		})
	}
}

func TestStageSummary(t *testing.T) {
	stage := func(step int) ProgressRow {
		st, _ := progress.StageByStep(step)
		return ProgressRow{Stage: st}
	}
	summary := StageSummary([]ProgressRow{stage(0), stage(2), stage(2), stage(9)})

	require.Len(t, summary, progress.FinalStep+1)
	for _, sc := range summary {
		switch sc.Step {
		case 0, 9:
			assert.Equal(t, 1, sc.Count, sc.Label)
		case 2:
			assert.Equal(t, 2, sc.Count, sc.Label)
		default:
			assert.Equal(t, 0, sc.Count, sc.Label)
		}
	}
	assert.Len(t, StageSummary(nil), progress.FinalStep+1)
}

func TestProposal_Participants(t *testing.T) {
	p := Proposal{StudentID: "s", PrimarySupervisorID: "a", SecondarySupervisorID: "b"}

	primary, secondary := p.SupervisorSlot("b")
	assert.False(t, primary)
	assert.True(t, secondary)
	assert.True(t, p.IsParticipant("s"))
	assert.True(t, p.IsSupervisedBy("a"))
	assert.False(t, p.IsSupervisedBy("s"))
	assert.False(t, p.IsParticipant(""))
}

type validatable interface {
	Validate(*validator.Validate) error
}

func TestValidators(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	lecturerA := "6f1c7a4e-3b8e-4c8e-9f3a-1d2b3c4d5e6f"
	lecturerB := "7a2d8b5f-4c9f-4d9f-8a4b-2e3c4d5e6f70"

	tests := []struct {
		name    string
		data    validatable
		wantTag string
	}{
		{name: "valid proposal", data: &NewProposal{Title: "Sistem Pakar", PrimarySupervisorID: lecturerA, SecondarySupervisorID: lecturerB}},
		{name: "blank title", data: &NewProposal{Title: "   ", PrimarySupervisorID: lecturerA, SecondarySupervisorID: lecturerB}, wantTag: "required"},
		{name: "same supervisors", data: &NewProposal{Title: "x", PrimarySupervisorID: lecturerA, SecondarySupervisorID: lecturerA}, wantTag: "nefield"},
		{name: "approve without note", data: &Decision{Approve: true}},
		{name: "reject without note", data: &Decision{Approve: false, Note: " "}, wantTag: rejectNoteTag},
		{name: "revision without feedback", data: &GuidanceReview{Attended: true}, wantTag: rejectNoteTag},
		{name: "future guidance", data: &NewGuidanceSession{SupervisorID: lecturerA, HeldOn: time.Now().Add(72 * time.Hour), Topic: "Bab 1"}, wantTag: notFutureTag},
		{name: "valid guidance", data: &NewGuidanceSession{SupervisorID: lecturerA, HeldOn: time.Now(), Topic: "Bab 1"}},
		{name: "unknown document kind", data: &NewDocument{Kind: "ktp", FilePath: "x.pdf"}, wantTag: docKindTag},
		{name: "valid document", data: &NewDocument{Kind: " Draft_Skripsi ", FilePath: "x.pdf"}},
		{name: "schedule without room", data: &Schedule{At: time.Now()}, wantTag: "required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.data.Validate(validate)
			if tc.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "want validator.ValidationErrors, got %v", err)
			require.Len(t, vErrs, 1)
			assert.Equal(t, tc.wantTag, vErrs[0].Tag())
			assert.NotEmpty(t, vErrs[0].Translate(translator))
		})
	}
}
