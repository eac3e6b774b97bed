package progress

// Timeline steps, in lifecycle order.
const (
	StepProposalSubmission = iota
	StepSupervisorApproval
	StepGuidance
	StepSeminarReadiness
	StepSeminarDocuments
	StepDocumentVerification
	StepResultsSeminar
	StepPostSeminarRevision
	StepDefense
	StepGraduated

	FinalStep = StepGraduated
)

// Stage labels, as displayed on every dashboard.
const (
	LabelProposalSubmission   = "Pengajuan Proposal"
	LabelSupervisorApproval   = "Persetujuan Dosbing"
	LabelGuidance             = "Proses Bimbingan"
	LabelSeminarReadiness     = "Kesiapan Seminar"
	LabelSeminarDocuments     = "Unggah Dokumen Seminar"
	LabelDocumentVerification = "Verifikasi Berkas"
	LabelResultsSeminar       = "Seminar Hasil"
	LabelPostSeminarRevision  = "Perbaikan Pasca Seminar"
	LabelDefense              = "Sidang Skripsi"
	LabelGraduated            = "Lulus / Selesai"
)

// Stage is one position on the academic timeline.
// ColorClass is a presentation token only; nothing in this package interprets it.
type Stage struct {
	Label      string `json:"label"`
	ColorClass string `json:"color_class"`
	Step       int    `json:"step"`
}

var timeline = [...]Stage{
	StepProposalSubmission:   {Label: LabelProposalSubmission, ColorClass: "bg-gray-100 text-gray-700", Step: StepProposalSubmission},
	StepSupervisorApproval:   {Label: LabelSupervisorApproval, ColorClass: "bg-yellow-100 text-yellow-800", Step: StepSupervisorApproval},
	StepGuidance:             {Label: LabelGuidance, ColorClass: "bg-blue-100 text-blue-800", Step: StepGuidance},
	StepSeminarReadiness:     {Label: LabelSeminarReadiness, ColorClass: "bg-indigo-100 text-indigo-800", Step: StepSeminarReadiness},
	StepSeminarDocuments:     {Label: LabelSeminarDocuments, ColorClass: "bg-purple-100 text-purple-800", Step: StepSeminarDocuments},
	StepDocumentVerification: {Label: LabelDocumentVerification, ColorClass: "bg-orange-100 text-orange-800", Step: StepDocumentVerification},
	StepResultsSeminar:       {Label: LabelResultsSeminar, ColorClass: "bg-cyan-100 text-cyan-800", Step: StepResultsSeminar},
	StepPostSeminarRevision:  {Label: LabelPostSeminarRevision, ColorClass: "bg-pink-100 text-pink-800", Step: StepPostSeminarRevision},
	StepDefense:              {Label: LabelDefense, ColorClass: "bg-red-100 text-red-800", Step: StepDefense},
	StepGraduated:            {Label: LabelGraduated, ColorClass: "bg-green-100 text-green-800", Step: StepGraduated},
}

// Timeline returns every stage ordered by step, for progress bars.
func Timeline() []Stage {
	stages := make([]Stage, len(timeline))
	copy(stages, timeline[:])
	return stages
}

func StageByStep(step int) (Stage, bool) {
	if step < 0 || step >= len(timeline) {
		return Stage{}, false
	}
	return timeline[step], true
}

func StageByLabel(label string) (Stage, bool) {
	for _, st := range timeline {
		if st.Label == label {
			return st, true
		}
	}
	return Stage{}, false
}

// Percent is the position of the stage on a fixed-length progress bar.
func (s Stage) Percent() int {
	return s.Step * 100 / FinalStep
}

func (s Stage) IsFinal() bool {
	return s.Step == FinalStep
}

func (s Stage) String() string {
	return s.Label
}
