package thesis

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/skripsi/core"
)

var (
	docKindTag  = "dockind"
	docKindText = "unknown document kind"

	notFutureTag  = "notfuture"
	notFutureText = "this date cannot be in the future"

	nefieldTag  = "nefield"
	nefieldText = "supervisors must be two different lecturers"

	rejectNoteTag  = "rejectnote"
	rejectNoteText = "a note is required when rejecting"
)

// InitValidators registers the thesis validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(docKindTag, docKindValidation)
	core.RegisterCustomTranslation(validate, translator, docKindTag, docKindText)

	_ = validate.RegisterValidation(notFutureTag, notFutureValidation)
	core.RegisterCustomTranslation(validate, translator, notFutureTag, notFutureText)

	core.RegisterCustomTranslation(validate, translator, nefieldTag, nefieldText, true)

	validate.RegisterStructValidation(decisionStructValidation, Decision{}, GuidanceReview{})
	core.RegisterCustomTranslation(validate, translator, rejectNoteTag, rejectNoteText)
}

func docKindValidation(fl validator.FieldLevel) bool {
	return core.StringInSlice(fl.Field().String(), DocumentKinds)
}

// notFutureValidation allows a day of slack for clients in other time zones.
func notFutureValidation(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return !t.After(nowFunc().Add(24 * time.Hour))
}

func decisionStructValidation(sl validator.StructLevel) {
	switch d := sl.Current().Interface().(type) {
	case Decision:
		if !d.Approve && core.CleanString(d.Note) == "" {
			sl.ReportError(d.Note, "note", "Note", rejectNoteTag, "")
		}
	case GuidanceReview:
		if !d.Approve && core.CleanString(d.Feedback) == "" {
			sl.ReportError(d.Feedback, "feedback", "Feedback", rejectNoteTag, "")
		}
	}
}
