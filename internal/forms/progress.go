package forms

import "math"

// Status is the lifecycle state of a single form.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusCompleted   Status = "completed"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
)

// ParseStatus accepts the wire form of a status.
func ParseStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case StatusDraft, StatusCompleted, StatusSubmitted, StatusUnderReview, StatusApproved:
		return s, true
	default:
		return "", false
	}
}

// IsCompleted reports whether the status counts toward progress.
func (s Status) IsCompleted() bool {
	switch s {
	case StatusCompleted, StatusSubmitted, StatusUnderReview, StatusApproved:
		return true
	default:
		return false
	}
}

// FormKey is the backend identifier of a submittable form.
type FormKey string

const (
	KeyPersonalInformation     FormKey = "personalInformation"
	KeyProfessionalExperience  FormKey = "professionalExperience"
	KeyWorkExperience          FormKey = "workExperience"
	KeyReferences              FormKey = "references"
	KeyEducation               FormKey = "education"
	KeyLegalDisclosures        FormKey = "legalDisclosures"
	KeyJobDescriptionPCA       FormKey = "jobDescriptionPCA"
	KeyCodeOfEthics            FormKey = "codeOfEthics"
	KeyServiceDeliveryPolicy   FormKey = "serviceDeliveryPolicy"
	KeyNonCompeteAgreement     FormKey = "nonCompeteAgreement"
	KeyMisconductStatement     FormKey = "misconductStatement"
	KeyOrientationPresentation FormKey = "orientationPresentation"
	KeyOrientationChecklist    FormKey = "orientationChecklist"
	KeyBackgroundCheck         FormKey = "backgroundCheck"
	KeyTBSymptomScreen         FormKey = "tbSymptomScreen"
	KeyEmergencyContact        FormKey = "emergencyContact"
	KeyI9Form                  FormKey = "i9Form"
	KeyW4Form                  FormKey = "w4Form"
	KeyW9Form                  FormKey = "w9Form"
	KeyDirectDeposit           FormKey = "directDeposit"
)

// formKeys is the fixed progress denominator. It intentionally differs from
// the navigation sequence: training steps are not counted, and
// misconductStatement has no page of its own.
var formKeys = [...]FormKey{
	KeyPersonalInformation,
	KeyProfessionalExperience,
	KeyWorkExperience,
	KeyReferences,
	KeyEducation,
	KeyLegalDisclosures,
	KeyJobDescriptionPCA,
	KeyCodeOfEthics,
	KeyServiceDeliveryPolicy,
	KeyNonCompeteAgreement,
	KeyMisconductStatement,
	KeyOrientationPresentation,
	KeyOrientationChecklist,
	KeyBackgroundCheck,
	KeyTBSymptomScreen,
	KeyEmergencyContact,
	KeyI9Form,
	KeyW4Form,
	KeyW9Form,
	KeyDirectDeposit,
}

// FormKeys returns the canonical form keys in order.
func FormKeys() []FormKey {
	out := make([]FormKey, len(formKeys))
	copy(out, formKeys[:])
	return out
}

// IsFormKey reports whether key is one of the canonical keys.
func IsFormKey(key FormKey) bool {
	for _, k := range formKeys {
		if k == key {
			return true
		}
	}
	return false
}

// FormState is the per-form status record reported by the backend.
type FormState struct {
	Status Status `json:"status"`
}

// Progress is the applicant's overall completion.
type Progress struct {
	CompletedCount int `json:"completedCount"`
	Percentage     int `json:"percentage"`
	Total          int `json:"total"`
}

// ComputeProgress counts the canonical keys that either carry a completed
// status or appear in completedKeys. Each key counts at most once; keys
// outside the canonical list are ignored. Both maps may be nil.
func ComputeProgress(formsByKey map[FormKey]FormState, completedKeys map[FormKey]struct{}) Progress {
	count := 0
	for _, key := range formKeys {
		if state, ok := formsByKey[key]; ok && state.Status.IsCompleted() {
			count++
			continue
		}
		if _, ok := completedKeys[key]; ok {
			count++
		}
	}
	total := len(formKeys)
	return Progress{
		CompletedCount: count,
		Percentage:     int(math.Round(float64(count) / float64(total) * 100)),
		Total:          total,
	}
}
