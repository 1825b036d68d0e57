package forms

// FallbackPath is the onboarding dashboard. Navigation past either end of the
// sequence, or from an unknown path, lands here.
const FallbackPath = "/employee/task-management"

// Step is one page of the onboarding wizard.
type Step struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// sequence is the business-mandated onboarding order: application info,
// documents, orientation, then post-hire training.
var sequence = [...]Step{
	{ID: "personal-information", Path: "/employee/personal-information"},
	{ID: "education", Path: "/employee/education"},
	{ID: "references", Path: "/employee/references"},
	{ID: "work-experience", Path: "/employee/work-experience"},
	{ID: "professional-experience", Path: "/employee/professional-experience"},
	{ID: "legal-disclosures", Path: "/employee/legal-disclosures"},
	{ID: "job-description-pca", Path: "/employee/job-description-pca"},
	{ID: "code-of-ethics", Path: "/employee/code-of-ethics"},
	{ID: "service-delivery-policies", Path: "/employee/service-delivery-policies"},
	{ID: "non-compete-agreement", Path: "/employee/non-compete-agreement"},
	{ID: "background-check", Path: "/employee/edit-background-form-check-results"},
	{ID: "tb-symptom-screen", Path: "/employee/edit-tb-symptom-screen-form"},
	{ID: "emergency-contact", Path: "/employee/emergency-contact"},
	{ID: "i9-form", Path: "/employee/i9-form"},
	{ID: "w4-form", Path: "/employee/w4-form"},
	{ID: "w9-form", Path: "/employee/w9-form"},
	{ID: "direct-deposit", Path: "/employee/direct-deposit"},
	{ID: "orientation-presentation", Path: "/employee/orientation-presentation"},
	{ID: "orientation-checklist", Path: "/employee/orientation-checklist"},
	{ID: "training-video", Path: "/employee/training-video"},
	{ID: "pca-training-questions", Path: "/employee/pca-training-questions"},
}

// Steps returns a copy of the navigation sequence in order.
func Steps() []Step {
	out := make([]Step, len(sequence))
	copy(out, sequence[:])
	return out
}

// StepIndex returns the index of the step whose path matches exactly, or -1.
func StepIndex(path string) int {
	for i := range sequence {
		if sequence[i].Path == path {
			return i
		}
	}
	return -1
}

// StepByID returns the step with the given id.
func StepByID(id string) (Step, bool) {
	for _, s := range sequence {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// NextPath returns the path after currentPath, or FallbackPath when
// currentPath is the last step or not a step at all.
func NextPath(currentPath string) string {
	idx := StepIndex(currentPath)
	if idx == -1 || idx == len(sequence)-1 {
		return FallbackPath
	}
	return sequence[idx+1].Path
}

// PreviousPath returns the path before currentPath, or FallbackPath when
// currentPath is the first step or not a step at all.
func PreviousPath(currentPath string) string {
	idx := StepIndex(currentPath)
	if idx <= 0 {
		return FallbackPath
	}
	return sequence[idx-1].Path
}

// Position reports the 1-based position of path in the sequence.
func Position(path string) (position, total int, ok bool) {
	idx := StepIndex(path)
	if idx == -1 {
		return 0, len(sequence), false
	}
	return idx + 1, len(sequence), true
}

// Navigation answers where a page sits in the wizard and where its
// next/previous buttons lead.
type Navigation struct {
	Current  string `json:"current"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Position int    `json:"position"`
	Total    int    `json:"total"`
	Known    bool   `json:"known"`
}

// Navigate bundles NextPath, PreviousPath and Position for path.
func Navigate(path string) Navigation {
	pos, total, ok := Position(path)
	return Navigation{
		Current:  path,
		Next:     NextPath(path),
		Previous: PreviousPath(path),
		Position: pos,
		Total:    total,
		Known:    ok,
	}
}
