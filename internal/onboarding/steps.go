package onboarding

import (
	"regexp"

	"github.com/jonathan/campus-agents/internal/store"
)

// Steps, in the order they are collected.
const (
	StepIdentity = iota + 1
	StepAcademic
	StepAboutMe
	StepPhoto
	StepLocation

	LastStep = StepLocation
)

var stepNames = map[int]string{
	StepIdentity: "name and email",
	StepAcademic: "major and year",
	StepAboutMe:  "bio and interests",
	StepPhoto:    "profile photo",
	StepLocation: "location",
}

// StepName describes a step for prompts.
func StepName(step int) string {
	if name, ok := stepNames[step]; ok {
		return name
	}
	return stepNames[StepIdentity]
}

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+`)

// DetermineStep returns the first step whose fields are incomplete, or the
// last step when everything is present.
func DetermineStep(form map[string]any) int {
	switch {
	case !present(form["name"]) || !present(form["email"]):
		return StepIdentity
	case !present(form["major"]) || !present(form["year"]):
		return StepAcademic
	case !present(form["bio"]) || !present(form["interests"]):
		return StepAboutMe
	case !present(form["photoUrl"]):
		return StepPhoto
	default:
		return StepLocation
	}
}

// Validate checks the fields of one step and returns field -> message.
// Unknown steps validate as the first step.
func Validate(step int, form map[string]any) map[string]string {
	errs := map[string]string{}
	switch step {
	case StepAcademic:
		if !present(form["major"]) {
			errs["major"] = "Major is required."
		}
		year, ok := store.Document(form).Int("year")
		if !ok || year < 1 || year > 8 {
			errs["year"] = "Year must be a valid integer."
		}
	case StepAboutMe:
		if !present(form["bio"]) {
			errs["bio"] = "Bio is required."
		}
		if !present(form["interests"]) {
			errs["interests"] = "Add at least one interest."
		}
	case StepPhoto:
		if !present(form["photoUrl"]) {
			errs["photoUrl"] = "Profile photo is required."
		}
	case StepLocation:
		if form["locationLat"] == nil || form["locationLng"] == nil {
			errs["location"] = "Location permission required."
		}
	default:
		if !present(form["name"]) {
			errs["name"] = "Name is required."
		}
		email, _ := form["email"].(string)
		if !emailPattern.MatchString(email) {
			errs["email"] = "Valid email is required."
		}
	}
	return errs
}

// present reports whether a form value counts as filled in: not nil, not
// an empty string, list or map, not zero and not false.
func present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0
	case int:
		return val != 0
	case []any:
		return len(val) > 0
	case []string:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	}
	return true
}
