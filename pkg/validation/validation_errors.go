package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldLabels maps struct field names to user-facing labels
var FieldLabels = map[string]string{
	// Analysis
	"JobDescription":    "Job description",
	"Context":           "Additional context",
	"AdditionalContext": "Additional context",
	"JobPostingHTML":    "Job posting",
	"TargetCompanies":   "Target companies",
	"ProductTypes":      "Product types",
	"Message":           "Message",
	"EligibilityLevel":  "Eligibility level",

	// Auth
	"Email":           "Email",
	"Password":        "Password",
	"PasswordConfirm": "Password confirmation",
	"Username":        "Username",
	"FirstName":       "First name",
	"LastName":        "Last name",

	// Profile
	"Bio":               "Bio",
	"CurrentTitle":      "Current title",
	"CurrentCompany":    "Current company",
	"YearsOfExperience": "Years of experience",
	"LinkedInURL":       "LinkedIn URL",
	"GithubURL":         "GitHub URL",
	"PortfolioURL":      "Portfolio URL",
	"TwitterURL":        "Twitter URL",
	"CareerGoal":        "Career goal",
	"TargetRoles":       "Target roles",

	// Sections
	"Institution":         "Institution",
	"DegreeLevel":         "Degree level",
	"FieldOfStudy":        "Field of study",
	"StartDate":           "Start date",
	"EndDate":             "End date",
	"JobTitle":            "Job title",
	"EmploymentType":      "Employment type",
	"ProjectType":         "Project type",
	"TechnologiesUsed":    "Technologies used",
	"ProjectURL":          "Project URL",
	"DemoURL":             "Demo URL",
	"IssuingOrganization": "Issuing organization",
	"CredentialID":        "Credential ID",
	"CredentialURL":       "Credential URL",
	"IssueDate":           "Issue date",
	"ExpiryDate":          "Expiry date",
	"SkillID":             "Skill",
	"ProficiencyLevel":    "Proficiency level",
}

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages
func FormatValidationErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleError(e))
	}
	return messages
}

func formatSingleError(e validator.FieldError) string {
	label := getFieldLabel(e.Field())
	param := e.Param()

	switch e.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s: This field is required", label)

	case "min":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s: Must be at least %s characters", label, param)
		}
		if e.Kind().String() == "slice" {
			return fmt.Sprintf("%s: Must contain at least %s items", label, param)
		}
		return fmt.Sprintf("%s: Must be at least %s", label, param)

	case "max":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s: Must be at most %s characters", label, param)
		}
		if e.Kind().String() == "slice" {
			return fmt.Sprintf("%s: Must contain at most %s items", label, param)
		}
		return fmt.Sprintf("%s: Must be at most %s", label, param)

	case "gt", "gte":
		return fmt.Sprintf("%s: Must be greater than %s", label, comparisonBound(param, e.Tag()))

	case "lte", "lt":
		return fmt.Sprintf("%s: Must not exceed %s", label, param)

	case "oneof":
		return fmt.Sprintf("%s: Must be one of: %s", label, formatOneOfOptions(param))

	case "email":
		return fmt.Sprintf("%s: Invalid email address", label)

	case "url":
		return fmt.Sprintf("%s: Invalid URL", label)

	case "iso_date":
		return fmt.Sprintf("%s: Must be a date in YYYY-MM-DD format", label)

	case "date_after":
		return fmt.Sprintf("%s: Must not be before %s", label, strings.ToLower(getFieldLabel(param)))

	case "valid_name":
		return fmt.Sprintf("%s: Only letters, spaces and common punctuation are allowed", label)

	case "no_emoji":
		return fmt.Sprintf("%s: Must not contain emoji or special symbols", label)

	case "eqfield":
		return fmt.Sprintf("%s: Must match %s", label, strings.ToLower(getFieldLabel(param)))

	default:
		return fmt.Sprintf("%s: Failed validation (%s)", label, e.Tag())
	}
}

func comparisonBound(param, tag string) string {
	if tag == "gte" {
		return "or equal to " + param
	}
	return param
}

func getFieldLabel(fieldName string) string {
	if label, ok := FieldLabels[fieldName]; ok {
		return label
	}
	return formatCamelCase(fieldName)
}

// formatCamelCase converts CamelCase to spaced words
func formatCamelCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune(' ')
		}
		result.WriteRune(r)
	}
	return result.String()
}

// formatOneOfOptions renders "FULL_TIME PART_TIME" as "Full time, Part time"
func formatOneOfOptions(param string) string {
	options := strings.Fields(param)
	for i, opt := range options {
		words := strings.ToLower(strings.ReplaceAll(opt, "_", " "))
		if words != "" {
			words = strings.ToUpper(words[:1]) + words[1:]
		}
		options[i] = words
	}
	return strings.Join(options, ", ")
}
