package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"campus-admissions/internal/core/domain"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ApplicationFields are the applicant-supplied fields of an application
type ApplicationFields struct {
	FullName          string     `json:"full_name" validate:"required,max=150"`
	DateOfBirth       *time.Time `json:"date_of_birth"`
	Gender            string     `json:"gender" validate:"omitempty,oneof=male female other"`
	Nationality       string     `json:"nationality" validate:"max=50"`
	CitizenshipNumber string     `json:"citizenship_number" validate:"max=50"`
	Email             string     `json:"email" validate:"omitempty,email,max=100"`
	Phone             string     `json:"phone" validate:"max=20"`
	PermanentAddress  string     `json:"permanent_address"`
	TemporaryAddress  string     `json:"temporary_address"`
	FatherName        string     `json:"father_name" validate:"max=150"`
	MotherName        string     `json:"mother_name" validate:"max=150"`
	GuardianName      string     `json:"guardian_name" validate:"max=150"`
	GuardianRelation  string     `json:"guardian_relation" validate:"max=50"`
	GuardianPhone     string     `json:"guardian_phone" validate:"max=20"`
	ProgramApplied    string     `json:"program_applied" validate:"required,max=100"`
	PreferredShift    string     `json:"preferred_shift" validate:"omitempty,oneof=morning day evening"`
	DeclarationAgreed bool       `json:"declaration_agreed"`
}

// EducationInput is one education record as supplied by a caller
type EducationInput struct {
	Level       string  `json:"level" validate:"required,max=50"`
	Institution string  `json:"institution" validate:"required,max=200"`
	Board       string  `json:"board" validate:"max=100"`
	PassedYear  int     `json:"passed_year" validate:"omitempty,min=1950,max=2100"`
	Score       float64 `json:"score" validate:"gte=0,lte=9999"`
	ScoreType   string  `json:"score_type" validate:"omitempty,oneof=percentage gpa cgpa grade"`
}

// CreateApplicationInput is everything Create needs
type CreateApplicationInput struct {
	ApplicationFields
	Status           domain.ApplicationStatus       `json:"status"`
	EducationRecords []EducationInput               `json:"education_records" validate:"dive"`
	Documents        map[domain.DocumentType]string `json:"-"`
}

// UpdateApplicationInput replaces the mutable fields; a nil EducationRecords
// leaves the existing records untouched
type UpdateApplicationInput struct {
	ApplicationFields
	EducationRecords *[]EducationInput `json:"education_records"`
}

// ChangeStatusInput is a reviewer status change
type ChangeStatusInput struct {
	Status domain.ApplicationStatus `json:"status"`
	Reason string                   `json:"reason" validate:"max=2000"`
	Notes  string                   `json:"notes" validate:"max=2000"`
}

func validateCreate(input *CreateApplicationInput) error {
	fields := map[string]string{}
	collectErrors(validate.Struct(input), fields)

	if !input.Status.IsInitial() {
		fields["status"] = "must be draft or submitted"
	}
	if input.Status == domain.StatusSubmitted && !input.DeclarationAgreed {
		fields["declaration_agreed"] = "must be accepted before submitting"
	}
	for docType, path := range input.Documents {
		if !docType.IsKnown() {
			fields["documents."+string(docType)] = "unknown document type"
		} else if strings.TrimSpace(path) == "" {
			fields["documents."+string(docType)] = "file path is empty"
		}
	}
	return asValidationError(fields)
}

func validateUpdate(input *UpdateApplicationInput) error {
	fields := map[string]string{}
	collectErrors(validate.Struct(&input.ApplicationFields), fields)
	if input.EducationRecords != nil {
		for i := range *input.EducationRecords {
			nested := map[string]string{}
			collectErrors(validate.Struct(&(*input.EducationRecords)[i]), nested)
			for k, v := range nested {
				fields[fmt.Sprintf("education_records[%d].%s", i, k)] = v
			}
		}
	}
	return asValidationError(fields)
}

func validateStatusChange(input *ChangeStatusInput) error {
	fields := map[string]string{}
	collectErrors(validate.Struct(input), fields)
	if !input.Status.IsValid() {
		fields["status"] = "unknown status"
	}
	return asValidationError(fields)
}

func collectErrors(err error, fields map[string]string) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["_"] = err.Error()
		return
	}
	for _, e := range verrs {
		fields[fieldPath(e.Namespace())] = describe(e)
	}
}

// fieldPath drops the root struct name and embedded struct names from a namespace
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	out := parts[:0]
	for i, p := range parts {
		if i == 0 || p == "ApplicationFields" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return ns
	}
	return strings.Join(out, ".")
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "max":
		return "must be at most " + e.Param()
	case "min":
		return "must be at least " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}

func asValidationError(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return domain.NewValidationError("invalid application input", fields)
}
