package domain

import "strings"

// ApplicationStatus is the lifecycle state of an admission application
type ApplicationStatus string

const (
	StatusDraft                 ApplicationStatus = "draft"
	StatusSubmitted             ApplicationStatus = "submitted"
	StatusUnderReview           ApplicationStatus = "under_review"
	StatusDocumentVerification  ApplicationStatus = "document_verification"
	StatusProvisionallySelected ApplicationStatus = "provisionally_selected"
	StatusEnrollmentCompleted   ApplicationStatus = "enrollment_completed"
	StatusRejected              ApplicationStatus = "rejected"
	StatusCancelled             ApplicationStatus = "cancelled"
	StatusWaitlisted            ApplicationStatus = "waitlisted"
)

// AllStatuses lists every known status in workflow order
var AllStatuses = []ApplicationStatus{
	StatusDraft,
	StatusSubmitted,
	StatusUnderReview,
	StatusDocumentVerification,
	StatusProvisionallySelected,
	StatusEnrollmentCompleted,
	StatusRejected,
	StatusCancelled,
	StatusWaitlisted,
}

// ParseStatus normalizes and validates a status string
func ParseStatus(s string) (ApplicationStatus, error) {
	status := ApplicationStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// IsValid reports whether s is one of the known statuses
func (s ApplicationStatus) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsInitial reports whether an application may be created in this status
func (s ApplicationStatus) IsInitial() bool {
	return s == StatusDraft || s == StatusSubmitted
}

// Label returns a human readable name used in notifications
func (s ApplicationStatus) Label() string {
	words := strings.Split(string(s), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Transition policy names
const (
	PolicyPermissive = "permissive"
	PolicyStrict     = "strict"
)

// TransitionPolicy is the table of allowed status transitions.
// A missing source status means nothing may leave it.
type TransitionPolicy struct {
	name    string
	allowed map[ApplicationStatus]map[ApplicationStatus]bool
}

// NewTransitionPolicy builds a policy from an explicit table
func NewTransitionPolicy(name string, table map[ApplicationStatus][]ApplicationStatus) *TransitionPolicy {
	allowed := make(map[ApplicationStatus]map[ApplicationStatus]bool, len(table))
	for from, targets := range table {
		set := make(map[ApplicationStatus]bool, len(targets))
		for _, to := range targets {
			set[to] = true
		}
		allowed[from] = set
	}
	return &TransitionPolicy{name: name, allowed: allowed}
}

// PermissivePolicy lets a reviewer move any status to any other status
func PermissivePolicy() *TransitionPolicy {
	table := make(map[ApplicationStatus][]ApplicationStatus, len(AllStatuses))
	for _, from := range AllStatuses {
		table[from] = AllStatuses
	}
	return NewTransitionPolicy(PolicyPermissive, table)
}

// StrictPolicy follows the forward review flow. Enrollment, rejection and
// cancellation are terminal. Repeating the current status is always allowed.
func StrictPolicy() *TransitionPolicy {
	return NewTransitionPolicy(PolicyStrict, map[ApplicationStatus][]ApplicationStatus{
		StatusDraft:                 {StatusDraft, StatusSubmitted, StatusCancelled},
		StatusSubmitted:             {StatusSubmitted, StatusUnderReview, StatusRejected, StatusCancelled},
		StatusUnderReview:           {StatusUnderReview, StatusDocumentVerification, StatusWaitlisted, StatusRejected, StatusCancelled},
		StatusDocumentVerification:  {StatusDocumentVerification, StatusUnderReview, StatusProvisionallySelected, StatusWaitlisted, StatusRejected, StatusCancelled},
		StatusWaitlisted:            {StatusWaitlisted, StatusProvisionallySelected, StatusRejected, StatusCancelled},
		StatusProvisionallySelected: {StatusProvisionallySelected, StatusEnrollmentCompleted, StatusRejected, StatusCancelled},
		StatusEnrollmentCompleted:   {StatusEnrollmentCompleted},
		StatusRejected:              {StatusRejected},
		StatusCancelled:             {StatusCancelled},
	})
}

// PolicyByName returns the preset with the given name, defaulting to permissive
func PolicyByName(name string) *TransitionPolicy {
	if strings.EqualFold(strings.TrimSpace(name), PolicyStrict) {
		return StrictPolicy()
	}
	return PermissivePolicy()
}

// Name returns the preset name
func (p *TransitionPolicy) Name() string {
	return p.name
}

// Allows reports whether from -> to is a legal transition
func (p *TransitionPolicy) Allows(from, to ApplicationStatus) bool {
	targets, ok := p.allowed[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Check returns a validation error when from -> to is not allowed
func (p *TransitionPolicy) Check(from, to ApplicationStatus) error {
	if !to.IsValid() {
		return NewValidationError(ErrInvalidStatus.Error(), map[string]string{"status": "unknown status " + string(to)})
	}
	if !p.Allows(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// TransitionError reports a transition rejected by the policy
type TransitionError struct {
	From ApplicationStatus
	To   ApplicationStatus
}

func (e *TransitionError) Error() string {
	return "status transition not allowed: " + string(e.From) + " -> " + string(e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition || target == ErrValidation
}
