// Package ai implements the case-assistant pipeline: the deterministic
// missing-fields engine, prompt assembly with token budgeting, strict
// output validation and the analysis orchestrator.
package ai

import (
	"sort"
	"strings"

	"github.com/payrollcheck/payrollcheck-backend/internal/models"
)

// Case type labels. Hebrew values match the staff-facing vocabulary.
const (
	CaseTypeDismissal   = "פיטורים"
	CaseTypeResignation = "התפטרות"
	CaseTypeUnpaidWages = "אי_תשלום_שכר"
	CaseTypeOvertime    = "שעות_נוספות"
	CaseTypeGeneral     = "general"
)

// defaultPriority sorts required fields without an explicit priority last
const defaultPriority = 99

// unknownSentinels are placeholder values that do not count as known facts
var unknownSentinels = map[string]struct{}{
	"unknown": {},
	"לא ידוע": {},
}

// isKnownValue reports whether a fact value counts as known: not nil, not
// the empty string and not one of the unknown sentinels.
func isKnownValue(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		if v == "" {
			return false
		}
		_, sentinel := unknownSentinels[v]
		return !sentinel
	default:
		return true
	}
}

// ExtractFactsFromLead maps lead record fields onto canonical known-fact
// keys. Only non-empty source values produce an entry; empty values are
// omitted entirely, never emitted as nil.
func ExtractFactsFromLead(lead *models.Lead) map[string]interface{} {
	facts := make(map[string]interface{})

	if lead.StartDate != "" {
		facts["employment_start_date"] = lead.StartDate
	}
	if lead.EndDate != "" {
		facts["employment_end_date"] = lead.EndDate
	}
	if lead.AvgMonthlySalary != 0 {
		facts["last_salary"] = lead.AvgMonthlySalary
		facts["base_salary"] = lead.AvgMonthlySalary
		facts["agreed_salary"] = lead.AvgMonthlySalary
	}
	if lead.EmployerName != "" {
		facts["employer_name"] = lead.EmployerName
	}
	facts["still_employed"] = lead.StillEmployed
	if lead.TerminationType != "" {
		facts["termination_reason"] = lead.TerminationType
	}
	if lead.PensionProvided != "" {
		facts["pension_status"] = lead.PensionProvided
	}
	if lead.VacationBalanceIssue != "" {
		facts["vacation_balance"] = lead.VacationBalanceIssue
	}
	if lead.PaidOvertime != "" {
		facts["overtime_paid"] = lead.PaidOvertime
	}
	if lead.OvertimeHoursEstimate != "" {
		facts["overtime_hours_monthly"] = lead.OvertimeHoursEstimate
	}
	if lead.AttendanceTracking != "" {
		facts["attendance_records"] = lead.AttendanceTracking
	}
	if lead.ReasonForCheck != "" {
		facts["main_issue"] = lead.ReasonForCheck
	}

	return facts
}

// InferCaseType derives the case type from lead attributes using first-match
// priority. Free-text matching is case-insensitive substring matching
// against a fixed vocabulary.
func InferCaseType(lead *models.Lead) string {
	termType := strings.ToLower(lead.TerminationType)
	reason := strings.ToLower(lead.ReasonForCheck)

	if termType == "fired" || termType == "laid_off" || strings.Contains(reason, "פיטור") {
		return CaseTypeDismissal
	}
	if termType == "resigned" || strings.Contains(reason, "התפטר") {
		return CaseTypeResignation
	}
	if strings.Contains(reason, "שכר") &&
		(strings.Contains(reason, "תשלום") || strings.Contains(reason, "לא שולם")) {
		return CaseTypeUnpaidWages
	}
	if strings.Contains(reason, "שעות נוספות") || lead.PaidOvertime == "no" {
		return CaseTypeOvertime
	}

	return CaseTypeGeneral
}

// ComputeMissingFields computes which required fields are still missing
// given the known facts. Purely rule-based, no I/O. The result is sorted
// ascending by priority (fields without a priority sort last), ties broken
// by original schedule order.
func ComputeMissingFields(requiredFields []models.RequiredField, knownFacts map[string]interface{}) []models.RequiredField {
	missing := make([]models.RequiredField, 0, len(requiredFields))

	for _, field := range requiredFields {
		value, present := knownFacts[field.Key]
		if !present || !isKnownValue(value) {
			missing = append(missing, field)
		}
	}

	sort.SliceStable(missing, func(i, j int) bool {
		return fieldPriority(missing[i]) < fieldPriority(missing[j])
	})

	return missing
}

func fieldPriority(f models.RequiredField) int {
	if f.Priority == nil {
		return defaultPriority
	}
	return *f.Priority
}

// MergeKnownFacts merges newly extracted facts into the existing known
// facts. Empty new values are skipped; an existing value is overwritten only
// when it is itself empty or an unknown sentinel. A genuinely known existing
// value is never replaced — the first confident value wins.
func MergeKnownFacts(existing, extracted map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(existing)+len(extracted))
	for k, v := range existing {
		merged[k] = v
	}

	for key, newValue := range extracted {
		if newValue == nil {
			continue
		}
		if s, ok := newValue.(string); ok && s == "" {
			continue
		}

		if existingValue, present := merged[key]; !present || !isKnownValue(existingValue) {
			merged[key] = newValue
		}
	}

	return merged
}

// ComputeConfidence derives a 0-100 confidence score: the share of required
// fields whose value is known, clamped.
func ComputeConfidence(requiredFields []models.RequiredField, knownFacts map[string]interface{}) int {
	total := len(requiredFields)
	if total == 0 {
		return 0
	}

	known := 0
	for _, field := range requiredFields {
		if value, present := knownFacts[field.Key]; present && isKnownValue(value) {
			known++
		}
	}

	score := int(float64(known)/float64(total)*100 + 0.5)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
