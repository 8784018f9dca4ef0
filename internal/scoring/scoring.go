// Package scoring implements rule-based lead scoring over intake data.
// Automated screening only, not legal advice.
package scoring

import (
	"time"

	"github.com/payrollcheck/payrollcheck-backend/internal/models"
)

// Result is a computed lead score with the rule flags that contributed
type Result struct {
	Score int              `json:"score"`
	Flags models.LeadFlags `json:"flags"`
}

// ComputeScore scores a lead 0-100 from its intake answers
func ComputeScore(lead *models.Lead) Result {
	return computeScoreAt(lead, time.Now())
}

func computeScoreAt(lead *models.Lead, now time.Time) Result {
	score := 0
	var flags models.LeadFlags

	// +25: no pension provided
	if lead.PensionProvided == "no" {
		score += 25
		flags.NoPension = true
	}

	// +25: unpaid overtime with an hours estimate
	if lead.PaidOvertime == "no" && lead.OvertimeHoursEstimate != "" {
		score += 25
		flags.UnpaidOvertime = true
	}

	// +10: no travel reimbursement
	if lead.TravelReimbursement == "no" {
		score += 10
		flags.NoTravel = true
	}

	// +10: vacation balance issue
	if lead.VacationBalanceIssue == "yes" {
		score += 10
		flags.VacationIssue = true
	}

	// +10: sick days issue
	if lead.SickDaysIssue == "yes" {
		score += 10
		flags.SickDaysIssue = true
	}

	// +10: fired or laid off
	if lead.TerminationType == "fired" || lead.TerminationType == "laid_off" {
		score += 10
		flags.TerminationFlag = true
	}

	// +5: still employed, or employment ended within the last 12 months
	if lead.StillEmployed {
		score += 5
		flags.RecentEmployment = true
	} else if lead.EndDate != "" {
		if endDate, err := time.Parse("2006-01-02", lead.EndDate); err == nil {
			if !endDate.Before(now.AddDate(-1, 0, 0)) {
				score += 5
				flags.RecentEmployment = true
			}
		}
	}

	if score > 100 {
		score = 100
	}
	return Result{Score: score, Flags: flags}
}
