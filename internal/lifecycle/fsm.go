package lifecycle

import "welfare-workers/internal/models"

var transitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.StatusPending:     {models.StatusUnderReview},
	models.StatusUnderReview: {models.StatusApproved, models.StatusRejected},
	models.StatusApproved:    {},
	models.StatusRejected:    {},
}

// Allowed returns the legal destinations from a status. Terminal and unknown
// statuses have none.
func Allowed(from models.ApplicationStatus) []models.ApplicationStatus {
	return append([]models.ApplicationStatus{}, transitions[from]...)
}

func CanTransition(from, to models.ApplicationStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminal(s models.ApplicationStatus) bool {
	next, known := transitions[s]
	return known && len(next) == 0
}

func ValidStatus(s models.ApplicationStatus) bool {
	_, ok := transitions[s]
	return ok
}

func allowedStrings(from models.ApplicationStatus) []string {
	next := transitions[from]
	out := make([]string, len(next))
	for i, s := range next {
		out[i] = string(s)
	}
	return out
}
