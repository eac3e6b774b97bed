package progress

// RequiredSessions is the number of counted guidance sessions needed with each supervisor.
const RequiredSessions = 10

type (
	// Session is one logged guidance meeting, reduced to what eligibility needs.
	// Approved is false for sessions the supervisor flagged for revision.
	Session struct {
		SupervisorID string
		Attended     bool
		Approved     bool
	}

	// Supervisors of one proposal.
	Supervisors struct {
		Primary   string
		Secondary string
	}

	// SeminarApproval holds the independent approval flags of a seminar request.
	SeminarApproval struct {
		Primary   bool
		Secondary bool
	}

	// Tally counts the sessions that count toward eligibility, per supervisor.
	Tally struct {
		Primary   int `json:"primary"`
		Secondary int `json:"secondary"`
	}
)

func (sup Supervisors) Valid() bool {
	return sup.Primary != "" && sup.Secondary != "" && sup.Primary != sup.Secondary
}

// Counts reports whether the session counts toward the threshold.
func (s Session) Counts() bool {
	return s.Attended && s.Approved
}

// CountSessions tallies the counted sessions of each supervisor; sessions with anyone else are ignored.
func CountSessions(sessions []Session, sup Supervisors) Tally {
	var t Tally
	for _, s := range sessions {
		if !s.Counts() {
			continue
		}
		switch s.SupervisorID {
		case "":
			// unassigned
		case sup.Primary:
			t.Primary++
		case sup.Secondary:
			t.Secondary++
		}
	}
	return t
}

// Complete reports whether both supervisors reached RequiredSessions.
func (t Tally) Complete() bool {
	return t.Primary >= RequiredSessions && t.Secondary >= RequiredSessions
}

// Approved reports whether both supervisors approved; a missing request is not approved.
func (a *SeminarApproval) Approved() bool {
	return a != nil && a.Primary && a.Secondary
}

// IsEligible is the seminar eligibility gate: enough sessions with both supervisors and both approvals.
func IsEligible(t Tally, req *SeminarApproval) bool {
	return t.Complete() && req.Approved()
}

// ComputeEligibility derives the eligibility flag of a Snapshot from raw guidance sessions.
func ComputeEligibility(sessions []Session, sup Supervisors, req *SeminarApproval) bool {
	if !sup.Valid() {
		return false
	}
	return IsEligible(CountSessions(sessions, sup), req)
}
