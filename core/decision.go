package core

// MaxAttempts is the number of challenge rounds allowed per login attempt.
const MaxAttempts = 3

// Decision is the next step chosen for a login attempt.
type Decision string

const (
	DecisionIssueChallenge Decision = "issue_challenge"
	DecisionAccept         Decision = "accept"
	DecisionRetryChallenge Decision = "retry_challenge"
	DecisionReject         Decision = "reject"
)

// Terminal reports whether no further rounds follow d.
func (d Decision) Terminal() bool {
	return d == DecisionAccept || d == DecisionReject
}

// NeedsChallenge reports whether d requires a fresh challenge.
func (d Decision) NeedsChallenge() bool {
	return d == DecisionIssueChallenge || d == DecisionRetryChallenge
}

// Evaluate decides the next step from the transcript alone.
//
// A pending last round counts as a failed one: its challenge is never
// re-offered, so the attempt either gets a fresh challenge or is locked out.
// A last round of an unknown kind is rejected outright.
func Evaluate(t Transcript) Decision {
	last, ok := t.Last()
	if !ok {
		return DecisionIssueChallenge
	}

	if last.Kind != KindSignatureChallenge {
		return DecisionReject
	}

	if last.Outcome == OutcomePassed {
		return DecisionAccept
	}

	if t.Attempts() >= MaxAttempts {
		return DecisionReject
	}

	return DecisionRetryChallenge
}
