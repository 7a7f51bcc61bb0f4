package core

import (
	"bytes"
	"fmt"
)

// RoundKind tags the type of challenge a round carried.
type RoundKind string

// KindSignatureChallenge is the only round kind this service issues.
const KindSignatureChallenge RoundKind = "SIGNATURE_CHALLENGE"

// Outcome is the result of one challenge round.
type Outcome uint8

const (
	OutcomePending Outcome = iota
	OutcomeFailed
	OutcomePassed
)

// OutcomeOf converts a verification result into an Outcome.
func OutcomeOf(verified bool) Outcome {
	if verified {
		return OutcomePassed
	}
	return OutcomeFailed
}

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "true"
	case OutcomeFailed:
		return "false"
	default:
		return "pending"
	}
}

// MarshalJSON encodes resolved outcomes as booleans and pending as "pending".
func (o Outcome) MarshalJSON() ([]byte, error) {
	switch o {
	case OutcomePassed:
		return []byte("true"), nil
	case OutcomeFailed:
		return []byte("false"), nil
	default:
		return []byte(`"pending"`), nil
	}
}

// UnmarshalJSON accepts true, false, "pending" and null.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*o = OutcomePassed
	case "false":
		*o = OutcomeFailed
	case `"pending"`, "null":
		*o = OutcomePending
	default:
		return fmt.Errorf("invalid round outcome %s", data)
	}
	return nil
}

// Round is one row of a session transcript.
type Round struct {
	Kind    RoundKind `json:"kind"`
	Outcome Outcome   `json:"outcome"`
}

// Transcript is the ordered round history of one login attempt, oldest first.
type Transcript []Round

// Last returns the most recent round.
func (t Transcript) Last() (Round, bool) {
	if len(t) == 0 {
		return Round{}, false
	}
	return t[len(t)-1], true
}

// Append returns a copy of t with r added at the end.
func (t Transcript) Append(r Round) Transcript {
	out := make(Transcript, len(t), len(t)+1)
	copy(out, t)
	return append(out, r)
}

// Resolve returns a copy of t with the trailing pending round set to outcome.
// If the last round is not pending a resolved round is appended instead.
func (t Transcript) Resolve(outcome Outcome) Transcript {
	last, ok := t.Last()
	if !ok || last.Outcome != OutcomePending {
		return t.Append(Round{Kind: KindSignatureChallenge, Outcome: outcome})
	}
	out := make(Transcript, len(t))
	copy(out, t)
	out[len(out)-1].Outcome = outcome
	return out
}

// Attempts counts signature challenge rounds.
func (t Transcript) Attempts() int {
	n := 0
	for _, r := range t {
		if r.Kind == KindSignatureChallenge {
			n++
		}
	}
	return n
}
