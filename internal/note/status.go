package note

import (
	"encoding/json"
	"fmt"
)

// Stage is one position in a recording's processing lifecycle.
type Stage string

const (
	StageRecorded     Stage = "recorded"
	StageTranscribing Stage = "transcribing"
	StageTranscribed  Stage = "transcribed"
	StageAnalyzing    Stage = "analyzing"
	StageAnalyzed     Stage = "analyzed"
	StageImproving    Stage = "improving"
	StageError        Stage = "error"
)

// Status is the recording lifecycle as a tagged value. ReturnTo is set
// only while improving and names the stage to restore when the
// improvement call completes or fails. Failed is set only on error and
// names the stage whose operation failed.
type Status struct {
	Stage    Stage `json:"stage"`
	ReturnTo Stage `json:"return_to,omitempty"`
	Failed   Stage `json:"failed,omitempty"`
}

// Improving builds the excursion status that remembers where to return.
func Improving(returnTo Stage) Status {
	return Status{Stage: StageImproving, ReturnTo: returnTo}
}

// Failed builds an error status tagging the stage that failed.
func Failed(stage Stage) Status {
	return Status{Stage: StageError, Failed: stage}
}

// ErrBadTransition is returned when an operation is triggered on a
// recording whose current status does not permit it.
type ErrBadTransition struct {
	From, To Status
}

func (e ErrBadTransition) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

func (s Status) String() string {
	switch s.Stage {
	case StageImproving:
		return fmt.Sprintf("improving(return_to=%s)", s.ReturnTo)
	case StageError:
		return fmt.Sprintf("error(failed=%s)", s.Failed)
	default:
		return string(s.Stage)
	}
}

// Transition validates the move from s to next. The forward path is
// recorded -> transcribing -> transcribed -> analyzing -> analyzed. The
// improving excursion is enterable from transcribed or analyzed and must
// return to the stage it left. An error status is re-enterable at the
// stage that failed, so a failed analysis can be retried without
// re-transcribing.
func (s Status) Transition(next Status) error {
	bad := func() error { return ErrBadTransition{From: s, To: next} }

	switch next.Stage {
	case StageTranscribing:
		if s.Stage == StageRecorded || s.retryable(StageTranscribing) {
			return nil
		}
		return bad()
	case StageTranscribed:
		if s.Stage == StageTranscribing || s.restoresTo(StageTranscribed) {
			return nil
		}
		return bad()
	case StageAnalyzing:
		if s.Stage == StageTranscribed || s.Stage == StageAnalyzed || s.retryable(StageAnalyzing) {
			return nil
		}
		return bad()
	case StageAnalyzed:
		if s.Stage == StageAnalyzing || s.restoresTo(StageAnalyzed) {
			return nil
		}
		return bad()
	case StageImproving:
		if s.Stage != StageTranscribed && s.Stage != StageAnalyzed && !s.retryable(StageImproving) {
			return bad()
		}
		if next.ReturnTo != StageTranscribed && next.ReturnTo != StageAnalyzed {
			return bad()
		}
		return nil
	case StageError:
		if next.Failed == "" {
			return bad()
		}
		return nil
	}

	// Only the improving excursion and operation retries move the status
	// backwards; StageRecorded and anything unknown is never a target.
	return bad()
}

func (s Status) retryable(op Stage) bool {
	return s.Stage == StageError && s.Failed == op
}

// restoresTo reports whether s is an improving excursion that returns to
// the given stage, either directly or after a failed improvement.
func (s Status) restoresTo(stage Stage) bool {
	return s.Stage == StageImproving && s.ReturnTo == stage
}

// Restore returns the status the improving excursion must fall back to.
// For any non-improving status it returns the status unchanged.
func (s Status) Restore() Status {
	if s.Stage != StageImproving {
		return s
	}
	return Status{Stage: s.ReturnTo}
}

// MarshalJSON keeps the zero status readable as "recorded".
func (s Status) MarshalJSON() ([]byte, error) {
	type alias Status
	if s.Stage == "" {
		s.Stage = StageRecorded
	}
	return json.Marshal(alias(s))
}
