package dispatch

// Kind is one of the short error-kind tags the dispatcher surfaces in
// details.error, per spec §7. These are string tags, not exceptions: most
// dispatcher failures are expected, recoverable conditions rather than
// programming errors.
type Kind string

const (
	KindNotRegistered Kind = "not_registered"
	KindInvalidName   Kind = "invalid_name"
	KindNameTaken     Kind = "name_taken"
	KindRaceLost      Kind = "race_lost"
	KindSameName      Kind = "same_name"

	KindNoRecipients       Kind = "no_recipients"
	KindEmptyRecipients    Kind = "empty_recipients"
	KindMissingMessage     Kind = "missing_message"
	KindMissingRecipient   Kind = "missing_recipient"
	KindCannotSendToSelf   Kind = "cannot_send_to_self"
	KindRecipientNotFound  Kind = "recipient_not_found"
	KindRecipientNotActive Kind = "recipient_not_active"

	KindEmptyPatterns Kind = "empty_patterns"
	KindMissingPaths  Kind = "missing_paths"

	KindNoSpec      Kind = "no_spec"
	KindSpecMissing Kind = "spec_missing"

	KindAlreadyHaveClaim Kind = "already_have_claim"
	KindAlreadyClaimed   Kind = "already_claimed"
	KindNotClaimed       Kind = "not_claimed"
	KindNotYourClaim     Kind = "not_your_claim"
	KindAlreadyCompleted Kind = "already_completed"

	KindMissingID      Kind = "missing_id"
	KindMissingTitle   Kind = "missing_title"
	KindMissingContent Kind = "missing_content"
	KindNotFound       Kind = "not_found"

	KindIncompleteTasks    Kind = "incomplete_tasks"
	KindCircularDependency Kind = "circular_dependency"
	KindOrphanDependency   Kind = "orphan_dependency"

	KindLockTimeout    Kind = "lock_timeout"
	KindCancelled      Kind = "cancelled"
	KindNoScouts       Kind = "no_scouts"
	KindNoAnalyst      Kind = "no_analyst"
	KindGeneratorFailed Kind = "generator_failed"
	KindAnalystFailed  Kind = "analyst_failed"

	KindUnknownAction    Kind = "unknown_action"
	KindUnknownOperation Kind = "unknown_operation"
)

// CoreError is the dispatcher's internal error type: a short kind tag plus
// an optional wrapped cause. Handlers return these for the conditions
// that carry a details.error tag; an error from a lower layer that is
// passed through unwrapped is tagged unknown_action by errResult.
// Details, when set, is merged into the result's
// details map alongside mode/error — e.g. claim's conflict.agent and
// existing.taskId (spec §8 S2/S3).
type CoreError struct {
	Kind    Kind
	Err     error
	Details map[string]any
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind)
}

func (e *CoreError) Unwrap() error { return e.Err }

// errKind wraps an error with a kind tag.
func errKind(kind Kind, err error) *CoreError {
	return &CoreError{Kind: kind, Err: err}
}

// errOf is errKind with no wrapped cause, for conditions the dispatcher
// itself detects rather than propagates from a lower layer.
func errOf(kind Kind) *CoreError {
	return &CoreError{Kind: kind}
}

// errKindDetails is errKind with extra structured details merged into the
// result alongside mode/error.
func errKindDetails(kind Kind, err error, details map[string]any) *CoreError {
	return &CoreError{Kind: kind, Err: err, Details: details}
}
