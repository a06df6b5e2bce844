package auth

// Typed outcome enumerations for the credential flows. Each operation has
// its own closed set so callers branch on constants, not on magic
// strings.

// ResetRequestOutcome reports SendResetPasswordCode.
type ResetRequestOutcome int

const (
	ResetRequestSent ResetRequestOutcome = iota
	ResetRequestNotFound
	ResetRequestUpdateFailed
	ResetRequestFailed
)

func (o ResetRequestOutcome) String() string {
	switch o {
	case ResetRequestSent:
		return "Sent"
	case ResetRequestNotFound:
		return "NotFound"
	case ResetRequestUpdateFailed:
		return "UpdateFailed"
	case ResetRequestFailed:
		return "Failed"
	}
	return "Unknown"
}

// ConfirmCodeOutcome reports ConfirmResetPassword.
type ConfirmCodeOutcome int

const (
	ConfirmCodeMatched ConfirmCodeOutcome = iota
	ConfirmCodeMismatched
	ConfirmCodeNotFound
)

func (o ConfirmCodeOutcome) String() string {
	switch o {
	case ConfirmCodeMatched:
		return "Matched"
	case ConfirmCodeMismatched:
		return "Mismatched"
	case ConfirmCodeNotFound:
		return "NotFound"
	}
	return "Unknown"
}

// ResetPasswordOutcome reports ResetPassword.
type ResetPasswordOutcome int

const (
	ResetPasswordSuccess ResetPasswordOutcome = iota
	ResetPasswordNotFound
	ResetPasswordFailed
)

func (o ResetPasswordOutcome) String() string {
	switch o {
	case ResetPasswordSuccess:
		return "Success"
	case ResetPasswordNotFound:
		return "NotFound"
	case ResetPasswordFailed:
		return "Failed"
	}
	return "Unknown"
}

// ConfirmEmailOutcome reports ConfirmEmail.
type ConfirmEmailOutcome int

const (
	ConfirmEmailSuccess ConfirmEmailOutcome = iota
	ConfirmEmailError
)

func (o ConfirmEmailOutcome) String() string {
	switch o {
	case ConfirmEmailSuccess:
		return "Success"
	case ConfirmEmailError:
		return "ErrorWhenConfirmEmail"
	}
	return "Unknown"
}
