package game

import "errors"

// Code identifies a rejection reported back to the offending session as
// an error event. The code doubles as the user-visible message.
type Code string

const (
	CodeAuthMissing   Code = "AUTH_MISSING"
	CodeAuthInvalid   Code = "AUTH_INVALID"
	CodeBadRequest    Code = "BAD_REQUEST"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotYourTurn   Code = "NOT_YOUR_TURN"
	CodeRoomFull      Code = "ROOM_FULL"
	CodeSelfJoin      Code = "SELF_JOIN"
	CodeAlreadyActive Code = "ALREADY_ACTIVE"
	CodeInvalidIndex  Code = "INVALID_INDEX"
	CodeInvalidDeck   Code = "INVALID_DECK"
	CodeInternal      Code = "INTERNAL"
)

// Error is a rejection with a stable code. The zero Message falls back
// to the code itself, which matches what clients display.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// E builds an Error from a code.
func E(code Code) *Error {
	return &Error{Code: code}
}

// CodeOf extracts the rejection code from an error, defaulting to
// INTERNAL for anything that is not a game error.
func CodeOf(err error) Code {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return CodeInternal
}
