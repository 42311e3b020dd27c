package errors

import "errors"

// Game engine errors. These reject a single action and never mutate state.
var (
	ErrNotYourTurn        = errors.New("not your turn")
	ErrMatchAlreadyOver   = errors.New("match already over")
	ErrCardNotInHand      = errors.New("card not in hand")
	ErrBidAlreadyPending  = errors.New("truco bid already pending")
	ErrBidLimitReached    = errors.New("truco bid limit reached")
	ErrNoBidPending       = errors.New("no truco bid pending")
	ErrWrongTeam          = errors.New("wrong team for this answer")
	ErrCannotRaiseFurther = errors.New("cannot raise beyond the last stake")
)

// Room / session errors.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room full")
	ErrRoomNotReady    = errors.New("room not ready")
	ErrNotSeated       = errors.New("not seated in this room")
	ErrMatchInProgress = errors.New("match in progress")
)

// Account errors.
var (
	ErrInvalidNickname    = errors.New("invalid nickname")
	ErrInvalidPin         = errors.New("invalid pin")
	ErrUserBanned         = errors.New("user banned")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Rate limiting.
var (
	ErrTooManyActions = errors.New("too many actions")
)
