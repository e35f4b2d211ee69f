package entity

import "errors"

// ChatStatus is the lifecycle state of an inquiry chat session.
type ChatStatus string

const (
	StatusWaiting   ChatStatus = "waiting"
	StatusActive    ChatStatus = "active"
	StatusCompleted ChatStatus = "completed"
	StatusCancelled ChatStatus = "cancelled"
)

// ErrInvalidTransition is returned when a status change is not allowed from the current state.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrUnknownStatus is returned for a status value outside the enum.
var ErrUnknownStatus = errors.New("unknown chat status")

// chatTransitions lists the allowed destinations per state. Terminal states have none.
var chatTransitions = map[ChatStatus][]ChatStatus{
	StatusWaiting:   {StatusActive, StatusCancelled},
	StatusActive:    {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

func ParseChatStatus(s string) (ChatStatus, error) {
	status := ChatStatus(s)
	if !status.Valid() {
		return "", ErrUnknownStatus
	}
	return status, nil
}

func (s ChatStatus) Valid() bool {
	_, ok := chatTransitions[s]
	return ok
}

func (s ChatStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s ChatStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether target is a legal next state.
func (s ChatStatus) CanTransitionTo(target ChatStatus) bool {
	for _, t := range chatTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionTo returns target if the move is legal, otherwise the current
// status and ErrInvalidTransition.
func (s ChatStatus) TransitionTo(target ChatStatus) (ChatStatus, error) {
	if !target.Valid() {
		return s, ErrUnknownStatus
	}
	if !s.CanTransitionTo(target) {
		return s, ErrInvalidTransition
	}
	return target, nil
}
