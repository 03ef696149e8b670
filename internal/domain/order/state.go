package order

// OrderState implements the state pattern for order lifecycle transitions.
//
//	CREATED --paid--> PAID
//	CREATED --cancel--> CANCELLED
//	PAID --cancel--> CANCELLED
//
// CANCELLED is terminal.
type OrderState interface {
	Status() Status
	OnPaid(o *Order) (OrderState, error)
	OnCancelled(o *Order) (OrderState, error)
}

func stateFor(s Status) (OrderState, error) {
	switch s {
	case StatusCreated:
		return createdState{}, nil
	case StatusPaid:
		return paidState{}, nil
	case StatusCancelled:
		return cancelledState{}, nil
	}
	return nil, ErrInvalidStateTransition
}

type createdState struct{}

func (createdState) Status() Status { return StatusCreated }

func (createdState) OnPaid(*Order) (OrderState, error) {
	return paidState{}, nil
}

func (createdState) OnCancelled(*Order) (OrderState, error) {
	return cancelledState{}, nil
}

type paidState struct{}

func (paidState) Status() Status { return StatusPaid }

// OnPaid is idempotent so duplicate gateway notifications are harmless.
func (paidState) OnPaid(*Order) (OrderState, error) {
	return paidState{}, nil
}

func (paidState) OnCancelled(*Order) (OrderState, error) {
	return cancelledState{}, nil
}

type cancelledState struct{}

func (cancelledState) Status() Status { return StatusCancelled }

func (cancelledState) OnPaid(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (cancelledState) OnCancelled(*Order) (OrderState, error) {
	return nil, ErrAlreadyCancelled
}
