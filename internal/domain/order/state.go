package order

// OrderState implements the state pattern for order lifecycle transitions.
type OrderState interface {
	Status() Status
	OnPaymentCompleted() (OrderState, error)
	OnShipped() (OrderState, error)
	OnDelivered() (OrderState, error)
	OnCancelled() (OrderState, error)
}

func stateFor(s Status) OrderState {
	switch s {
	case StatusPending:
		return pendingState{}
	case StatusProcessing:
		return processingState{}
	case StatusShipped:
		return shippedState{}
	case StatusDelivered:
		return deliveredState{}
	case StatusCancelled:
		return cancelledState{}
	}
	return unknownState{status: s}
}

type terminal struct{}

func (terminal) OnPaymentCompleted() (OrderState, error) { return nil, ErrInvalidStateTransition }
func (terminal) OnShipped() (OrderState, error)          { return nil, ErrInvalidStateTransition }
func (terminal) OnDelivered() (OrderState, error)        { return nil, ErrInvalidStateTransition }
func (terminal) OnCancelled() (OrderState, error)        { return nil, ErrInvalidStateTransition }

type pendingState struct{ terminal }

func (pendingState) Status() Status                          { return StatusPending }
func (pendingState) OnPaymentCompleted() (OrderState, error) { return processingState{}, nil }
func (pendingState) OnCancelled() (OrderState, error)        { return cancelledState{}, nil }

type processingState struct{ terminal }

func (processingState) Status() Status                   { return StatusProcessing }
func (processingState) OnShipped() (OrderState, error)   { return shippedState{}, nil }
func (processingState) OnCancelled() (OrderState, error) { return cancelledState{}, nil }

type shippedState struct{ terminal }

func (shippedState) Status() Status                   { return StatusShipped }
func (shippedState) OnDelivered() (OrderState, error) { return deliveredState{}, nil }

type deliveredState struct{ terminal }

func (deliveredState) Status() Status { return StatusDelivered }

type cancelledState struct{ terminal }

func (cancelledState) Status() Status { return StatusCancelled }

type unknownState struct {
	terminal
	status Status
}

func (s unknownState) Status() Status { return s.status }

// dispatch maps a requested target status to the matching event.
// PENDING is only ever an initial state, never a target.
func dispatch(s OrderState, target Status) (OrderState, error) {
	switch target {
	case StatusProcessing:
		return s.OnPaymentCompleted()
	case StatusShipped:
		return s.OnShipped()
	case StatusDelivered:
		return s.OnDelivered()
	case StatusCancelled:
		return s.OnCancelled()
	}
	return nil, ErrInvalidStateTransition
}
