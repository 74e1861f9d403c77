package notifier

// DeliveryError is returned when a submission could not be handed to the
// mail transport. Reason carries the underlying transport message.
type DeliveryError struct {
	Reason string
	Err    error
}

func (e *DeliveryError) Error() string {
	return e.Reason
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func deliveryError(reason string, err error) *DeliveryError {
	return &DeliveryError{Reason: reason, Err: err}
}
