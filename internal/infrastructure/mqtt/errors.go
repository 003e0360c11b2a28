package mqtt

import "errors"

var (
	ErrNotConnected     = errors.New("mqtt: client not connected")
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects levels above 2.
	ErrInvalidQoS   = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrReadOnlyItem is returned for inbound writes to items clients may
	// not modify, such as state/reachable.
	ErrReadOnlyItem = errors.New("mqtt: item is read-only")

	// ErrHiddenItem is returned for inbound writes to items that are not
	// part of the public API, such as config/hostflags.
	ErrHiddenItem = errors.New("mqtt: item is not available")

	// ErrInvalidPayload rejects payloads that carry no usable value.
	ErrInvalidPayload = errors.New("mqtt: invalid payload")
)
