package migration

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EnvelopeVersion is the wire version written by Encode.
const EnvelopeVersion = 1

// ErrMalformedReceipt is returned by Decode for payloads that cannot be a
// valid receipt.
var ErrMalformedReceipt = errors.New("migration: malformed receipt")

type envelope struct {
	Version int      `json:"v"`
	Receipt *Receipt `json:"receipt"`
}

// Encode serializes a receipt for a transport.
func Encode(r *Receipt) ([]byte, error) {
	if err := Validate(r); err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: EnvelopeVersion, Receipt: r})
}

// Decode parses a payload written by Encode.
func Decode(data []byte) (*Receipt, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedReceipt, err)
	}
	if env.Version != EnvelopeVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedReceipt, env.Version)
	}
	if err := Validate(env.Receipt); err != nil {
		return nil, err
	}
	return env.Receipt, nil
}

// Validate checks the structural fields every receipt must carry.
func Validate(r *Receipt) error {
	switch {
	case r == nil:
		return fmt.Errorf("%w: empty", ErrMalformedReceipt)
	case r.ID.IsNil():
		return fmt.Errorf("%w: missing id", ErrMalformedReceipt)
	case r.ContentID == 0:
		return fmt.Errorf("%w: missing content id", ErrMalformedReceipt)
	case r.Recipient == "":
		return fmt.Errorf("%w: missing recipient", ErrMalformedReceipt)
	case r.DestinationDomain == "":
		return fmt.Errorf("%w: missing destination", ErrMalformedReceipt)
	case r.Remaining < 0:
		return fmt.Errorf("%w: negative remaining", ErrMalformedReceipt)
	case r.Item.ID != r.ContentID:
		return fmt.Errorf("%w: item snapshot does not match content id", ErrMalformedReceipt)
	}
	return nil
}
