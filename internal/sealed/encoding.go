package sealed

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// wireObject is the CBOR form of an Object, keyed by small integers.
type wireObject struct {
	Ciphertext     []byte `cbor:"1,keyasint"`
	Transformation string `cbor:"2,keyasint"`
	Provider       string `cbor:"3,keyasint"`
	IV             []byte `cbor:"4,keyasint,omitempty"`
}

// MarshalCBOR implements cbor.Marshaler.
func (o *Object) MarshalCBOR() ([]byte, error) {
	return encMode.Marshal(wireObject{
		Ciphertext:     o.ciphertext,
		Transformation: o.transformation,
		Provider:       o.provider,
		IV:             o.iv,
	})
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (o *Object) UnmarshalCBOR(data []byte) error {
	var w wireObject
	if err := cbor.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("failed to decode sealed object: %w", err)
	}
	if len(w.Ciphertext) == 0 || w.Transformation == "" {
		return fmt.Errorf("failed to decode sealed object: missing ciphertext or transformation")
	}
	*o = Object{
		ciphertext:     w.Ciphertext,
		transformation: w.Transformation,
		provider:       w.Provider,
		iv:             w.IV,
	}
	return nil
}

// Encode returns the CBOR encoding of o.
func Encode(o *Object) ([]byte, error) {
	return o.MarshalCBOR()
}

// Decode parses a CBOR-encoded Object.
func Decode(data []byte) (*Object, error) {
	o := new(Object)
	if err := o.UnmarshalCBOR(data); err != nil {
		return nil, err
	}
	return o, nil
}
