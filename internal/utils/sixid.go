package utils

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SixIDHookFunc defines the signature for the NewSixID test hook.
// It returns a SixID and a boolean indicating whether to override the default generation.
type SixIDHookFunc func() (id SixID, override bool)

// NewSixIDHook lets tests force the ids handed out by NewSixID.
var NewSixIDHook SixIDHookFunc

// sixIDSubtype is the custom BSON binary subtype used to store ids.
const sixIDSubtype byte = 0x80

// crockford is Crockford's Base32 alphabet: no I, L, O or U.
var crockford = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

// ErrInvalidSixID is returned when a string or BSON value cannot be read as a SixID.
var ErrInvalidSixID = errors.New("invalid id")

// SixID is a random 6-byte identifier. Its text form is 10 Crockford Base32 characters
// and it is stored in MongoDB as binary data with subtype 0x80.
type SixID [6]byte

// NewSixID returns a new random SixID.
func NewSixID() SixID {
	if NewSixIDHook != nil {
		if id, override := NewSixIDHook(); override {
			return id
		}
	}

	var id SixID
	if _, err := rand.Read(id[:]); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return id
}

// ParseSixID reads the Crockford Base32 form of a SixID. It is lenient the way Crockford
// intends: case-insensitive, hyphens ignored, O read as 0 and I/L read as 1.
func ParseSixID(s string) (SixID, error) {
	normalized := strings.NewReplacer("-", "", " ", "", "O", "0", "I", "1", "L", "1").
		Replace(strings.ToUpper(strings.TrimSpace(s)))
	if len(normalized) != 10 {
		return SixID{}, fmt.Errorf("%w: %q must be 10 characters", ErrInvalidSixID, s)
	}

	raw, err := crockford.DecodeString(normalized)
	if err != nil || len(raw) != 6 {
		return SixID{}, fmt.Errorf("%w: %q", ErrInvalidSixID, s)
	}

	var id SixID
	copy(id[:], raw)
	return id, nil
}

// String returns the 10-character Crockford Base32 form.
func (u SixID) String() string {
	return crockford.EncodeToString(u[:])
}

// IsZero reports whether the id is unset. The BSON encoder uses it for omitempty.
func (u SixID) IsZero() bool {
	return u == SixID{}
}

// MarshalBSONValue stores the id as binary subtype 0x80.
func (u SixID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(primitive.Binary{Subtype: sixIDSubtype, Data: u[:]})
}

// UnmarshalBSONValue reads an id written by MarshalBSONValue. BSON null yields the zero id.
func (u *SixID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bsontype.Null || t == bsontype.Undefined {
		*u = SixID{}
		return nil
	}

	var bin primitive.Binary
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&bin); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSixID, err)
	}
	if bin.Subtype != sixIDSubtype || len(bin.Data) != 6 {
		return fmt.Errorf("%w: binary subtype %#x with %d bytes", ErrInvalidSixID, bin.Subtype, len(bin.Data))
	}
	copy(u[:], bin.Data)
	return nil
}

// MarshalJSON writes the id as a JSON string.
func (u SixID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON reads the id from a JSON string.
func (u *SixID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseSixID(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
