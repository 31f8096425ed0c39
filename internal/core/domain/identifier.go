package domain

import (
	"encoding/hex"
	"encoding/json"
	"strconv"
)

// AccountIdentifier points to an account either by its hex encoded 32-byte
// record id or by its position in the account list.
//
// The JSON representation is untagged. Decoding picks the variant from the
// payload shape: a string always decodes to the id variant, even when it
// looks like a number, while a number decodes to the index variant.
type AccountIdentifier struct {
	id      string
	index   int
	indexed bool
}

// NewIDIdentifier returns the identifier for the given record id.
func NewIDIdentifier(id string) AccountIdentifier {
	return AccountIdentifier{id: id}
}

// NewIndexIdentifier returns the identifier for the given account list
// position.
func NewIndexIdentifier(index int) AccountIdentifier {
	return AccountIdentifier{index: index, indexed: true}
}

// IsIndex returns whether the identifier holds an account list position
// instead of a record id.
func (i AccountIdentifier) IsIndex() bool {
	return i.indexed
}

// AccountIndex returns the account list position and whether the identifier
// holds one.
func (i AccountIdentifier) AccountIndex() (int, bool) {
	return i.index, i.indexed
}

func (i AccountIdentifier) String() string {
	if i.indexed {
		return strconv.Itoa(i.index)
	}
	return i.id
}

// RecordID decodes the identifier into the 32-byte record id used by the
// signer and the event bus. It fails with ErrInvalidIdentifier if the
// identifier is an index or is not a 32-byte hex string.
func (i AccountIdentifier) RecordID() ([32]byte, error) {
	var recordID [32]byte
	if i.indexed {
		return recordID, ErrInvalidIdentifier
	}
	decoded, err := hex.DecodeString(i.id)
	if err != nil || len(decoded) != len(recordID) {
		return recordID, ErrInvalidIdentifier
	}
	copy(recordID[:], decoded)
	return recordID, nil
}

func (i AccountIdentifier) MarshalJSON() ([]byte, error) {
	if i.indexed {
		return json.Marshal(i.index)
	}
	return json.Marshal(i.id)
}

func (i *AccountIdentifier) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*i = NewIDIdentifier(id)
		return nil
	}
	var index int
	if err := json.Unmarshal(data, &index); err != nil {
		return ErrInvalidIdentifier
	}
	*i = NewIndexIdentifier(index)
	return nil
}
