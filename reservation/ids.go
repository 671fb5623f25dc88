package reservation

import (
	"strconv"
	"strings"
)

// keyOffset is the distance between the table number a client addresses and
// the row key in the store. Clients count from zero, rows from one. Every
// translation goes through StorageKey so a change to the offset touches only
// this file.
const keyOffset = 1

// StorageKey -> translate nomor meja eksternal ke primary key di store.
// Negative numbers have no row and map to key 0, which never matches.
func StorageKey(externalID int) uint {
	if externalID < 0 {
		return 0
	}
	return uint(externalID + keyOffset)
}

// ExternalID is the inverse of StorageKey.
func ExternalID(key uint) int {
	return int(key) - keyOffset
}

// ParseTableID parses the identifier from a request path.
func ParseTableID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, NewValidationError("id", "must be an integer")
	}
	return id, nil
}
