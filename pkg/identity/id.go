package identity

import (
	"math/rand"
	"strconv"
)

// Storage location of the device ID.
const (
	Namespace   = "neon-timing"
	DeviceIDKey = "device_id"
)

// MaxDeviceIDLen is the longest device ID kept from the store.
const MaxDeviceIDLen = 16

const (
	minDeviceID = 100000000
	maxDeviceID = 1000000000
)

// NewDeviceID generates a 9 digit decimal ID in [10^8, 10^9).
func NewDeviceID(rnd *rand.Rand) string {
	return strconv.Itoa(minDeviceID + rnd.Intn(maxDeviceID-minDeviceID))
}

// LoadOrCreate returns the persisted device ID, generating and storing
// one when the store has none. Read failures count as an empty store.
// A write failure is returned along with the generated ID, which stays
// valid for this boot.
func LoadOrCreate(s Store, rnd *rand.Rand) (id string, created bool, err error) {
	id, rerr := s.GetString(Namespace, DeviceIDKey)
	if rerr != nil {
		id = ""
	}
	if len(id) > MaxDeviceIDLen {
		id = id[:MaxDeviceIDLen]
	}
	if id != "" {
		return id, false, nil
	}
	id = NewDeviceID(rnd)
	return id, true, s.PutString(Namespace, DeviceIDKey, id)
}
