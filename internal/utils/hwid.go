package utils

import (
	"github.com/denisbrodbeck/machineid"
)

// HWID is an app-scoped, hashed machine identifier sent with storage requests.
var HWID = func() string {
	id, err := machineid.ProtectedID("coremint")
	if err != nil {
		return "unknown"
	}
	return id[:16]
}()
