//go:build race

package account

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// Race builds are slow enough already, keep the suites within their timeouts.
	return bcrypt.MinCost
}
