// Package auth holds credential hashing and login sessions.
package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher turns a raw password into an irreversible, salted credential and
// checks candidates against it.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// Bcrypt is the default Hasher. Cost 0 means bcrypt.DefaultCost.
type Bcrypt struct {
	Cost int
}

func NewBcrypt(cost int) Bcrypt {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return Bcrypt{Cost: cost}
}

func (b Bcrypt) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify compares in constant time with respect to the candidate.
func (b Bcrypt) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
