package session

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

type Role int

const (
	RoleUnknown  Role = 0
	RoleVillager Role = 1
	RoleWerewolf Role = 2
	RoleSeer     Role = 3
	RoleWitch    Role = 4
	RoleHunter   Role = 5
)

func RoleOf(v uint64) Role {
	if v >= uint64(RoleVillager) && v <= uint64(RoleHunter) {
		return Role(v)
	}
	return RoleUnknown
}

func (r Role) String() string {
	switch r {
	case RoleVillager:
		return "villager"
	case RoleWerewolf:
		return "werewolf"
	case RoleSeer:
		return "seer"
	case RoleWitch:
		return "witch"
	case RoleHunter:
		return "hunter"
	default:
		return "unknown"
	}
}

// RoleSource picks the secret value sealed into a new session.
type RoleSource interface {
	Next() (uint64, error)
}

type RoleSourceFunc func() (uint64, error)

func (f RoleSourceFunc) Next() (uint64, error) { return f() }

// RandomRoles draws uniformly from villager through witch.
var RandomRoles RoleSource = RoleSourceFunc(func() (uint64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(RoleWitch)))
	if err != nil {
		return 0, fmt.Errorf("draw role: %w", err)
	}
	return n.Uint64() + uint64(RoleVillager), nil
})

// FixedRole always yields r.
func FixedRole(r Role) RoleSource {
	return RoleSourceFunc(func() (uint64, error) { return uint64(r), nil })
}
