package governance

import (
	"fmt"
	"math"

	"tamv/internal/domain"

	"github.com/shopspring/decimal"
)

// DefaultRoleMultipliers scale voting power by governance role.
var DefaultRoleMultipliers = map[domain.Role]decimal.Decimal{
	domain.RoleCitizen:   decimal.NewFromInt(1),
	domain.RoleDelegate:  decimal.RequireFromString("1.5"),
	domain.RoleCouncilor: decimal.NewFromInt(2),
	domain.RoleGuardian:  decimal.NewFromInt(3),
	domain.RoleSovereign: decimal.NewFromInt(5),
}

// Engine carries the role multipliers used to weigh ballots.
type Engine struct {
	multipliers map[domain.Role]decimal.Decimal
}

// NewEngine copies multipliers over the defaults. Multipliers must be
// positive.
func NewEngine(multipliers map[domain.Role]decimal.Decimal) (*Engine, error) {
	m := make(map[domain.Role]decimal.Decimal, len(DefaultRoleMultipliers))
	for role, v := range DefaultRoleMultipliers {
		m[role] = v
	}
	for role, v := range multipliers {
		if !v.IsPositive() {
			return nil, fmt.Errorf("multiplier for %s must be positive, got %s", role, v)
		}
		m[role] = v
	}
	return &Engine{multipliers: m}, nil
}

// Multiplier returns the multiplier for role; unknown roles count as citizens.
func (e *Engine) Multiplier(role domain.Role) decimal.Decimal {
	if v, ok := e.multipliers[role]; ok {
		return v
	}
	return e.multipliers[domain.RoleCitizen]
}

// VotingPower is floor((baseStake+delegated) * roleMultiplier *
// (1 + sqrt(reputation)/10)).
func (e *Engine) VotingPower(baseStake decimal.Decimal, reputation int64, role domain.Role, delegated decimal.Decimal) decimal.Decimal {
	if reputation < 0 {
		reputation = 0
	}
	stake := baseStake.Add(delegated)
	if !stake.IsPositive() {
		return decimal.Zero
	}
	repFactor := decimal.NewFromFloat(1 + math.Sqrt(float64(reputation))/10)
	return stake.Mul(e.Multiplier(role)).Mul(repFactor).Floor()
}
