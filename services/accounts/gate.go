package accounts

import "github.com/google/uuid"

// Level is the authorization level an operation requires.
type Level int

const (
	LevelPublic Level = iota
	LevelAuthenticated
	LevelOwner
)

// Requirement describes who may perform an operation.
type Requirement struct {
	Level Level
	Owner uuid.UUID
}

// Public admits everyone.
func Public() Requirement { return Requirement{Level: LevelPublic} }

// Authenticated admits any signed-in account.
func Authenticated() Requirement { return Requirement{Level: LevelAuthenticated} }

// OwnerOf admits only the account recorded as the resource owner.
func OwnerOf(owner uuid.UUID) Requirement { return Requirement{Level: LevelOwner, Owner: owner} }

// Decision is the gate outcome.
type Decision int

const (
	Permit Decision = iota
	RedirectLogin
	Deny
)

func (d Decision) String() string {
	switch d {
	case Permit:
		return "permit"
	case RedirectLogin:
		return "redirect_login"
	default:
		return "deny"
	}
}

// Decide applies req to the resolved account id. uuid.Nil means no session.
// Anonymous callers are sent to login for every non-public requirement.
func Decide(accountID uuid.UUID, req Requirement) Decision {
	switch req.Level {
	case LevelPublic:
		return Permit
	case LevelAuthenticated:
		if accountID == uuid.Nil {
			return RedirectLogin
		}
		return Permit
	case LevelOwner:
		if accountID == uuid.Nil {
			return RedirectLogin
		}
		if req.Owner == uuid.Nil || req.Owner != accountID {
			return Deny
		}
		return Permit
	default:
		return Deny
	}
}
