package models

import (
	"time"
)

// SetState is the persisted view of one managed set: what it contains,
// which firewall rule references it, and whether the kernel copy is in
// sync with the desired entries.
type SetState struct {
	Name            string
	TypeName        string
	UpdateTimestamp time.Time
	Entries         []string
	Rule            []string
	Applied         bool
}

type Repository interface {
	CreateOrUpdate(s *SetState) error
	GetSetState(name string) (*SetState, error)
	GetTimestamp(name string) (time.Time, error)
	GetApplied(name string) (bool, error)
	SetApplied(name string, applied bool) error
	StoreRule(name string, rule []string) error
	GetRule(name string) ([]string, error)
	ListSets() ([]string, error)
	DeleteSet(name string) error
}

type Firewall interface {
	// EnsureChain checks if the specified chain exists and, if not, creates it.  If the chain existed, return true.
	EnsureChain(table, chain, policy string) (bool, error)
	// DeleteChain deletes the specified chain.  If the chain did not exist, return error.
	DeleteChain(table, chain string) error
	// EnsureRule checks if the specified rule is present and, if not, creates it.  If the rule existed, return true.
	EnsureRule(pos int, table, chain string, rulespec ...string) (bool, error)
	// DeleteRule checks if the specified rule is present and, if so, deletes it.
	DeleteRule(table, chain string, rulespec ...string) error
}
