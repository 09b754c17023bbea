package sharesync

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
)

// GateKind is the access state of one client on one share.
type GateKind int

const (
	GateUnresolved GateKind = iota
	GateNameRequired
	GatePasswordRequired
	GateGranted
	GateDenied
	GateEvicted
)

func (k GateKind) String() string {
	switch k {
	case GateUnresolved:
		return "unresolved"
	case GateNameRequired:
		return "name_required"
	case GatePasswordRequired:
		return "password_required"
	case GateGranted:
		return "granted"
	case GateDenied:
		return "denied"
	case GateEvicted:
		return "evicted"
	default:
		return fmt.Sprintf("GateKind(%d)", int(k))
	}
}

// Password prompt wording. Verification is local, so the two cases differ
// only by whether a hash was already cached.
const (
	MsgPasswordNeeded    = "password needed"
	MsgPasswordIncorrect = "password incorrect"
)

// OwnerName is the display name the share owner always uses.
const OwnerName = "admin"

// GateState is the result of evaluating a snapshot. Role and Name are set
// only when Kind is GateGranted; Message only for GatePasswordRequired.
type GateState struct {
	Kind    GateKind
	Role    domain.Role
	Name    string
	Message string
}

// GateInput is everything Transition needs: the latest snapshot and what this
// client has cached for the share.
type GateInput struct {
	ClientID           string
	Snapshot           domain.Snapshot
	CachedName         string
	CachedPasswordHash string
	// CachedOwner is the locally remembered owner marker, used when the
	// snapshot does not name an owner.
	CachedOwner bool
}

// Transition computes the next gate state. It is pure.
//
// Evicted is terminal. Denied holds while the client is on the ban list and
// is re-evaluated once it is removed. Otherwise the checks run in order: ban,
// disabled (non-owners are evicted), owner, name, password.
func Transition(prev GateState, in GateInput) GateState {
	if prev.Kind == GateEvicted {
		return prev
	}
	snap := in.Snapshot
	if snap.IsBanned(in.ClientID) {
		return GateState{Kind: GateDenied}
	}

	owner := in.ClientID != "" && in.ClientID == snap.OwnerID
	if snap.OwnerID == "" {
		owner = in.CachedOwner
	}

	if !snap.Enabled && !owner {
		return GateState{Kind: GateEvicted}
	}
	if owner {
		return GateState{Kind: GateGranted, Role: domain.RoleAdmin, Name: OwnerName}
	}
	if strings.TrimSpace(in.CachedName) == "" {
		return GateState{Kind: GateNameRequired}
	}
	if snap.PasswordHash != "" && in.CachedPasswordHash != snap.PasswordHash {
		msg := MsgPasswordNeeded
		if in.CachedPasswordHash != "" {
			msg = MsgPasswordIncorrect
		}
		return GateState{Kind: GatePasswordRequired, Message: msg}
	}
	return GateState{Kind: GateGranted, Role: domain.RoleMember, Name: in.CachedName}
}

// Gate applies Transition to a stream of snapshots for one share, reading and
// writing the client's cached name and password hash.
type Gate struct {
	identity ClientIdentity
	keys     Keystore
	shareID  string

	mu    sync.Mutex
	state GateState
	last  *domain.Snapshot
}

// NewGate returns a gate in the Unresolved state.
func NewGate(identity ClientIdentity, keys Keystore, shareID string) *Gate {
	return &Gate{identity: identity, keys: keys, shareID: shareID}
}

// State returns the current state.
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Observe evaluates a new snapshot and returns the previous and next states.
func (g *Gate) Observe(snap domain.Snapshot) (prev, next GateState, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = &snap
	return g.evaluate()
}

// SubmitName caches the display name and re-evaluates the last snapshot.
func (g *Gate) SubmitName(name string) (prev, next GateState, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return g.State(), g.State(), ErrEmptyName
	}
	if err := g.keys.Set(nameKey(g.shareID), name); err != nil {
		return g.State(), g.State(), fmt.Errorf("sharesync.Gate.SubmitName: %w", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.evaluate()
}

// SubmitPassword hashes and caches the password and re-evaluates the last
// snapshot. A wrong password leaves the gate in PasswordRequired with the
// "password incorrect" message.
func (g *Gate) SubmitPassword(password string) (prev, next GateState, err error) {
	if err := g.keys.Set(passwordKey(g.shareID), HashPassword(password)); err != nil {
		return g.State(), g.State(), fmt.Errorf("sharesync.Gate.SubmitPassword: %w", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.evaluate()
}

// evaluate runs Transition against the last snapshot. Callers hold g.mu.
func (g *Gate) evaluate() (prev, next GateState, err error) {
	prev = g.state
	if g.last == nil {
		return prev, prev, nil
	}
	in := GateInput{ClientID: g.identity.ID, Snapshot: *g.last}
	if in.CachedName, err = g.keys.Get(nameKey(g.shareID)); err != nil {
		return prev, prev, fmt.Errorf("sharesync.Gate: read name: %w", err)
	}
	if in.CachedPasswordHash, err = g.keys.Get(passwordKey(g.shareID)); err != nil {
		return prev, prev, fmt.Errorf("sharesync.Gate: read password: %w", err)
	}
	marker, err := g.keys.Get(ownerKey(g.shareID))
	if err != nil {
		return prev, prev, fmt.Errorf("sharesync.Gate: read owner marker: %w", err)
	}
	in.CachedOwner = marker == g.identity.ID && marker != ""

	g.state = Transition(prev, in)
	return prev, g.state, nil
}
