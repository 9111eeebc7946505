package domain

import (
	"time"

	"parley/errors"

	"github.com/samber/lo"
)

const (
	NameMinLen        = 3
	NameMaxLen        = 20
	DescriptionMaxLen = 20
)

// Membership is the state of a (conversation, user) pair.
// None -> Candidate -> Member | Rejected. Member -> None via Leave.
// Rejected is terminal: no transition removes a user from NotPermitted.
type Membership int

const (
	MembershipNone Membership = iota
	MembershipCandidate
	MembershipMember
	MembershipRejected
)

func (m Membership) String() string {
	switch m {
	case MembershipCandidate:
		return "candidate"
	case MembershipMember:
		return "member"
	case MembershipRejected:
		return "rejected"
	default:
		return "none"
	}
}

// JoinStatus is the outcome of a join request. These are informational
// results, not failures.
type JoinStatus int

const (
	JoinRequestSubmitted JoinStatus = iota
	JoinPendingApproval
	JoinAlreadyMember
	JoinNotPermitted
)

func (s JoinStatus) String() string {
	switch s {
	case JoinPendingApproval:
		return "pending_approval"
	case JoinAlreadyMember:
		return "already_member"
	case JoinNotPermitted:
		return "not_permitted"
	default:
		return "request_submitted"
	}
}

// Conversation is a named group with a single admin and three pairwise
// disjoint membership sets. A user occupies at most one of Members,
// MemberCandidates and NotPermitted at any time.
type Conversation struct {
	ID               string
	Name             string
	Description      string
	Admin            string
	Members          []string
	MemberCandidates []string
	NotPermitted     []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewConversation creates a conversation whose creator is both the sole
// member and the admin. The admin is never transferred afterwards.
func NewConversation(id, name, description, creatorID string, now time.Time) Conversation {
	return Conversation{
		ID:          id,
		Name:        name,
		Description: description,
		Admin:       creatorID,
		Members:     []string{creatorID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (c *Conversation) MembershipOf(userID string) Membership {
	switch {
	case lo.Contains(c.Members, userID):
		return MembershipMember
	case lo.Contains(c.MemberCandidates, userID):
		return MembershipCandidate
	case lo.Contains(c.NotPermitted, userID):
		return MembershipRejected
	default:
		return MembershipNone
	}
}

func (c *Conversation) IsMember(userID string) bool {
	return lo.Contains(c.Members, userID)
}

func (c *Conversation) IsAdmin(userID string) bool {
	return c.Admin == userID
}

// RequestJoin evaluates the caller's current membership and transitions
// None -> Candidate. All other states are reported without mutation, so
// repeated calls are idempotent.
func (c *Conversation) RequestJoin(userID string, now time.Time) JoinStatus {
	switch c.MembershipOf(userID) {
	case MembershipMember:
		return JoinAlreadyMember
	case MembershipRejected:
		return JoinNotPermitted
	case MembershipCandidate:
		return JoinPendingApproval
	default:
		c.MemberCandidates = append(c.MemberCandidates, userID)
		c.UpdatedAt = now
		return JoinRequestSubmitted
	}
}

// Decide moves a candidate to Members (approve) or NotPermitted (reject).
// Only the conversation admin may decide. When the target is not currently
// a candidate the call is a silent no-op and reports changed=false.
//
// The candidate list is rebuilt by filtering instead of spliced in place,
// and only the first matching entry is acted upon, so the result stays
// deterministic even under duplicate-entry corruption.
func (c *Conversation) Decide(deciderID, targetID string, approve bool, now time.Time) (bool, error) {
	if !c.IsAdmin(deciderID) {
		return false, errors.ErrUnauthorized
	}

	removed := false
	kept := make([]string, 0, len(c.MemberCandidates))
	for _, id := range c.MemberCandidates {
		if !removed && id == targetID {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	if !removed {
		return false, nil
	}

	c.MemberCandidates = kept
	if approve {
		c.Members = append(c.Members, targetID)
	} else {
		c.NotPermitted = append(c.NotPermitted, targetID)
	}
	c.UpdatedAt = now
	return true, nil
}

// Leave removes the user from Members and reports whether anything changed.
// The conversation itself survives even when the last member leaves; there
// is no deletion path.
func (c *Conversation) Leave(userID string, now time.Time) bool {
	if !c.IsMember(userID) {
		return false
	}
	c.Members = lo.Filter(c.Members, func(id string, _ int) bool {
		return id != userID
	})
	c.UpdatedAt = now
	return true
}

// Invariant reports whether the three membership sets are pairwise disjoint.
func (c *Conversation) Invariant() bool {
	seen := make(map[string]int)
	for _, id := range c.Members {
		seen[id]++
	}
	for _, id := range c.MemberCandidates {
		seen[id]++
	}
	for _, id := range c.NotPermitted {
		seen[id]++
	}
	for _, n := range seen {
		if n > 1 {
			return false
		}
	}
	return true
}

// Header is the projection returned by conversation listings: nothing but
// the identifier and the name leaks to non-members.
type Header struct {
	ID   string
	Name string
}

func (c *Conversation) Header() Header {
	return Header{ID: c.ID, Name: c.Name}
}
