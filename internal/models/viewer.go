package models

import (
	"fmt"
	"time"
)

type ViewerRole string

const (
	RoleFan        ViewerRole = "fan"
	RoleSubscriber ViewerRole = "subscriber"
	RoleVIP        ViewerRole = "vip"
	RoleModerator  ViewerRole = "moderator"
	RoleCreator    ViewerRole = "creator"
)

// ViewerInfo is an ephemeral presence record. It lives in-memory per
// stream channel for the lifetime of a viewer session and is never the
// durable record of the viewer.
type ViewerInfo struct {
	ViewerID         string     `json:"viewer_id"`
	DisplayName      string     `json:"display_name"`
	AvatarURL        string     `json:"avatar_url,omitempty"`
	Role             ViewerRole `json:"role"`
	SubscriptionTier string     `json:"subscription_tier,omitempty"`
	JoinedAt         time.Time  `json:"joined_at"`
}

// Validate rejects malformed presence payloads at the transport boundary.
func (v *ViewerInfo) Validate() error {
	if v.ViewerID == "" {
		return fmt.Errorf("viewer_id is required")
	}
	if v.DisplayName == "" {
		return fmt.Errorf("display_name is required")
	}
	switch v.Role {
	case RoleFan, RoleSubscriber, RoleVIP, RoleModerator, RoleCreator:
		return nil
	default:
		return fmt.Errorf("invalid viewer role %q", v.Role)
	}
}

// Highlighted reports whether messages from this role are highlighted in
// chat.
func (r ViewerRole) Highlighted() bool {
	return r == RoleVIP || r == RoleCreator
}
