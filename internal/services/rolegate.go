package services

import (
	"fmt"
	"log"

	"wellnest/internal/models"
)

// Capability names an action, optionally scoped to the owner of a resource.
type Capability struct {
	Name    string
	OwnerID string
}

const (
	capOwnsCart           = "owns-cart"
	capOwnsOrder          = "owns-order"
	capViewPrescription   = "view-prescription"
	capReviewPrescription = "review-prescription"
	capManageOrders       = "manage-orders"
	capManageUsers        = "manage-users"
)

// OwnsCart is held only by the cart owner.
func OwnsCart(userID string) Capability { return Capability{Name: capOwnsCart, OwnerID: userID} }

// OwnsOrder is held by the order owner and by admins.
func OwnsOrder(userID string) Capability { return Capability{Name: capOwnsOrder, OwnerID: userID} }

// ViewPrescription is held by the uploader and by reviewers.
func ViewPrescription(userID string) Capability {
	return Capability{Name: capViewPrescription, OwnerID: userID}
}

// ReviewPrescription is held by pharmacists and admins.
func ReviewPrescription() Capability { return Capability{Name: capReviewPrescription} }

// ManageOrders is held by admins.
func ManageOrders() Capability { return Capability{Name: capManageOrders} }

// ManageUsers is held by admins.
func ManageUsers() Capability { return Capability{Name: capManageUsers} }

// RoleGate decides capabilities from role and ownership only.
type RoleGate struct{}

// NewRoleGate creates a RoleGate.
func NewRoleGate() *RoleGate { return &RoleGate{} }

// Authorize reports whether user holds capability.
func (g *RoleGate) Authorize(user models.Principal, capability Capability) bool {
	if user.UserID == "" {
		return false
	}
	owner := capability.OwnerID != "" && capability.OwnerID == user.UserID
	reviewer := user.Role == models.RolePharmacist || user.Role == models.RoleAdmin

	switch capability.Name {
	case capOwnsCart:
		return owner
	case capOwnsOrder:
		return owner || user.Role == models.RoleAdmin
	case capViewPrescription:
		return owner || reviewer
	case capReviewPrescription:
		return reviewer
	case capManageOrders, capManageUsers:
		return user.Role == models.RoleAdmin
	}
	return false
}

// Require is Authorize returning ErrForbidden on denial. Denials are logged.
func (g *RoleGate) Require(user models.Principal, capability Capability) error {
	if g.Authorize(user, capability) {
		return nil
	}
	log.Printf("Forbidden: user %q (role %s) lacks %s on owner %q", user.UserID, user.Role, capability.Name, capability.OwnerID)
	return fmt.Errorf("%w: %s", ErrForbidden, capability.Name)
}
