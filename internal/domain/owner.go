package domain

// Owner discriminates who a cart belongs to: an authenticated user or an
// anonymous guest session. Exactly one field is set.
type Owner struct {
	UserID    string
	SessionID string
}

// UserOwner returns an Owner for an authenticated user.
func UserOwner(userID string) Owner {
	return Owner{UserID: userID}
}

// GuestOwner returns an Owner for an anonymous session.
func GuestOwner(sessionID string) Owner {
	return Owner{SessionID: sessionID}
}

// IsGuest reports whether the owner is an anonymous session.
func (o Owner) IsGuest() bool {
	return o.UserID == ""
}

// Key returns the storage key discriminating user and guest namespaces.
func (o Owner) Key() string {
	if o.UserID != "" {
		return "user:" + o.UserID
	}
	return "guest:" + o.SessionID
}

// Owner returns the cart's owner as derived from its identity fields.
func (c *Cart) Owner() Owner {
	if c.UserID != "" {
		return UserOwner(c.UserID)
	}
	return GuestOwner(c.SessionID)
}
