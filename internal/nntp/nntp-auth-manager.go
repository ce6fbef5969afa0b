package nntp

import (
	"fmt"
	"log"

	"github.com/go-while/go-mcnttp/internal/models"
)

// AuthManager handles NNTP authentication
type AuthManager struct {
	store CatalogStore
}

// NewAuthManager creates a new authentication manager
func NewAuthManager(store CatalogStore) *AuthManager {
	return &AuthManager{
		store: store,
	}
}

// AuthenticatePrincipal verifies a username/password pair against the store.
func (am *AuthManager) AuthenticatePrincipal(username, password string) (*models.Principal, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	principal, err := am.store.AuthenticatePrincipal(username, password)
	if err != nil {
		log.Printf("NNTP authentication failed for user %s: %v", username, err)
		return nil, fmt.Errorf("authentication failed")
	}

	log.Printf("NNTP user %s authenticated successfully", username)
	return principal, nil
}

// CanPost checks posting privileges for a session identity. Anonymous
// posting is allowed on posting-enabled ports; header hygiene in the
// posting pipeline keeps it safe.
func (am *AuthManager) CanPost(principal *models.Principal) bool {
	if principal == nil {
		return true
	}
	return principal.Posting
}
