package database

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-while/go-mcnttp/internal/models"
)

// Principal management. Stored password hashes come in two formats: bcrypt
// (written by usermgr) and the legacy salted SHA-512 "salt:hash" form where
// hash = base64(sha512(salt + secret)) with the salt stored base64-encoded.

const principalColumns = `id, username, password, mailbox, can_approve_any, can_cancel,
	can_create_catalogs, can_delete_catalogs, can_check_catalogs, can_inject,
	local_auth_only, posting, maxconns, is_active, created_at, updated_at, last_login`

func scanPrincipal(scan func(dest ...interface{}) error) (*models.Principal, error) {
	var p models.Principal
	err := scan(&p.ID, &p.Username, &p.Password, &p.Mailbox, &p.CanApproveAny, &p.CanCancel,
		&p.CanCreateCatalogs, &p.CanDeleteCatalogs, &p.CanCheckCatalogs, &p.CanInject,
		&p.LocalAuthOnly, &p.Posting, &p.MaxConns, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt, &p.LastLogin)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertPrincipal creates a new principal with a bcrypt password hash.
func (db *Database) InsertPrincipal(p *models.Principal) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = retryableExec(db.mainDB, `INSERT INTO principals
		(username, password, mailbox, can_approve_any, can_cancel, can_create_catalogs,
		 can_delete_catalogs, can_check_catalogs, can_inject, local_auth_only, posting, maxconns, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Username, string(hashedPassword), p.Mailbox, p.CanApproveAny, p.CanCancel,
		p.CanCreateCatalogs, p.CanDeleteCatalogs, p.CanCheckCatalogs, p.CanInject,
		p.LocalAuthOnly, p.Posting, p.MaxConns, p.IsActive)
	if err != nil {
		return fmt.Errorf("failed to insert principal %s: %w", p.Username, err)
	}

	stored, err := db.GetPrincipalByUsername(p.Username)
	if err != nil {
		return err
	}
	for _, pattern := range p.Moderates {
		if err := db.GrantModeration(stored.ID, pattern); err != nil {
			return err
		}
	}
	return nil
}

// GetPrincipalByUsername retrieves an active principal with its moderated
// group patterns loaded.
func (db *Database) GetPrincipalByUsername(username string) (*models.Principal, error) {
	row := db.mainDB.QueryRow(`SELECT `+principalColumns+` FROM principals
		WHERE username = ? AND is_active = 1`, username)
	p, err := scanPrincipal(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("principal %q not found: %w", username, err)
	}
	if err := db.loadModerates(p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPrincipalByID retrieves a principal by ID, active or not.
func (db *Database) GetPrincipalByID(id int) (*models.Principal, error) {
	row := db.mainDB.QueryRow(`SELECT `+principalColumns+` FROM principals WHERE id = ?`, id)
	p, err := scanPrincipal(row.Scan)
	if err != nil {
		return nil, err
	}
	if err := db.loadModerates(p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetAllPrincipals lists every principal ordered by username.
func (db *Database) GetAllPrincipals() ([]*models.Principal, error) {
	rows, err := retryableQuery(db.mainDB, `SELECT `+principalColumns+` FROM principals ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var principals []*models.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows.Scan)
		if err != nil {
			return nil, err
		}
		principals = append(principals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, p := range principals {
		if err := db.loadModerates(p); err != nil {
			return nil, err
		}
	}
	return principals, nil
}

func (db *Database) loadModerates(p *models.Principal) error {
	rows, err := retryableQuery(db.mainDB,
		`SELECT pattern FROM moderators WHERE principal_id = ? ORDER BY pattern`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	p.Moderates = nil
	for rows.Next() {
		var pattern string
		if err := rows.Scan(&pattern); err != nil {
			return err
		}
		p.Moderates = append(p.Moderates, pattern)
	}
	return rows.Err()
}

// GrantModeration adds a moderated-group pattern for a principal.
func (db *Database) GrantModeration(principalID int, pattern string) error {
	_, err := retryableExec(db.mainDB,
		`INSERT OR IGNORE INTO moderators (principal_id, pattern) VALUES (?, ?)`,
		principalID, pattern)
	return err
}

// RevokeModeration removes a moderated-group pattern.
func (db *Database) RevokeModeration(principalID int, pattern string) error {
	_, err := retryableExec(db.mainDB,
		`DELETE FROM moderators WHERE principal_id = ? AND pattern = ?`,
		principalID, pattern)
	return err
}

// UpdatePrincipalPassword replaces the stored hash with a fresh bcrypt hash.
func (db *Database) UpdatePrincipalPassword(principalID int, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	_, err = retryableExec(db.mainDB,
		`UPDATE principals SET password = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(hashedPassword), principalID)
	return err
}

// UpdatePrincipalLastLogin stamps the last successful authentication.
func (db *Database) UpdatePrincipalLastLogin(principalID int) error {
	_, err := retryableExec(db.mainDB,
		`UPDATE principals SET last_login = CURRENT_TIMESTAMP WHERE id = ?`, principalID)
	return err
}

// DeactivatePrincipal disables an account (soft delete).
func (db *Database) DeactivatePrincipal(principalID int) error {
	_, err := retryableExec(db.mainDB,
		`UPDATE principals SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, principalID)
	return err
}

// UpdatePrincipalCapabilities rewrites the capability flags of an account.
func (db *Database) UpdatePrincipalCapabilities(p *models.Principal) error {
	_, err := retryableExec(db.mainDB, `UPDATE principals SET
		mailbox = ?, can_approve_any = ?, can_cancel = ?, can_create_catalogs = ?,
		can_delete_catalogs = ?, can_check_catalogs = ?, can_inject = ?,
		local_auth_only = ?, posting = ?, maxconns = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		p.Mailbox, p.CanApproveAny, p.CanCancel, p.CanCreateCatalogs,
		p.CanDeleteCatalogs, p.CanCheckCatalogs, p.CanInject,
		p.LocalAuthOnly, p.Posting, p.MaxConns, p.ID)
	return err
}

// AuthenticatePrincipal verifies a username/password pair, consulting the
// auth cache before the expensive hash comparison.
func (db *Database) AuthenticatePrincipal(username, password string) (*models.Principal, error) {
	if db.AuthCache != nil {
		if id, found := db.AuthCache.Get(username, password); found {
			return db.GetPrincipalByID(id)
		}
	}

	p, err := db.GetPrincipalByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	if !verifyPassword(p.Password, password) {
		return nil, fmt.Errorf("invalid password")
	}

	if db.AuthCache != nil {
		db.AuthCache.Set(p.ID, username, password)
	}
	db.UpdatePrincipalLastLogin(p.ID)

	return p, nil
}

// InvalidatePrincipalAuth drops a user from the auth cache. Call on
// password change or deactivation.
func (db *Database) InvalidatePrincipalAuth(username string) {
	if db.AuthCache != nil {
		db.AuthCache.Remove(username)
	}
}

// verifyPassword accepts bcrypt hashes and the salted SHA-512 form.
func verifyPassword(stored, secret string) bool {
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)) == nil
	}
	return verifySaltedSHA512(stored, secret)
}

// verifySaltedSHA512 checks "salt:hash" where hash is
// base64(sha512(base64salt + secret)).
func verifySaltedSHA512(stored, secret string) bool {
	parts := strings.SplitN(stored, ":", 2)
	if len(parts) != 2 {
		return false
	}
	sum := sha512.Sum512([]byte(parts[0] + secret))
	return base64.StdEncoding.EncodeToString(sum[:]) == parts[1]
}

// MakeSaltedSHA512 produces a stored hash in the legacy salted form.
func MakeSaltedSHA512(secret string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	saltB64 := base64.StdEncoding.EncodeToString(salt)
	sum := sha512.Sum512([]byte(saltB64 + secret))
	return saltB64 + ":" + base64.StdEncoding.EncodeToString(sum[:]), nil
}
