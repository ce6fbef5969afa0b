package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-while/go-mcnttp/internal/models"
)

// viewFilter returns the article_groups row filter for a catalog view.
// A real catalog selects live rows; the .deleted and .pending views select
// the flagged subsets, sharing the parent's numbering.
func viewFilter(group *models.Newsgroup) string {
	switch {
	case group.ViewCancelled:
		return "cancelled = 1"
	case group.ViewPending:
		return "pending = 1"
	}
	return "cancelled = 0 AND pending = 0"
}

const newsgroupColumns = `id, name, description, moderated, deny_local_posting, deny_peer_posting, created_at, creator_entity`

func scanNewsgroup(scan func(dest ...interface{}) error) (*models.Newsgroup, error) {
	var g models.Newsgroup
	err := scan(&g.ID, &g.Name, &g.Description, &g.Moderated,
		&g.DenyLocalPosting, &g.DenyPeerPosting, &g.CreatedAt, &g.CreatorEntity)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetNewsgroup loads a single newsgroup row by exact name, without counters.
func (db *Database) GetNewsgroup(name string) (*models.Newsgroup, error) {
	row := db.mainDB.QueryRow(`SELECT `+newsgroupColumns+` FROM newsgroups WHERE name = ?`, name)
	group, err := scanNewsgroup(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("no such newsgroup %q: %w", name, err)
	}
	return group, nil
}

// LookupCatalog resolves a catalog name for a principal, honoring the
// .deleted / .pending virtual-catalog suffixes. The virtual views are only
// visible to principals holding cancel or approve permissions.
func (db *Database) LookupCatalog(name string, principal *models.Principal) (*models.Newsgroup, error) {
	viewCancelled := false
	viewPending := false
	base := name

	switch {
	case strings.HasSuffix(name, models.SuffixDeleted):
		base = strings.TrimSuffix(name, models.SuffixDeleted)
		viewCancelled = true
	case strings.HasSuffix(name, models.SuffixPending):
		base = strings.TrimSuffix(name, models.SuffixPending)
		viewPending = true
	}

	group, err := db.GetNewsgroup(base)
	if err != nil {
		return nil, err
	}

	if viewCancelled && (principal == nil || !principal.CanCancel) {
		return nil, fmt.Errorf("no such newsgroup %q", name)
	}
	if viewPending && (principal == nil || !principal.CanApprove(base)) {
		return nil, fmt.Errorf("no such newsgroup %q", name)
	}

	group.ViewCancelled = viewCancelled
	group.ViewPending = viewPending

	if err := db.fillCounters(group); err != nil {
		return nil, err
	}
	return group, nil
}

// fillCounters computes MessageCount and the watermarks for the group's
// current view.
func (db *Database) fillCounters(group *models.Newsgroup) error {
	query := `SELECT COUNT(*), COALESCE(MIN(article_num), 0), COALESCE(MAX(article_num), 0)
		FROM article_groups WHERE newsgroup_id = ? AND ` + viewFilter(group)
	return retryableQueryRowScan(db.mainDB, query, []interface{}{group.ID},
		&group.MessageCount, &group.LowWatermark, &group.HighWatermark)
}

// ListCatalogs returns every real catalog ordered by name, counters filled
// from the live view. Wildmat filtering happens at the session layer.
func (db *Database) ListCatalogs(principal *models.Principal) ([]*models.Newsgroup, error) {
	query := `SELECT n.id, n.name, n.description, n.moderated, n.deny_local_posting,
			n.deny_peer_posting, n.created_at, n.creator_entity,
			COUNT(ag.article_num), COALESCE(MIN(ag.article_num), 0), COALESCE(MAX(ag.article_num), 0)
		FROM newsgroups n
		LEFT JOIN article_groups ag
			ON ag.newsgroup_id = n.id AND ag.cancelled = 0 AND ag.pending = 0
		GROUP BY n.id ORDER BY n.name`

	rows, err := retryableQuery(db.mainDB, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalogs: %w", err)
	}
	defer rows.Close()

	var groups []*models.Newsgroup
	for rows.Next() {
		var g models.Newsgroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Moderated,
			&g.DenyLocalPosting, &g.DenyPeerPosting, &g.CreatedAt, &g.CreatorEntity,
			&g.MessageCount, &g.LowWatermark, &g.HighWatermark); err != nil {
			return nil, err
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

// GroupsSince returns catalogs created at or after the given instant,
// ordered by name. Used by NEWGROUPS.
func (db *Database) GroupsSince(since time.Time) ([]*models.Newsgroup, error) {
	rows, err := retryableQuery(db.mainDB,
		`SELECT `+newsgroupColumns+` FROM newsgroups WHERE datetime(created_at) >= datetime(?) ORDER BY name`,
		since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query new groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Newsgroup
	for rows.Next() {
		g, err := scanNewsgroup(rows.Scan)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// CreateCatalog inserts a new newsgroup. Administrative creation requires a
// dotted hierarchy name; control-message creation passes the same way.
func (db *Database) CreateCatalog(name, description string, moderated bool, creator string) (*models.Newsgroup, error) {
	if !strings.Contains(name, ".") {
		return nil, fmt.Errorf("newsgroup name %q must contain at least one dot", name)
	}
	_, err := retryableExec(db.mainDB,
		`INSERT INTO newsgroups (name, description, moderated, creator_entity) VALUES (?, ?, ?, ?)`,
		name, description, moderated, creator)
	if err != nil {
		return nil, fmt.Errorf("failed to create newsgroup %q: %w", name, err)
	}
	return db.GetNewsgroup(name)
}

// RemoveCatalog deletes a newsgroup and its article associations (rmgroup).
func (db *Database) RemoveCatalog(name string) error {
	result, err := retryableExec(db.mainDB, `DELETE FROM newsgroups WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to remove newsgroup %q: %w", name, err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
