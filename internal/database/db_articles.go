package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-while/go-mcnttp/internal/common"
	"github.com/go-while/go-mcnttp/internal/models"
)

const articleColumns = `a.id, a.message_id, a.subject, a.from_header, a.newsgroups,
	a.date_string, a.date_sent, a.path, a.refs, a.approved, a.body_text, a.headers_raw`

// scanArticle builds an Article from an article row. Optional headers that
// are not dedicated columns come from the stored raw header block.
func scanArticle(scan func(dest ...interface{}) error) (*models.Article, int64, error) {
	var a models.Article
	var id int64
	var dateSent sql.NullTime
	var headersRaw string
	err := scan(&id, &a.MessageID, &a.Subject, &a.FromHeader, &a.Newsgroups,
		&a.DateString, &dateSent, &a.Path, &a.References, &a.Approved,
		&a.BodyText, &headersRaw)
	if err != nil {
		return nil, 0, err
	}
	if dateSent.Valid {
		a.DateSent = dateSent.Time.UTC()
	}
	if headersRaw != "" {
		a.RawHeaders = strings.Split(headersRaw, "\n")
	}
	a.ArticleNums = make(map[string]int64)
	fillOptionalHeaders(&a)

	return &a, id, nil
}

// InsertArticle stores the article (once, keyed by message-id) and links it
// into the target catalog with the next free number. Number allocation is
// max(existing)+1 inside one transaction so concurrent posters cannot
// collide; numbers are never reused since cancel only flags the row.
func (db *Database) InsertArticle(article *models.Article, group string, pending bool) (int64, error) {
	var articleNum int64

	err := retryableTransactionExec(db.mainDB, func(tx *sql.Tx) error {
		var newsgroupID int64
		if err := tx.QueryRow(`SELECT id FROM newsgroups WHERE name = ?`, group).Scan(&newsgroupID); err != nil {
			return fmt.Errorf("no such newsgroup %q: %w", group, err)
		}

		var dateSent interface{}
		if !article.DateSent.IsZero() {
			dateSent = article.DateSent.UTC()
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO articles
			(message_id, subject, from_header, newsgroups, date_string, date_sent, path, refs, approved, body_text, headers_raw)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			article.MessageID, article.Subject, article.FromHeader, article.Newsgroups,
			article.DateString, dateSent, article.Path, article.References,
			article.Approved, article.BodyText, strings.Join(article.RawHeaders, "\n")); err != nil {
			return fmt.Errorf("failed to store article %s: %w", article.MessageID, err)
		}

		var articleID int64
		if err := tx.QueryRow(`SELECT id FROM articles WHERE message_id = ?`, article.MessageID).Scan(&articleID); err != nil {
			return err
		}

		if err := tx.QueryRow(`SELECT COALESCE(MAX(article_num), 0) + 1 FROM article_groups WHERE newsgroup_id = ?`,
			newsgroupID).Scan(&articleNum); err != nil {
			return err
		}

		if _, err := tx.Exec(`INSERT INTO article_groups (newsgroup_id, article_id, article_num, pending)
			VALUES (?, ?, ?, ?)`, newsgroupID, articleID, articleNum, pending); err != nil {
			return fmt.Errorf("failed to link article %s into %s: %w", article.MessageID, group, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if article.ArticleNums == nil {
		article.ArticleNums = make(map[string]int64)
	}
	article.ArticleNums[group] = articleNum
	return articleNum, nil
}

// GetArticleEntry fetches the article at a number within the catalog's
// current view.
func (db *Database) GetArticleEntry(group *models.Newsgroup, num int64) (*models.ArticleEntry, error) {
	query := `SELECT ` + articleColumns + `, ag.article_num, ag.cancelled, ag.pending
		FROM article_groups ag JOIN articles a ON a.id = ag.article_id
		WHERE ag.newsgroup_id = ? AND ag.article_num = ? AND ` + viewFilter(group)

	row := db.mainDB.QueryRow(query, group.ID, num)
	entry, err := scanArticleEntry(group.Name, row.Scan)
	if err != nil {
		return nil, fmt.Errorf("no article %d in %s: %w", num, group.Name, err)
	}
	return entry, nil
}

func scanArticleEntry(groupName string, scan func(dest ...interface{}) error) (*models.ArticleEntry, error) {
	var a models.Article
	var id int64
	var dateSent sql.NullTime
	var headersRaw string
	entry := &models.ArticleEntry{Newsgroup: groupName}
	err := scan(&id, &a.MessageID, &a.Subject, &a.FromHeader, &a.Newsgroups,
		&a.DateString, &dateSent, &a.Path, &a.References, &a.Approved,
		&a.BodyText, &headersRaw,
		&entry.ArticleNum, &entry.Cancelled, &entry.Pending)
	if err != nil {
		return nil, err
	}
	if dateSent.Valid {
		a.DateSent = dateSent.Time.UTC()
	}
	if headersRaw != "" {
		a.RawHeaders = strings.Split(headersRaw, "\n")
	}
	a.ArticleNums = map[string]int64{groupName: entry.ArticleNum}
	fillOptionalHeaders(&a)
	entry.Article = &a
	return entry, nil
}

func fillOptionalHeaders(a *models.Article) {
	a.Archive = common.GetHeaderFromRaw(a.RawHeaders, "Archive")
	a.ContentDisposition = common.GetHeaderFromRaw(a.RawHeaders, "Content-Disposition")
	a.ContentLanguage = common.GetHeaderFromRaw(a.RawHeaders, "Content-Language")
	a.ContentTransferEncoding = common.GetHeaderFromRaw(a.RawHeaders, "Content-Transfer-Encoding")
	a.ContentType = common.GetHeaderFromRaw(a.RawHeaders, "Content-Type")
	a.Control = common.GetHeaderFromRaw(a.RawHeaders, "Control")
	a.Distribution = common.GetHeaderFromRaw(a.RawHeaders, "Distribution")
	a.Expires = common.GetHeaderFromRaw(a.RawHeaders, "Expires")
	a.FollowupTo = common.GetHeaderFromRaw(a.RawHeaders, "Followup-To")
	a.InjectionDate = common.GetHeaderFromRaw(a.RawHeaders, "Injection-Date")
	a.InjectionInfo = common.GetHeaderFromRaw(a.RawHeaders, "Injection-Info")
	a.MIMEVersion = common.GetHeaderFromRaw(a.RawHeaders, "MIME-Version")
	a.Organization = common.GetHeaderFromRaw(a.RawHeaders, "Organization")
	a.Summary = common.GetHeaderFromRaw(a.RawHeaders, "Summary")
	a.Supersedes = common.GetHeaderFromRaw(a.RawHeaders, "Supersedes")
	a.UserAgent = common.GetHeaderFromRaw(a.RawHeaders, "User-Agent")
	a.Xref = common.GetHeaderFromRaw(a.RawHeaders, "Xref")
}

// GetArticleByID looks an article up by message identifier across all
// catalogs and returns it with every catalog association. Cancelled and
// pending associations are included only when the caller asks for them.
func (db *Database) GetArticleByID(messageID string, includeCancelled, includePending bool) (*models.Article, []*models.ArticleEntry, error) {
	row := db.mainDB.QueryRow(`SELECT `+articleColumns+` FROM articles a WHERE a.message_id = ?`, messageID)
	article, id, err := scanArticle(row.Scan)
	if err != nil {
		return nil, nil, fmt.Errorf("no such article %s: %w", messageID, err)
	}

	filter := ""
	if !includeCancelled {
		filter += " AND ag.cancelled = 0"
	}
	if !includePending {
		filter += " AND ag.pending = 0"
	}

	rows, err := retryableQuery(db.mainDB, `SELECT n.name, ag.article_num, ag.cancelled, ag.pending
		FROM article_groups ag JOIN newsgroups n ON n.id = ag.newsgroup_id
		WHERE ag.article_id = ?`+filter+` ORDER BY n.name`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var entries []*models.ArticleEntry
	for rows.Next() {
		entry := &models.ArticleEntry{Article: article}
		if err := rows.Scan(&entry.Newsgroup, &entry.ArticleNum, &entry.Cancelled, &entry.Pending); err != nil {
			return nil, nil, err
		}
		article.ArticleNums[entry.Newsgroup] = entry.ArticleNum
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(entries) == 0 {
		return nil, nil, fmt.Errorf("no visible association for article %s", messageID)
	}
	return article, entries, nil
}

// RangeArticles returns the catalog-view rows with numbers in [low, high],
// ordered ascending.
func (db *Database) RangeArticles(group *models.Newsgroup, low, high int64) ([]*models.ArticleEntry, error) {
	query := `SELECT ` + articleColumns + `, ag.article_num, ag.cancelled, ag.pending
		FROM article_groups ag JOIN articles a ON a.id = ag.article_id
		WHERE ag.newsgroup_id = ? AND ag.article_num >= ? AND ag.article_num <= ? AND ` +
		viewFilter(group) + ` ORDER BY ag.article_num ASC`

	rows, err := retryableQuery(db.mainDB, query, group.ID, low, high)
	if err != nil {
		return nil, fmt.Errorf("failed to range articles in %s: %w", group.Name, err)
	}
	defer rows.Close()

	var entries []*models.ArticleEntry
	for rows.Next() {
		entry, err := scanArticleEntry(group.Name, rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ArticlesSince enumerates live article associations whose parsed date is
// at or after the instant, for NEWNEWS. Ordered by date then number.
func (db *Database) ArticlesSince(since time.Time) ([]*models.ArticleEntry, error) {
	rows, err := retryableQuery(db.mainDB, `SELECT n.name, ag.article_num, a.message_id, a.date_sent
		FROM article_groups ag
		JOIN articles a ON a.id = ag.article_id
		JOIN newsgroups n ON n.id = ag.newsgroup_id
		WHERE ag.cancelled = 0 AND ag.pending = 0 AND datetime(a.date_sent) >= datetime(?)
		ORDER BY a.date_sent, ag.article_num`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query articles since %v: %w", since, err)
	}
	defer rows.Close()

	var entries []*models.ArticleEntry
	for rows.Next() {
		var a models.Article
		var dateSent sql.NullTime
		entry := &models.ArticleEntry{Article: &a}
		if err := rows.Scan(&entry.Newsgroup, &entry.ArticleNum, &a.MessageID, &dateSent); err != nil {
			return nil, err
		}
		if dateSent.Valid {
			a.DateSent = dateSent.Time.UTC()
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// LastArticleBefore returns the greatest live article below num in the
// catalog view, for LAST.
func (db *Database) LastArticleBefore(group *models.Newsgroup, num int64) (*models.ArticleEntry, error) {
	return db.adjacentArticle(group, num, "<", "DESC")
}

// NextArticleAfter returns the least live article above num, for NEXT.
func (db *Database) NextArticleAfter(group *models.Newsgroup, num int64) (*models.ArticleEntry, error) {
	return db.adjacentArticle(group, num, ">", "ASC")
}

func (db *Database) adjacentArticle(group *models.Newsgroup, num int64, cmp, order string) (*models.ArticleEntry, error) {
	query := `SELECT ` + articleColumns + `, ag.article_num, ag.cancelled, ag.pending
		FROM article_groups ag JOIN articles a ON a.id = ag.article_id
		WHERE ag.newsgroup_id = ? AND ag.article_num ` + cmp + ` ? AND ` + viewFilter(group) + `
		ORDER BY ag.article_num ` + order + ` LIMIT 1`

	row := db.mainDB.QueryRow(query, group.ID, num)
	entry, err := scanArticleEntry(group.Name, row.Scan)
	if err != nil {
		return nil, fmt.Errorf("no adjacent article for %d in %s: %w", num, group.Name, err)
	}
	return entry, nil
}

// MarkCancelled soft-deletes every catalog association of the article.
// Numbers stay allocated; the rows move into the .deleted views.
func (db *Database) MarkCancelled(messageID string) (int64, error) {
	result, err := retryableExec(db.mainDB, `UPDATE article_groups SET cancelled = 1
		WHERE article_id = (SELECT id FROM articles WHERE message_id = ?)`, messageID)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel %s: %w", messageID, err)
	}
	return result.RowsAffected()
}

// MarkApproved records moderator approval for the article within one
// catalog: the pending flag clears and the approver identity is stored.
func (db *Database) MarkApproved(group, messageID, approvedBy string) error {
	result, err := retryableExec(db.mainDB, `UPDATE article_groups SET pending = 0
		WHERE article_id = (SELECT id FROM articles WHERE message_id = ?)
		AND newsgroup_id = (SELECT id FROM newsgroups WHERE name = ?) AND pending = 1`, messageID, group)
	if err != nil {
		return fmt.Errorf("failed to approve %s in %s: %w", messageID, group, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	_, err = retryableExec(db.mainDB, `UPDATE articles SET approved = ? WHERE message_id = ?`,
		approvedBy, messageID)
	return err
}
