package database

import (
	"testing"
	"time"

	"github.com/go-while/go-mcnttp/internal/config"
	"github.com/go-while/go-mcnttp/internal/models"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := OpenDatabase(&config.DatabaseConfig{MainDB: t.TempDir() + "/test.sq3"})
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	t.Cleanup(func() { db.Shutdown() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func testArticle(msgid, newsgroups string) *models.Article {
	return &models.Article{
		MessageID:  msgid,
		Subject:    "test subject",
		FromHeader: "a@b.invalid",
		Newsgroups: newsgroups,
		DateString: "01 Jan 2026 10:00:00 +0000",
		DateSent:   time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		Path:       "news.test!not-for-mail",
		BodyText:   "body",
		RawHeaders: []string{
			"From: a@b.invalid",
			"Newsgroups: " + newsgroups,
			"Subject: test subject",
			"Message-ID: " + msgid,
			"Date: 01 Jan 2026 10:00:00 +0000",
		},
		ArticleNums: make(map[string]int64),
	}
}

func TestInsertAllocatesMonotonicNumbers(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.CreateCatalog("misc.test", "test group", false, "admin"); err != nil {
		t.Fatalf("CreateCatalog: %v", err)
	}

	for i, msgid := range []string{"<n1@x>", "<n2@x>", "<n3@x>"} {
		num, err := db.InsertArticle(testArticle(msgid, "misc.test"), "misc.test", false)
		if err != nil {
			t.Fatalf("InsertArticle %s: %v", msgid, err)
		}
		if num != int64(i+1) {
			t.Errorf("number for %s = %d, want %d", msgid, num, i+1)
		}
	}
}

func TestNumbersNeverReusedAfterCancel(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.CreateCatalog("misc.test", "", false, "admin"); err != nil {
		t.Fatal(err)
	}

	db.InsertArticle(testArticle("<r1@x>", "misc.test"), "misc.test", false)
	db.InsertArticle(testArticle("<r2@x>", "misc.test"), "misc.test", false)

	if affected, err := db.MarkCancelled("<r2@x>"); err != nil || affected != 1 {
		t.Fatalf("MarkCancelled = %d, %v", affected, err)
	}

	num, err := db.InsertArticle(testArticle("<r3@x>", "misc.test"), "misc.test", false)
	if err != nil {
		t.Fatal(err)
	}
	if num != 3 {
		t.Errorf("number after cancel = %d, want 3 (never reuse)", num)
	}
}

func TestCrossPostIndependentNumbers(t *testing.T) {
	db := openTestDB(t)
	db.CreateCatalog("a.b", "", false, "admin")
	db.CreateCatalog("c.d", "", false, "admin")

	// Pre-fill a.b so its numbering is ahead
	db.InsertArticle(testArticle("<pre@x>", "a.b"), "a.b", false)

	article := testArticle("<x1@x>", "a.b c.d")
	numAB, err := db.InsertArticle(article, "a.b", false)
	if err != nil {
		t.Fatal(err)
	}
	numCD, err := db.InsertArticle(article, "c.d", false)
	if err != nil {
		t.Fatal(err)
	}
	if numAB != 2 || numCD != 1 {
		t.Errorf("cross-post numbers = %d, %d; want 2, 1", numAB, numCD)
	}

	found, entries, err := db.GetArticleByID("<x1@x>", false, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("associations = %d, want 2", len(entries))
	}
	if found.ArticleNums["a.b"] != 2 || found.ArticleNums["c.d"] != 1 {
		t.Errorf("ArticleNums = %v", found.ArticleNums)
	}
}

func TestLookupCatalogCountersAndViews(t *testing.T) {
	db := openTestDB(t)
	db.CreateCatalog("misc.test", "", false, "admin")
	db.InsertArticle(testArticle("<v1@x>", "misc.test"), "misc.test", false)
	db.InsertArticle(testArticle("<v2@x>", "misc.test"), "misc.test", true) // pending
	db.MarkCancelled("<v1@x>")

	// Live view: both flagged rows are invisible
	group, err := db.LookupCatalog("misc.test", nil)
	if err != nil {
		t.Fatal(err)
	}
	if group.MessageCount != 0 {
		t.Errorf("live count = %d, want 0", group.MessageCount)
	}

	// Virtual views are denied to anonymous principals
	if _, err := db.LookupCatalog("misc.test.deleted", nil); err == nil {
		t.Error("anonymous lookup of .deleted view should fail")
	}
	if _, err := db.LookupCatalog("misc.test.pending", nil); err == nil {
		t.Error("anonymous lookup of .pending view should fail")
	}

	admin := &models.Principal{Username: "admin", CanCancel: true, CanApproveAny: true}
	deleted, err := db.LookupCatalog("misc.test.deleted", admin)
	if err != nil {
		t.Fatal(err)
	}
	if deleted.MessageCount != 1 || deleted.LowWatermark != 1 {
		t.Errorf("deleted view counters = %d %d", deleted.MessageCount, deleted.LowWatermark)
	}
	if _, err := db.GetArticleEntry(deleted, 1); err != nil {
		t.Errorf("deleted view entry 1: %v", err)
	}

	pending, err := db.LookupCatalog("misc.test.pending", admin)
	if err != nil {
		t.Fatal(err)
	}
	if pending.MessageCount != 1 || pending.LowWatermark != 2 {
		t.Errorf("pending view counters = %d %d", pending.MessageCount, pending.LowWatermark)
	}
}

func TestMarkApprovedClearsPending(t *testing.T) {
	db := openTestDB(t)
	db.CreateCatalog("mod.group", "", true, "admin")
	db.InsertArticle(testArticle("<p1@x>", "mod.group"), "mod.group", true)

	if err := db.MarkApproved("mod.group", "<p1@x>", "mod@example.org"); err != nil {
		t.Fatalf("MarkApproved: %v", err)
	}

	group, err := db.LookupCatalog("mod.group", nil)
	if err != nil {
		t.Fatal(err)
	}
	if group.MessageCount != 1 {
		t.Errorf("approved article not live: count = %d", group.MessageCount)
	}
	entry, err := db.GetArticleEntry(group, 1)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Article.Approved != "mod@example.org" {
		t.Errorf("Approved = %q", entry.Article.Approved)
	}

	// Approving a non-pending article reports no rows
	if err := db.MarkApproved("mod.group", "<p1@x>", "again"); err == nil {
		t.Error("re-approval should fail")
	}
}

func TestLastNextAdjacency(t *testing.T) {
	db := openTestDB(t)
	db.CreateCatalog("misc.test", "", false, "admin")
	for _, id := range []string{"<a1@x>", "<a2@x>", "<a3@x>"} {
		db.InsertArticle(testArticle(id, "misc.test"), "misc.test", false)
	}
	db.MarkCancelled("<a2@x>") // adjacency skips cancelled rows

	group, _ := db.LookupCatalog("misc.test", nil)

	next, err := db.NextArticleAfter(group, 1)
	if err != nil {
		t.Fatal(err)
	}
	if next.ArticleNum != 3 {
		t.Errorf("NextArticleAfter(1) = %d, want 3", next.ArticleNum)
	}

	last, err := db.LastArticleBefore(group, 3)
	if err != nil {
		t.Fatal(err)
	}
	if last.ArticleNum != 1 {
		t.Errorf("LastArticleBefore(3) = %d, want 1", last.ArticleNum)
	}

	if _, err := db.LastArticleBefore(group, 1); err == nil {
		t.Error("LastArticleBefore at the boundary should fail")
	}
}

func TestRangeArticles(t *testing.T) {
	db := openTestDB(t)
	db.CreateCatalog("misc.test", "", false, "admin")
	for _, id := range []string{"<g1@x>", "<g2@x>", "<g3@x>"} {
		db.InsertArticle(testArticle(id, "misc.test"), "misc.test", false)
	}

	group, _ := db.LookupCatalog("misc.test", nil)
	entries, err := db.RangeArticles(group, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].ArticleNum != 2 || entries[1].ArticleNum != 3 {
		t.Errorf("RangeArticles(2,3) = %v", entries)
	}
}

func TestArticlesSince(t *testing.T) {
	db := openTestDB(t)
	db.CreateCatalog("misc.test", "", false, "admin")
	db.InsertArticle(testArticle("<s1@x>", "misc.test"), "misc.test", false)

	entries, err := db.ArticlesSince(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Article.MessageID != "<s1@x>" {
		t.Errorf("ArticlesSince = %v", entries)
	}

	entries, err = db.ArticlesSince(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("future ArticlesSince = %v", entries)
	}
}

func TestCatalogNameNeedsDot(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.CreateCatalog("nodot", "", false, "admin"); err == nil {
		t.Error("catalog without dot should be rejected")
	}
}

func TestPrincipalAuth(t *testing.T) {
	db := openTestDB(t)
	p := &models.Principal{
		Username: "alice", Password: "secret", Posting: true, MaxConns: 3,
		IsActive: true, Moderates: []string{"comp.lang.*"},
	}
	if err := db.InsertPrincipal(p); err != nil {
		t.Fatalf("InsertPrincipal: %v", err)
	}

	got, err := db.AuthenticatePrincipal("alice", "secret")
	if err != nil {
		t.Fatalf("AuthenticatePrincipal: %v", err)
	}
	if got.Username != "alice" || len(got.Moderates) != 1 {
		t.Errorf("principal = %+v", got)
	}
	if !got.CanApprove("comp.lang.go") {
		t.Error("moderator pattern not honored")
	}
	if got.CanApprove("misc.test") {
		t.Error("moderation must not leak to other groups")
	}

	if _, err := db.AuthenticatePrincipal("alice", "wrong"); err == nil {
		t.Error("wrong password accepted")
	}
	if _, err := db.AuthenticatePrincipal("nobody", "secret"); err == nil {
		t.Error("unknown user accepted")
	}
}

func TestSaltedSHA512Verify(t *testing.T) {
	stored, err := MakeSaltedSHA512("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if !verifySaltedSHA512(stored, "hunter2") {
		t.Error("correct secret rejected")
	}
	if verifySaltedSHA512(stored, "hunter3") {
		t.Error("wrong secret accepted")
	}
	if verifySaltedSHA512("not-a-hash", "x") {
		t.Error("malformed stored hash accepted")
	}
}

func TestGroupsSince(t *testing.T) {
	db := openTestDB(t)
	db.CreateCatalog("misc.test", "", false, "admin")

	groups, err := db.GroupsSince(time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0].Name != "misc.test" {
		t.Errorf("GroupsSince = %v", groups)
	}

	groups, err = db.GroupsSince(time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 0 {
		t.Errorf("future GroupsSince = %v", groups)
	}
}
