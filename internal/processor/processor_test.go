package processor

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-while/go-mcnttp/internal/models"
)

// fakeStore is an in-memory Store for pipeline tests.
type fakeStore struct {
	groups    map[string]*models.Newsgroup
	inserted  map[string][]*models.Article // group -> articles in insertion order
	cancelled map[string]int
	approved  map[string]string // group/msgid -> approvedBy
	pending   map[string]bool   // group/msgid -> pending flag at insert
	removed   []string
}

func newFakeStore(groups ...*models.Newsgroup) *fakeStore {
	s := &fakeStore{
		groups:    make(map[string]*models.Newsgroup),
		inserted:  make(map[string][]*models.Article),
		cancelled: make(map[string]int),
		approved:  make(map[string]string),
		pending:   make(map[string]bool),
	}
	for _, g := range groups {
		s.groups[g.Name] = g
	}
	return s
}

func (s *fakeStore) GetNewsgroup(name string) (*models.Newsgroup, error) {
	g, ok := s.groups[name]
	if !ok {
		return nil, fmt.Errorf("no such newsgroup %q", name)
	}
	return g, nil
}

func (s *fakeStore) InsertArticle(article *models.Article, group string, pending bool) (int64, error) {
	s.inserted[group] = append(s.inserted[group], article)
	num := int64(len(s.inserted[group]))
	article.ArticleNums[group] = num
	s.pending[group+"/"+article.MessageID] = pending
	return num, nil
}

func (s *fakeStore) MarkCancelled(messageID string) (int64, error) {
	s.cancelled[messageID]++
	return 1, nil
}

func (s *fakeStore) MarkApproved(group, messageID, approvedBy string) error {
	key := group + "/" + messageID
	if !s.pending[key] {
		return sql.ErrNoRows
	}
	s.pending[key] = false
	s.approved[key] = approvedBy
	return nil
}

func (s *fakeStore) CreateCatalog(name, description string, moderated bool, creator string) (*models.Newsgroup, error) {
	g := &models.Newsgroup{Name: name, Description: description, Moderated: moderated, CreatorEntity: creator}
	s.groups[name] = g
	return g, nil
}

func (s *fakeStore) RemoveCatalog(name string) error {
	if _, ok := s.groups[name]; !ok {
		return sql.ErrNoRows
	}
	delete(s.groups, name)
	s.removed = append(s.removed, name)
	return nil
}

func postHead(extra ...string) []string {
	head := []string{
		"From: a@b.invalid",
		"Newsgroups: misc.test",
		"Subject: hi",
		"Message-ID: <t1@x>",
	}
	return append(head, extra...)
}

func TestProcessSimplePost(t *testing.T) {
	store := newFakeStore(&models.Newsgroup{Name: "misc.test"})
	proc := NewProcessor(store)

	if err := proc.ProcessIncomingArticle(postHead(), []string{"body"}, nil); err != nil {
		t.Fatalf("ProcessIncomingArticle failed: %v", err)
	}
	if len(store.inserted["misc.test"]) != 1 {
		t.Fatalf("article not inserted: %v", store.inserted)
	}
	if store.pending["misc.test/<t1@x>"] {
		t.Error("unmoderated post should not be pending")
	}
}

func TestProcessCrossPost(t *testing.T) {
	store := newFakeStore(&models.Newsgroup{Name: "a.b"}, &models.Newsgroup{Name: "c.d"})
	proc := NewProcessor(store)

	head := []string{
		"From: a@b.invalid",
		"Newsgroups: a.b c.d",
		"Subject: x",
		"Message-ID: <t2@x>",
	}
	if err := proc.ProcessIncomingArticle(head, nil, nil); err != nil {
		t.Fatalf("cross-post failed: %v", err)
	}
	if len(store.inserted["a.b"]) != 1 || len(store.inserted["c.d"]) != 1 {
		t.Errorf("cross-post did not reach both groups: %v", store.inserted)
	}
	article := store.inserted["a.b"][0]
	if article.ArticleNums["a.b"] != 1 || article.ArticleNums["c.d"] != 1 {
		t.Errorf("per-group numbers wrong: %v", article.ArticleNums)
	}
}

func TestProcessUnknownGroupSkipped(t *testing.T) {
	store := newFakeStore(&models.Newsgroup{Name: "a.b"})
	proc := NewProcessor(store)

	head := []string{
		"From: a@b.invalid",
		"Newsgroups: a.b nope.nothere",
		"Subject: x",
		"Message-ID: <t3@x>",
	}
	if err := proc.ProcessIncomingArticle(head, nil, nil); err != nil {
		t.Fatalf("post failed: %v", err)
	}
	if len(store.inserted["a.b"]) != 1 || len(store.inserted["nope.nothere"]) != 0 {
		t.Errorf("unknown group handling wrong: %v", store.inserted)
	}
}

func TestProcessDenyLocalPostingSkipped(t *testing.T) {
	store := newFakeStore(&models.Newsgroup{Name: "a.b", DenyLocalPosting: true})
	proc := NewProcessor(store)

	head := []string{"From: a@b.invalid", "Newsgroups: a.b", "Subject: x", "Message-ID: <t4@x>"}
	if err := proc.ProcessIncomingArticle(head, nil, nil); err != nil {
		t.Fatalf("post failed: %v", err)
	}
	if len(store.inserted["a.b"]) != 0 {
		t.Error("post into deny-local group should be skipped")
	}
}

func TestAnonymousHeaderHygiene(t *testing.T) {
	store := newFakeStore(&models.Newsgroup{Name: "misc.test"})
	proc := NewProcessor(store)

	head := postHead(
		"Approved: sneaky@example.org",
		"Supersedes: <old@x>",
		"Injection-Info: forged",
		"Xref: forged.example misc.test:99",
	)
	if err := proc.ProcessIncomingArticle(head, nil, nil); err != nil {
		t.Fatalf("post failed: %v", err)
	}
	article := store.inserted["misc.test"][0]
	if article.Approved != "" || article.Supersedes != "" || article.InjectionInfo != "" || article.Xref != "" {
		t.Errorf("privileged headers survived anonymous post: %+v", article)
	}
	raw := strings.Join(article.RawHeaders, "\n")
	for _, gone := range []string{"Approved:", "Supersedes:", "Injection-Info:", "Xref:"} {
		if strings.Contains(raw, gone) {
			t.Errorf("RawHeaders still carries %s", gone)
		}
	}
	if article.InjectionDate == "" || !strings.Contains(raw, "Injection-Date: ") {
		t.Error("Injection-Date not stamped for non-injecting identity")
	}
	if store.cancelled["<old@x>"] != 0 {
		t.Error("stripped Supersedes must not cancel anything")
	}
}

func TestFollowupToDroppedWhenRedundant(t *testing.T) {
	store := newFakeStore(&models.Newsgroup{Name: "misc.test"})
	proc := NewProcessor(store)

	head := postHead("Followup-To: misc.test")
	if err := proc.ProcessIncomingArticle(head, nil, nil); err != nil {
		t.Fatal(err)
	}
	article := store.inserted["misc.test"][0]
	if article.FollowupTo != "" {
		t.Error("redundant Followup-To should be dropped")
	}
}

func TestControlRequiresCapability(t *testing.T) {
	store := newFakeStore(&models.Newsgroup{Name: "misc.test"})
	proc := NewProcessor(store)

	head := postHead("Control: cancel <victim@x>")

	// Anonymous: refused
	err := proc.ProcessIncomingArticle(head, nil, nil)
	if !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("anonymous control err = %v, want ErrNotAuthorized", err)
	}

	// Authenticated without CanCancel: refused
	plain := &models.Principal{Username: "user", Posting: true}
	err = proc.ProcessIncomingArticle(head, nil, plain)
	if !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("unprivileged control err = %v, want ErrNotAuthorized", err)
	}

	// Admin: cancel lands on the target and on the cancel message itself
	admin := &models.Principal{Username: "admin", CanCancel: true, CanInject: true, Posting: true}
	if err := proc.ProcessIncomingArticle(head, nil, admin); err != nil {
		t.Fatalf("admin cancel failed: %v", err)
	}
	if store.cancelled["<victim@x>"] != 1 {
		t.Error("cancel target not cancelled")
	}
	if store.cancelled["<t1@x>"] != 1 {
		t.Error("cancel article itself not cancelled")
	}
}

func TestNewgroupRmgroupControls(t *testing.T) {
	store := newFakeStore(&models.Newsgroup{Name: "misc.test"})
	proc := NewProcessor(store)
	admin := &models.Principal{
		Username: "admin", CanCreateCatalogs: true, CanDeleteCatalogs: true,
		CanInject: true, Posting: true,
	}

	head := postHead("Control: newgroup comp.lang.go moderated")
	if err := proc.ProcessIncomingArticle(head, nil, admin); err != nil {
		t.Fatalf("newgroup failed: %v", err)
	}
	g, err := store.GetNewsgroup("comp.lang.go")
	if err != nil || !g.Moderated {
		t.Fatalf("newgroup did not create moderated group: %v %v", g, err)
	}

	head = []string{
		"From: a@b.invalid", "Newsgroups: misc.test", "Subject: rm",
		"Message-ID: <rm1@x>", "Control: rmgroup comp.lang.go",
	}
	if err := proc.ProcessIncomingArticle(head, nil, admin); err != nil {
		t.Fatalf("rmgroup failed: %v", err)
	}
	if _, err := store.GetNewsgroup("comp.lang.go"); err == nil {
		t.Error("rmgroup did not remove the group")
	}
}

func TestModeratedPostPending(t *testing.T) {
	store := newFakeStore(&models.Newsgroup{Name: "mod.group", Moderated: true})
	proc := NewProcessor(store)

	head := []string{"From: a@b.invalid", "Newsgroups: mod.group", "Subject: x", "Message-ID: <m1@x>"}
	if err := proc.ProcessIncomingArticle(head, nil, nil); err != nil {
		t.Fatal(err)
	}
	if !store.pending["mod.group/<m1@x>"] {
		t.Error("post by non-approver into moderated group should be pending")
	}

	// A moderator's own post goes straight through
	mod := &models.Principal{Username: "mod", Posting: true, Moderates: []string{"mod.group"}}
	head[3] = "Message-ID: <m2@x>"
	if err := proc.ProcessIncomingArticle(head, nil, mod); err != nil {
		t.Fatal(err)
	}
	if store.pending["mod.group/<m2@x>"] {
		t.Error("moderator's post should not be pending")
	}
}

func TestApprovalShortcut(t *testing.T) {
	store := newFakeStore(&models.Newsgroup{Name: "mod.group", Moderated: true})
	proc := NewProcessor(store)

	// A pending article awaits approval
	head := []string{"From: a@b.invalid", "Newsgroups: mod.group", "Subject: x", "Message-ID: <m1@x>"}
	if err := proc.ProcessIncomingArticle(head, nil, nil); err != nil {
		t.Fatal(err)
	}
	if !store.pending["mod.group/<m1@x>"] {
		t.Fatal("setup: article should be pending")
	}

	mod := &models.Principal{
		Username: "mod", Mailbox: "mod@example.org", Posting: true,
		Moderates: []string{"mod.group"},
	}
	approveHead := []string{
		"From: mod@example.org",
		"Newsgroups: mod.group",
		"Subject: approval",
		"Message-ID: <appr1@x>",
		"References: <m1@x>",
	}
	if err := proc.ProcessIncomingArticle(approveHead, []string{"APPROVE"}, mod); err != nil {
		t.Fatalf("approval failed: %v", err)
	}
	if store.pending["mod.group/<m1@x>"] {
		t.Error("approved article still pending")
	}
	if store.approved["mod.group/<m1@x>"] != "mod@example.org" {
		t.Errorf("approvedBy = %q", store.approved["mod.group/<m1@x>"])
	}
	// The approval message itself is not stored
	for _, a := range store.inserted["mod.group"] {
		if a.MessageID == "<appr1@x>" {
			t.Error("approval message was stored")
		}
	}
}

func TestApprovalShortcutRequiresModerator(t *testing.T) {
	store := newFakeStore(&models.Newsgroup{Name: "mod.group", Moderated: true})
	proc := NewProcessor(store)

	head := []string{"From: a@b.invalid", "Newsgroups: mod.group", "Subject: x", "Message-ID: <m1@x>"}
	if err := proc.ProcessIncomingArticle(head, nil, nil); err != nil {
		t.Fatal(err)
	}

	// A non-moderator sending APPROVE falls through to a normal (pending)
	// posting; the referenced article stays pending.
	user := &models.Principal{Username: "user", Posting: true}
	approveHead := []string{
		"From: user@example.org", "Newsgroups: mod.group", "Subject: approval",
		"Message-ID: <appr2@x>", "References: <m1@x>",
	}
	if err := proc.ProcessIncomingArticle(approveHead, []string{"APPROVE"}, user); err != nil {
		t.Fatalf("post failed: %v", err)
	}
	if !store.pending["mod.group/<m1@x>"] {
		t.Error("non-moderator approval must not clear pending")
	}
	if !store.pending["mod.group/<appr2@x>"] {
		t.Error("fallthrough posting should be stored pending")
	}
}

func TestSupersedesWithCapability(t *testing.T) {
	store := newFakeStore(&models.Newsgroup{Name: "misc.test"})
	proc := NewProcessor(store)
	admin := &models.Principal{Username: "admin", CanCancel: true, Posting: true}

	head := postHead("Supersedes: <old@x>")
	if err := proc.ProcessIncomingArticle(head, nil, admin); err != nil {
		t.Fatal(err)
	}
	if store.cancelled["<old@x>"] != 1 {
		t.Error("supersede by privileged identity should cancel the old article")
	}
	if len(store.inserted["misc.test"]) != 1 {
		t.Error("superseding article should be stored")
	}
}
