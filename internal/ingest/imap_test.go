package ingest

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

type fakeMailbox struct {
	messages map[uint32][]byte
	order    []uint32
	seen     []uint32
	fetched  []uint32
	err      error
}

func (f *fakeMailbox) Unseen(ctx context.Context) ([]uint32, error) {
	return f.order, f.err
}

func (f *fakeMailbox) Fetch(ctx context.Context, uid uint32) ([]byte, error) {
	f.fetched = append(f.fetched, uid)
	raw, ok := f.messages[uid]
	if !ok {
		return nil, fmt.Errorf("uid %d not found", uid)
	}
	return raw, nil
}

func (f *fakeMailbox) MarkSeen(ctx context.Context, uid uint32) error {
	f.seen = append(f.seen, uid)
	return nil
}

func newFakeMailbox(msgs ...string) *fakeMailbox {
	f := &fakeMailbox{messages: map[uint32][]byte{}}
	for i, m := range msgs {
		uid := uint32(i + 1)
		f.order = append(f.order, uid)
		f.messages[uid] = []byte(m)
	}
	return f
}

type part struct {
	name    string
	content string
	inline  bool
}

// mimeMessage builds a multipart/mixed message with CRLF line endings.
func mimeMessage(subject string, parts ...part) string {
	const boundary = "b0undary"
	var b strings.Builder
	w := func(s string) { b.WriteString(s + "\r\n") }
	w("From: bank@example.com")
	w("To: docs@example.com")
	w("Subject: " + subject)
	w("MIME-Version: 1.0")
	w(`Content-Type: multipart/mixed; boundary="` + boundary + `"`)
	w("")
	w("--" + boundary)
	w("Content-Type: text/plain; charset=utf-8")
	w("")
	w("Please find the documents attached.")
	for _, p := range parts {
		w("--" + boundary)
		w("Content-Type: application/octet-stream")
		w("Content-Transfer-Encoding: base64")
		if p.inline {
			w("Content-Disposition: inline")
		} else {
			w(`Content-Disposition: attachment; filename="` + p.name + `"`)
		}
		w("")
		w(base64.StdEncoding.EncodeToString([]byte(p.content)))
	}
	w("--" + boundary + "--")
	return b.String()
}

func testSource(box Mailbox, dir string) *IMAPSource {
	s := NewIMAPSource(box, MailOptions{Subject: "MBD Emirates", Dir: dir}, nil)
	s.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	s.token = func() string { return "abcd1234" }
	return s
}

func TestIMAPSource_NewestMatchFirst(t *testing.T) {
	dir := t.TempDir()
	box := newFakeMailbox(
		mimeMessage("MBD Emirates shipment 1", part{name: "lc.pdf", content: "old lc"}),
		mimeMessage("Weekly newsletter", part{name: "promo.pdf", content: "promo"}),
		mimeMessage("Fwd: mbd emirates shipment 2",
			part{name: "b_invoice.pdf", content: "invoice"},
			part{name: "a_awb.PNG", content: "awb"},
		),
	)
	src := testSource(box, dir)

	b, err := src.Next(context.Background())
	require.NoError(t, err)

	root := filepath.Join(dir, "mail_20260314_093000_abcd1234")
	assert.Equal(t, root, b.Root)
	assert.Equal(t, []string{filepath.Join(root, "a_awb.PNG"), filepath.Join(root, "b_invoice.pdf")}, b.Files)
	assert.NotEmpty(t, b.ID)
	got, err := os.ReadFile(filepath.Join(root, "b_invoice.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "invoice", string(got))
	assert.Equal(t, []uint32{3}, box.seen)

	src.token = func() string { return "ffff0000" }
	b, err = src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "mail_20260314_093000_ffff0000", "lc.pdf")}, b.Files)
	assert.Equal(t, []uint32{3, 1}, box.seen)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, []uint32{3, 2, 1}, box.fetched)
	assert.NotContains(t, box.seen, uint32(2))
}

func TestIMAPSource_EncodedSubject(t *testing.T) {
	box := newFakeMailbox(mimeMessage("=?UTF-8?B?TUJEIEVtaXJhdGVzIOKAkyBMQyBEWEItNzc4MQ==?=", part{name: "lc.pdf", content: "lc"}))

	b, err := testSource(box, t.TempDir()).Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, b.Files, 1)
}

func TestIMAPSource_FiltersAttachments(t *testing.T) {
	dir := t.TempDir()
	box := newFakeMailbox(mimeMessage("MBD emirates",
		part{name: "../../escape.pdf", content: "lc"},
		part{name: "notes.txt", content: "skip"},
		part{name: "", inline: true, content: "inline"},
		part{name: "scan.jpg", content: "one"},
		part{name: "scan.jpg", content: "two"},
	))

	b, err := testSource(box, dir).Next(context.Background())
	require.NoError(t, err)

	root := filepath.Join(dir, "mail_20260314_093000_abcd1234")
	assert.Equal(t, []string{
		filepath.Join(root, "escape.pdf"),
		filepath.Join(root, "scan.jpg"),
		filepath.Join(root, "scan_1.jpg"),
	}, b.Files)
	for _, f := range b.Files {
		assert.True(t, strings.HasPrefix(f, root), f)
	}
	_, err = os.Stat(filepath.Join(dir, "..", "escape.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestIMAPSource_MatchWithoutAttachmentsIsSkipped(t *testing.T) {
	box := newFakeMailbox(
		mimeMessage("MBD emirates LC", part{name: "lc.pdf", content: "lc"}),
		mimeMessage("MBD emirates reminder", part{name: "notes.txt", content: "text only"}),
	)

	b, err := testSource(box, t.TempDir()).Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, b.Files, 1)
	assert.Equal(t, []uint32{2, 1}, box.seen)
}

func TestIMAPSource_NoUnreadMail(t *testing.T) {
	_, err := testSource(newFakeMailbox(), t.TempDir()).Next(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestIMAPSource_SearchFailureIsCollaboratorError(t *testing.T) {
	box := &fakeMailbox{err: errors.New("connection reset")}

	_, err := testSource(box, t.TempDir()).Next(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCollaborator)
	assert.Equal(t, common.CodeCollaboratorUnavailable, common.CodeOf(err))
}

func TestParseMail_SinglePartHasNoAttachments(t *testing.T) {
	raw := "Subject: MBD emirates\r\nContent-Type: text/plain\r\n\r\nno files here\r\n"

	msg, err := ParseMail([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "MBD emirates", msg.Subject)
	assert.Empty(t, msg.Attachments)
}
