package ingest

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

// Mailbox is the part of an IMAP session the mail source needs. UIDs are
// returned in ascending order.
type Mailbox interface {
	Unseen(ctx context.Context) ([]uint32, error)
	Fetch(ctx context.Context, uid uint32) ([]byte, error)
	MarkSeen(ctx context.Context, uid uint32) error
}

// MailOptions controls which unread messages become batches.
type MailOptions struct {
	// Subject is matched case-insensitively against the decoded subject.
	Subject string
	// Dir receives one mail_<timestamp>_<id> folder per matched message.
	Dir string
}

// IMAPSource yields one batch per unread message whose subject matches,
// newest first. Each matched message is marked seen once its attachments
// are saved.
type IMAPSource struct {
	box    Mailbox
	opts   MailOptions
	logger *slog.Logger

	now   func() time.Time
	token func() string

	pending []uint32
	loaded  bool
}

func NewIMAPSource(box Mailbox, opts MailOptions, logger *slog.Logger) *IMAPSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &IMAPSource{
		box:    box,
		opts:   opts,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		token:  randomToken,
	}
}

func (s *IMAPSource) Next(ctx context.Context) (Batch, error) {
	if !s.loaded {
		uids, err := s.box.Unseen(ctx)
		if err != nil {
			return Batch{}, common.CollaboratorError("imap search", err)
		}
		s.pending = make([]uint32, len(uids))
		for i, uid := range uids {
			s.pending[len(uids)-1-i] = uid
		}
		s.loaded = true
		s.logger.Info("ingest.mail.unseen", "count", len(uids))
	}

	want := strings.ToLower(strings.TrimSpace(s.opts.Subject))
	for len(s.pending) > 0 {
		if err := ctx.Err(); err != nil {
			return Batch{}, err
		}
		uid := s.pending[0]
		s.pending = s.pending[1:]

		raw, err := s.box.Fetch(ctx, uid)
		if err != nil {
			return Batch{}, common.CollaboratorError("imap fetch", err)
		}
		msg, err := ParseMail(raw)
		if err != nil {
			s.logger.Warn("ingest.mail.unreadable", "uid", uid, "error", err)
			continue
		}
		if !strings.Contains(strings.ToLower(msg.Subject), want) {
			s.logger.Debug("ingest.mail.skipped", "uid", uid, "subject", msg.Subject)
			continue
		}

		b, err := s.save(msg)
		if err != nil {
			return Batch{}, err
		}
		if err := s.box.MarkSeen(ctx, uid); err != nil {
			return Batch{}, common.CollaboratorError("imap store", err)
		}
		if len(b.Files) == 0 {
			s.logger.Warn("ingest.mail.no_attachments", "uid", uid, "subject", msg.Subject, "dropped", msg.Dropped)
			continue
		}
		s.logger.Info("ingest.mail.ok",
			"uid", uid,
			"subject", msg.Subject,
			"root", b.Root,
			"files", len(b.Files),
			"dropped", msg.Dropped,
		)
		return b, nil
	}
	return Batch{}, ErrExhausted
}

func (s *IMAPSource) save(msg *MailMessage) (Batch, error) {
	if len(msg.Attachments) == 0 {
		return Batch{}, nil
	}
	now := s.now()
	root := filepath.Join(s.opts.Dir, fmt.Sprintf("mail_%s_%s", now.Format("20060102_150405"), s.token()))
	if err := os.MkdirAll(root, 0o755); err != nil {
		return Batch{}, common.NewAppError(common.CodeStorage, "create mail folder", err)
	}

	files := make([]string, 0, len(msg.Attachments))
	used := map[string]int{}
	for _, a := range msg.Attachments {
		name := a.Name
		if n := used[name]; n > 0 {
			ext := filepath.Ext(name)
			name = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n, ext)
		}
		used[a.Name]++

		path := filepath.Join(root, name)
		if err := os.WriteFile(path, a.Content, 0o644); err != nil {
			return Batch{}, common.NewAppError(common.CodeStorage, "save attachment "+name, err)
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return Batch{ID: uuid.NewString(), Root: root, Files: files, CreatedAt: now}, nil
}

// Attachment is one saved-to-be file of a message.
type Attachment struct {
	Name    string
	Content []byte
}

// MailMessage is a parsed message reduced to what a batch needs.
type MailMessage struct {
	Subject     string
	Attachments []Attachment
	// Dropped counts attachments without a usable name or with an
	// unsupported extension.
	Dropped int
}

// ParseMail decodes an RFC 5322 message. Only parts with an attachment
// disposition and a supported extension are kept; names are reduced to
// their base so a part cannot write outside its folder.
func ParseMail(raw []byte) (*MailMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("read message: %w", err)
	}
	defer mr.Close()

	out := &MailMessage{}
	if subject, err := mr.Header.Subject(); err == nil || message.IsUnknownCharset(err) {
		out.Subject = subject
	}
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return nil, fmt.Errorf("read part: %w", err)
		}
		h, ok := p.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		name, _ := h.Filename()
		name = attachmentName(name)
		if name == "" || !AllowedExt(filepath.Ext(name)) {
			out.Dropped++
			continue
		}
		body, err := io.ReadAll(p.Body)
		if err != nil {
			return nil, fmt.Errorf("read attachment %s: %w", name, err)
		}
		out.Attachments = append(out.Attachments, Attachment{Name: name, Content: body})
	}
	return out, nil
}

func attachmentName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	name = filepath.Base(filepath.FromSlash(name))
	if name == "." || name == "/" || name == ".." || IsHidden(name) {
		return ""
	}
	return name
}

func randomToken() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uuid.NewString()[:8]
	}
	return hex.EncodeToString(b[:])
}
