package ingest

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

var _ Mailbox = (*IMAPMailbox)(nil)

// IMAPMailbox is a logged-in IMAP session with one mailbox selected.
type IMAPMailbox struct {
	client *imapclient.Client
	logger *slog.Logger
}

// DialIMAP connects over TLS, logs in and selects cfg.Mailbox. A server
// without a port gets 993.
func DialIMAP(ctx context.Context, cfg common.IMAPConfig, logger *slog.Logger) (*IMAPMailbox, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	addr := cfg.Server
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "993")
	}
	host, _, _ := net.SplitHostPort(addr)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	d := tls.Dialer{Config: &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}}
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		logger.Error("imap.dial.failed", "server", addr, "error", err)
		return nil, common.CollaboratorError("imap", err)
	}
	c := imapclient.New(conn, nil)

	if err := c.Login(cfg.User, cfg.Password).Wait(); err != nil {
		_ = c.Close()
		logger.Error("imap.login.failed", "server", addr, "user", cfg.User, "error", err)
		return nil, common.CollaboratorError("imap login", err)
	}
	sel, err := c.Select(cfg.Mailbox, nil).Wait()
	if err != nil {
		_ = c.Close()
		return nil, common.CollaboratorError("imap select "+cfg.Mailbox, err)
	}
	logger.Info("imap.connected",
		"server", addr,
		"mailbox", cfg.Mailbox,
		"messages", sel.NumMessages,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &IMAPMailbox{client: c, logger: logger}, nil
}

func (m *IMAPMailbox) Unseen(ctx context.Context) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	criteria := &imap.SearchCriteria{NotFlag: []imap.Flag{imap.FlagSeen}}
	data, err := m.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}
	uids := data.AllUIDs()
	out := make([]uint32, len(uids))
	for i, uid := range uids {
		out[i] = uint32(uid)
	}
	return out, nil
}

// Fetch reads the full message without setting \Seen.
func (m *IMAPMailbox) Fetch(ctx context.Context, uid uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	section := &imap.FetchItemBodySection{Peek: true}
	msgs, err := m.client.Fetch(imap.UIDSetNum(imap.UID(uid)), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	}).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetch uid %d: %w", uid, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("fetch uid %d: message gone", uid)
	}
	return msgs[0].FindBodySection(section), nil
}

func (m *IMAPMailbox) MarkSeen(ctx context.Context, uid uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	flags := &imap.StoreFlags{Op: imap.StoreFlagsAdd, Silent: true, Flags: []imap.Flag{imap.FlagSeen}}
	if err := m.client.Store(imap.UIDSetNum(imap.UID(uid)), flags, nil).Close(); err != nil {
		return fmt.Errorf("mark uid %d seen: %w", uid, err)
	}
	return nil
}

// Close logs out and drops the connection.
func (m *IMAPMailbox) Close() error {
	if err := m.client.Logout().Wait(); err != nil {
		m.logger.Warn("imap.logout.failed", "error", err)
	}
	return m.client.Close()
}
