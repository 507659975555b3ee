package inbox

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/core"
)

func rawMessage(from, subject string, date time.Time) []byte {
	return []byte(strings.ReplaceAll(fmt.Sprintf(`From: %s
To: me@example.test
Subject: %s
Date: %s

Click https://acme.test/verify?t=1
`, from, subject, date.Format(time.RFC1123Z)), "\n", "\r\n"))
}

func startInbox(t *testing.T, cfg Config) *Inbox {
	t.Helper()
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = "127.0.0.1:0"
	}
	b := NewInbox(cfg, zap.NewNop())
	require.NoError(t, b.Start())
	t.Cleanup(func() { _ = b.Stop() })
	return b
}

func TestInbox_DeliverAndSearch(t *testing.T) {
	b := startInbox(t, Config{})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, Deliver(b.Addr(), "no-reply@acme.test", []string{"me@example.test"},
		rawMessage("no-reply@acme.test", "older", base)))
	require.NoError(t, Deliver(b.Addr(), "no-reply@acme.test", []string{"me@example.test"},
		rawMessage("No-Reply@Acme.test", "newer", base.Add(time.Minute))))
	require.NoError(t, Deliver(b.Addr(), "other@example.test", []string{"me@example.test"},
		rawMessage("other@example.test", "unrelated", base.Add(2*time.Minute))))

	sess, err := b.Connect(context.Background())
	require.NoError(t, err)
	defer sess.Disconnect()

	msgs, err := sess.SearchRecentFrom(context.Background(), "no-reply@acme.test", 5)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "newer", msgs[0].Subject)
	assert.Equal(t, "older", msgs[1].Subject)
	assert.Contains(t, msgs[0].Text, "https://acme.test/verify?t=1")

	msgs, err = sess.SearchRecentFrom(context.Background(), "no-reply@acme.test", 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "newer", msgs[0].Subject)
}

func TestInbox_RingEvictsOldest(t *testing.T) {
	b := NewInbox(Config{MaxMessages: 2}, zap.NewNop())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := b.Store(rawMessage("a@example.test", fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Minute)), "a@example.test")
		require.NoError(t, err)
	}

	assert.Equal(t, 2, b.Len())
	msgs := b.search("a@example.test", 10)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m2", msgs[0].Subject)
	assert.Equal(t, "m1", msgs[1].Subject)
}

func TestInbox_StoreDefaultsDateToReceiveTime(t *testing.T) {
	b := NewInbox(Config{}, zap.NewNop())
	received := time.Date(2026, 5, 5, 5, 5, 5, 0, time.UTC)
	b.now = func() time.Time { return received }

	msg, err := b.Store([]byte("Subject: no date\r\n\r\nbody\r\n"), "x@example.test")
	require.NoError(t, err)
	assert.Equal(t, received, msg.Date)
	assert.Equal(t, "x@example.test", msg.From)
}

func TestInbox_ConnectBeforeStart(t *testing.T) {
	b := NewInbox(Config{}, zap.NewNop())
	_, err := b.Connect(context.Background())
	assert.ErrorIs(t, err, core.ErrMailboxUnavailable)
}

func TestInbox_RelaysAcceptedMail(t *testing.T) {
	downstream := startInbox(t, Config{})
	upstream := startInbox(t, Config{RelayAddress: downstream.Addr()})

	require.NoError(t, Deliver(upstream.Addr(), "no-reply@acme.test", []string{"me@example.test"},
		rawMessage("no-reply@acme.test", "relayed", time.Now())))

	assert.Equal(t, 1, upstream.Len())
	assert.Equal(t, 1, downstream.Len())
}

func TestDeliver_RequiresRecipients(t *testing.T) {
	assert.Error(t, Deliver("127.0.0.1:1", "a@example.test", nil, []byte("x")))
}
