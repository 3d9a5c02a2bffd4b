package runner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/dom"
	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/state"
	"github.com/yourusername/linkedin-connect/internal/status"
	"github.com/yourusername/linkedin-connect/internal/stealth"
	"github.com/yourusername/linkedin-connect/internal/stealth/stealthtest"
	"github.com/yourusername/linkedin-connect/internal/storage"
	"github.com/yourusername/linkedin-connect/internal/testutil/fakepage"
)

func TestMain(m *testing.M) {
	logger.Replace(zap.NewNop())
	goleak.VerifyTestMain(m)
}

func runConfig() config.RunConfig {
	return config.RunConfig{
		SenderName:       "Ana Souza",
		SenderRole:       "Backend Engineer",
		SenderSearchArea: "Go",
		MessageTemplate:  "Hi {firstName}!",
		IncludeNote:      true,
		MinDelay:         2 * time.Second,
		MaxDelay:         2 * time.Second,
		ScrollDelay:      3 * time.Second,
		DefaultLimit:     100,
		PremiumLimit:     200,
		TestMode:         config.TestMode{PauseBeforeSend: true, MaxTestConnections: 3},
	}
}

type fixture struct {
	page     *fakepage.Page
	ctrl     *Controller
	sleeper  *stealthtest.Sleeper
	reporter *status.Recorder
}

func newFixture(t *testing.T, opts fakepage.Options, mutate ...func(*Options)) *fixture {
	t.Helper()
	page, err := fakepage.New(opts)
	require.NoError(t, err)

	f := &fixture{page: page, sleeper: &stealthtest.Sleeper{}, reporter: &status.Recorder{}}
	o := Options{Sleeper: f.sleeper, Reporter: f.reporter}
	for _, m := range mutate {
		m(&o)
	}
	f.ctrl = New(runConfig(), page, o)
	t.Cleanup(f.ctrl.Close)
	return f
}

func pages(sizes ...int) [][]fakepage.Profile {
	out := make([][]fakepage.Profile, len(sizes))
	for i, n := range sizes {
		out[i] = fakepage.Names(string(rune('A'+i)), n)
	}
	return out
}

func (f *fixture) hasStatus(sub string) bool {
	for _, s := range f.reporter.Statuses() {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func TestRun_CompletesWhenPagesRunOut(t *testing.T) {
	f := newFixture(t, fakepage.Options{Pages: pages(3, 3), AddNote: true, NoteField: true})

	snap, err := f.ctrl.Run(context.Background(), Inputs{Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, state.Completed, snap.StopReason)
	assert.False(t, snap.Running)
	assert.Equal(t, 6, snap.Sent)
	assert.Equal(t, 4, snap.Remaining)
	assert.Len(t, f.page.Sent, 6)
	assert.Equal(t, "Hi A1!", f.page.Sent[0].Note)
	assert.Equal(t, 1, f.page.PageIndex())
	assert.True(t, f.hasStatus("Started with 10 connections remaining. Premium user: No"))

	// no implicit restart
	assert.False(t, f.ctrl.State().Running())
	assert.Len(t, f.page.Sent, 6)
}

func TestRun_StopsAtLimit(t *testing.T) {
	f := newFixture(t, fakepage.Options{Pages: pages(3, 3)})

	snap, err := f.ctrl.Run(context.Background(), Inputs{Limit: 4})
	require.NoError(t, err)

	assert.Equal(t, state.LimitReached, snap.StopReason)
	assert.Equal(t, 4, snap.Sent)
	assert.Zero(t, snap.Remaining)
	assert.Equal(t, 1, f.page.PageIndex())
	assert.Contains(t, f.reporter.PanelStatuses(), "Limit reached")
}

func TestRun_ResumeRebasesQuota(t *testing.T) {
	f := newFixture(t, fakepage.Options{Pages: pages(6)})

	snap, err := f.ctrl.Run(context.Background(), Inputs{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 2, snap.Sent)

	snap, err = f.ctrl.Run(context.Background(), Inputs{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, state.LimitReached, snap.StopReason)
	assert.Equal(t, 5, snap.Sent)
	assert.True(t, f.hasStatus("Started with 3 connections remaining"))
}

func TestRun_DefaultLimitPerAccountClass(t *testing.T) {
	f := newFixture(t, fakepage.Options{Pages: pages(1)})

	snap, err := f.ctrl.Run(context.Background(), Inputs{Premium: true})
	require.NoError(t, err)
	assert.Equal(t, 200, snap.Limit)
	assert.True(t, f.hasStatus("Premium user: Yes"))
}

func TestRun_TestModeManualReview(t *testing.T) {
	f := newFixture(t, fakepage.Options{Pages: pages(3), AddNote: true, NoteField: true})

	snap, err := f.ctrl.Run(context.Background(), Inputs{TestMode: true, Limit: 1})
	require.NoError(t, err)

	assert.Equal(t, state.ManualReview, snap.StopReason)
	assert.Zero(t, snap.Sent)
	assert.Zero(t, snap.Canceled)
	assert.True(t, f.page.DialogOpen())
	assert.Empty(t, f.page.Sent)
}

func TestRun_TestModeCancelsEveryCandidate(t *testing.T) {
	f := newFixture(t, fakepage.Options{Pages: pages(5, 2)})
	var afterFifth state.Snapshot
	f.sleeper.Hook = func(int, time.Duration) {
		snap := f.ctrl.Snapshot()
		if snap.Canceled == 5 && afterFifth.Canceled == 0 {
			afterFifth = snap
		}
	}

	snap, err := f.ctrl.Run(context.Background(), Inputs{TestMode: true, Limit: 5})
	require.NoError(t, err)

	assert.True(t, afterFifth.Running)
	assert.Equal(t, 5, afterFifth.Remaining)
	assert.Equal(t, state.Completed, snap.StopReason)
	assert.Equal(t, 7, snap.Canceled)
	assert.Zero(t, snap.Sent)
	assert.Empty(t, f.page.Sent)
}

func TestRun_StandardStopsOnFirstBanner(t *testing.T) {
	f := newFixture(t, fakepage.Options{Pages: pages(6), BannerAfterSends: 2})

	snap, err := f.ctrl.Run(context.Background(), Inputs{Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, state.RateLimited, snap.StopReason)
	assert.Equal(t, 2, snap.Sent)
	assert.Equal(t, 1, f.page.Acknowledged)
	assert.Contains(t, f.reporter.PanelStatuses(), "Rate limited")
}

func TestRun_PremiumStopsOnSecondBanner(t *testing.T) {
	f := newFixture(t, fakepage.Options{Pages: pages(6), BannerAfterSends: 2})

	snap, err := f.ctrl.Run(context.Background(), Inputs{Premium: true, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, state.RateLimited, snap.StopReason)
	assert.True(t, snap.WarnedOnce)
	assert.Equal(t, 3, snap.Sent)
	assert.Equal(t, 2, f.page.Acknowledged)
}

type flakyDoc struct {
	dom.Document
	failures int
}

func (d *flakyDoc) QueryAll(selector string) ([]dom.Element, error) {
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("execution context was destroyed")
	}
	return d.Document.QueryAll(selector)
}

func TestRun_RetriesFailedPass(t *testing.T) {
	page, err := fakepage.New(fakepage.Options{Pages: pages(2)})
	require.NoError(t, err)
	sleeper := &stealthtest.Sleeper{}
	reporter := &status.Recorder{}
	ctrl := New(runConfig(), &flakyDoc{Document: page, failures: 2}, Options{Sleeper: sleeper, Reporter: reporter})
	t.Cleanup(ctrl.Close)

	snap, err := ctrl.Run(context.Background(), Inputs{Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, state.Completed, snap.StopReason)
	assert.False(t, snap.Running)
	assert.Equal(t, 2, snap.Sent)
	assert.Equal(t, 2, sleeper.Count(BackoffDelay))
	assert.Len(t, page.Sent, 2)

	// the controller is idle again and accepts a new run
	snap, err = ctrl.Run(context.Background(), Inputs{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, state.Completed, snap.StopReason)
}

func TestRun_BannerOnEmptyPageStopsBeforePaginating(t *testing.T) {
	f := newFixture(t, fakepage.Options{Pages: pages(0, 0, 2)})
	f.page.ShowBanner()

	snap, err := f.ctrl.Run(context.Background(), Inputs{Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, state.RateLimited, snap.StopReason)
	assert.Zero(t, snap.Sent)
	assert.Zero(t, f.page.PageIndex())
	assert.Equal(t, 1, f.page.Acknowledged)
	assert.Contains(t, f.reporter.PanelStatuses(), "Rate limited")
}

func TestRun_PremiumWarningOnEmptyPageKeepsPaginating(t *testing.T) {
	f := newFixture(t, fakepage.Options{Pages: pages(0, 2)})
	f.page.ShowBanner()

	snap, err := f.ctrl.Run(context.Background(), Inputs{Premium: true, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, state.Completed, snap.StopReason)
	assert.True(t, snap.WarnedOnce)
	assert.Equal(t, 2, snap.Sent)
	assert.Equal(t, 1, f.page.PageIndex())
}

func TestStart_SecondStartIsNoOp(t *testing.T) {
	f := newFixture(t, fakepage.Options{Pages: pages(3)})
	entered := make(chan struct{})
	release := make(chan struct{})
	f.sleeper.Hook = func(n int, _ time.Duration) {
		if n == 1 {
			close(entered)
			<-release
		}
	}

	require.True(t, f.ctrl.Start(Inputs{Limit: 10}))
	<-entered

	before := f.ctrl.Snapshot()
	assert.False(t, f.ctrl.Start(Inputs{Premium: true, Limit: 50}))
	assert.Equal(t, before, f.ctrl.Snapshot())

	_, err := f.ctrl.Run(context.Background(), Inputs{Limit: 3})
	assert.ErrorIs(t, err, ErrBusy)

	assert.True(t, f.ctrl.Stop())
	close(release)
	f.ctrl.Wait()

	snap := f.ctrl.Snapshot()
	assert.False(t, snap.Running)
	assert.Equal(t, state.StoppedByUser, snap.StopReason)
	assert.Equal(t, 1, snap.Sent)
	assert.Contains(t, f.reporter.PanelStatuses(), "Stopped")
}

func TestClose_CancelsPendingWaits(t *testing.T) {
	page, err := fakepage.New(fakepage.Options{Pages: pages(3)})
	require.NoError(t, err)
	cfg := runConfig()
	cfg.MinDelay, cfg.MaxDelay = time.Hour, time.Hour
	ctrl := New(cfg, page, Options{Sleeper: stealth.RealSleeper{}, Reporter: &status.Recorder{}})

	require.True(t, ctrl.Start(Inputs{Limit: 10}))
	ctrl.Close()

	snap := ctrl.Snapshot()
	assert.False(t, snap.Running)
	assert.Zero(t, snap.Sent)
}

func TestRun_ContextCanceled(t *testing.T) {
	f := newFixture(t, fakepage.Options{Pages: pages(3)})
	ctx, cancel := context.WithCancel(context.Background())
	f.sleeper.Hook = func(n int, _ time.Duration) {
		if n == 1 {
			cancel()
		}
	}

	snap, err := f.ctrl.Run(ctx, Inputs{Limit: 10})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, snap.Running)
	assert.Equal(t, state.StoppedByUser, snap.StopReason)
}

func TestRun_Journal(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := newFixture(t, fakepage.Options{Pages: pages(3), AddNote: true, NoteField: true, Send: fakepage.SendEnabled},
		func(o *Options) { o.Journal = store })

	_, err = f.ctrl.Run(context.Background(), Inputs{Limit: 2})
	require.NoError(t, err)

	runs, err := store.Runs(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "limit reached", runs[0].StopReason)
	assert.Equal(t, 2, runs[0].Sent)
	assert.Equal(t, 2, runs[0].Limit)

	invs, err := store.RecentInvitations(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, invs, 2)
	for _, inv := range invs {
		assert.Equal(t, runs[0].ID, inv.RunID)
		assert.Equal(t, "sent", inv.Outcome)
		assert.True(t, inv.WithNote)
	}
}

func TestSetLimit_UpdatesRemaining(t *testing.T) {
	f := newFixture(t, fakepage.Options{Pages: pages(1)})
	f.ctrl.SetLimit(42)

	counts, ok := f.reporter.LastCounts()
	require.True(t, ok)
	assert.Equal(t, 42, counts.Remaining)
	assert.Equal(t, 200, f.ctrl.LimitFor(true))
}
