package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhate/sallebot/config"
	"github.com/tazhate/sallebot/internal/domain"
)

type fakeSyncer struct {
	err      error
	triggers []domain.SyncTrigger
}

func (f *fakeSyncer) Resync(ctx context.Context, trigger domain.SyncTrigger) (*domain.SyncRun, error) {
	f.triggers = append(f.triggers, trigger)
	return &domain.SyncRun{Trigger: trigger}, f.err
}

type fakeSender struct {
	chats []int64
	texts []string
}

func (f *fakeSender) SendMessage(chatID int64, text string) error {
	f.chats = append(f.chats, chatID)
	f.texts = append(f.texts, text)
	return nil
}

type fakePruner struct {
	keep int
}

func (f *fakePruner) PruneSyncRuns(keep int) (int64, error) {
	f.keep = keep
	return 3, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Timezone:     time.UTC,
		SyncSchedule: "@every 1h",
		AdminChatID:  42,
	}
}

func TestResyncSuccessIsSilent(t *testing.T) {
	syncer := &fakeSyncer{}
	sender := &fakeSender{}
	s := New(testConfig(), syncer, nil)
	s.SetSender(sender)

	s.resync()

	assert.Equal(t, []domain.SyncTrigger{domain.TriggerSchedule}, syncer.triggers)
	assert.Empty(t, sender.texts)
}

func TestResyncFailureNotifiesAdmin(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("fetch calendar feed: HTTP <503>")}
	sender := &fakeSender{}
	s := New(testConfig(), syncer, nil)
	s.SetSender(sender)

	s.resync()

	require.Len(t, sender.texts, 1)
	assert.Equal(t, int64(42), sender.chats[0])
	assert.Contains(t, sender.texts[0], "HTTP &lt;503&gt;")
}

func TestResyncFailureWithoutAdmin(t *testing.T) {
	cfg := testConfig()
	cfg.AdminChatID = 0
	sender := &fakeSender{}
	s := New(cfg, &fakeSyncer{err: errors.New("boom")}, nil)
	s.SetSender(sender)

	s.resync()

	assert.Empty(t, sender.texts)
}

func TestPruneJournal(t *testing.T) {
	pruner := &fakePruner{}
	s := New(testConfig(), &fakeSyncer{}, pruner)

	s.pruneJournal()

	assert.Equal(t, keepSyncRuns, pruner.keep)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.SyncSchedule = "every now and then"
	s := New(cfg, &fakeSyncer{}, nil)

	err := s.Start(context.Background())
	assert.Error(t, err)
}

func TestStartStops(t *testing.T) {
	s := New(testConfig(), &fakeSyncer{}, &fakePruner{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	s.Stop()
}
