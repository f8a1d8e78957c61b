package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfidaccess/access-control-backend/internal/access"
	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/internal/config"
	"github.com/rfidaccess/access-control-backend/internal/notify"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeBackend keeps holders in a map and records into slices; a recording
// that fails leaves nothing behind
type fakeBackend struct {
	mu        sync.Mutex
	holders   map[string]*access.CredentialHolder
	lookupErr error
	failEvent error
	alerts    []access.AlertRecord
	events    []access.EventRecord
}

func newFakeBackend(holders ...*access.CredentialHolder) *fakeBackend {
	b := &fakeBackend{holders: map[string]*access.CredentialHolder{}}
	for _, h := range holders {
		b.holders[h.Credential] = h
	}
	return b
}

func (b *fakeBackend) LookupCredential(_ context.Context, credential string) (*access.CredentialHolder, error) {
	if b.lookupErr != nil {
		return nil, b.lookupErr
	}
	return b.holders[credential], nil
}

func (b *fakeBackend) WithinRecording(_ context.Context, fn func(access.Recorder) error) error {
	tx := &fakeRecorder{backend: b}
	if err := fn(tx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = append(b.alerts, tx.alerts...)
	b.events = append(b.events, tx.events...)
	return nil
}

type fakeRecorder struct {
	backend *fakeBackend
	alerts  []access.AlertRecord
	events  []access.EventRecord
}

func (r *fakeRecorder) RecordAlert(_ context.Context, alert access.AlertRecord) (int64, error) {
	r.alerts = append(r.alerts, alert)
	return int64(100 + len(r.alerts)), nil
}

func (r *fakeRecorder) RecordEvent(_ context.Context, event access.EventRecord) (int64, error) {
	if r.backend.failEvent != nil {
		return 0, r.backend.failEvent
	}
	r.events = append(r.events, event)
	return int64(len(r.events)), nil
}

func activeHolder() *access.CredentialHolder {
	team := int64(2)
	return &access.CredentialHolder{Credential: "1234ABCD", FirstName: "Amira", LastName: "Haddad", TeamID: &team, Status: "ACTIVE"}
}

func newTestAccessService(backend access.Backend, cfg config.AccessConfig, at time.Time) (*AccessService, <-chan notify.Message) {
	broadcaster := notify.NewBroadcaster()
	messages, _ := broadcaster.Subscribe()
	svc := NewAccessService(backend, broadcaster, cfg, testLogger())
	svc.now = func() time.Time { return at }
	return svc, messages
}

func TestAccessService_Verify(t *testing.T) {
	noon := time.Date(2024, time.March, 12, 12, 0, 0, 0, time.UTC)

	t.Run("grant records an authorized event", func(t *testing.T) {
		backend := newFakeBackend(activeHolder())
		svc, messages := newTestAccessService(backend, config.AccessConfig{}, noon)

		decision, err := svc.Verify(context.Background(), "1234ABCD\r\n", SourceSerial)

		require.NoError(t, err)
		assert.Equal(t, "GRANT,Amira Haddad", decision.SerialLine())
		require.Len(t, backend.events, 1)
		event := backend.events[0]
		assert.Equal(t, access.EventAuthorized, event.Type)
		assert.Equal(t, "Door access granted", event.Description)
		require.NotNil(t, event.RFID)
		assert.Equal(t, "1234ABCD", *event.RFID)
		assert.Equal(t, int64(2), *event.TeamID)
		assert.Nil(t, event.AlertID)
		assert.Empty(t, backend.alerts)

		msg := <-messages
		assert.Equal(t, SourceSerial, msg.Source)
		assert.True(t, msg.Authorized)
	})

	t.Run("unknown credential raises a security alert", func(t *testing.T) {
		backend := newFakeBackend()
		svc, _ := newTestAccessService(backend, config.AccessConfig{}, noon)

		decision, err := svc.Verify(context.Background(), "DEADBEEF", SourceHTTP)

		require.NoError(t, err)
		assert.Equal(t, access.ReasonNotRegistered, decision.Reason)
		require.Len(t, backend.alerts, 1)
		assert.Equal(t, access.AlertSecurity, backend.alerts[0].Type)
		assert.Equal(t, "Unknown RFID: DEADBEEF", backend.alerts[0].Description)
		assert.Nil(t, backend.alerts[0].RFID)

		require.Len(t, backend.events, 1)
		event := backend.events[0]
		assert.Equal(t, access.EventSecurityAlert, event.Type)
		assert.Equal(t, "Unauthorized access with RFID: DEADBEEF", event.Description)
		require.NotNil(t, event.AlertID)
		assert.Equal(t, int64(101), *event.AlertID)
		assert.Nil(t, event.RFID)
	})

	t.Run("expired card", func(t *testing.T) {
		holder := activeHolder()
		yesterday := noon.AddDate(0, 0, -1)
		holder.CardExpiry = &yesterday
		backend := newFakeBackend(holder)
		svc, _ := newTestAccessService(backend, config.AccessConfig{}, noon)

		decision, err := svc.Verify(context.Background(), "1234ABCD", SourceHTTP)

		require.NoError(t, err)
		assert.Equal(t, "DENY", decision.SerialLine())
		require.Len(t, backend.events, 1)
		assert.Equal(t, access.EventDenied, backend.events[0].Type)
		assert.Equal(t, "Access denied: card expired", backend.events[0].Description)

		require.Len(t, backend.alerts, 1)
		alert := backend.alerts[0]
		assert.Equal(t, access.AlertExpiredCard, alert.Type)
		assert.Equal(t, "Expired card presented: 1234ABCD", alert.Description)
		require.NotNil(t, alert.RFID)
		assert.Equal(t, "1234ABCD", *alert.RFID)
		require.NotNil(t, backend.events[0].AlertID)
		assert.Equal(t, int64(101), *backend.events[0].AlertID)
	})

	t.Run("suspended card", func(t *testing.T) {
		holder := activeHolder()
		holder.Status = "SUSPENDED"
		backend := newFakeBackend(holder)
		svc, _ := newTestAccessService(backend, config.AccessConfig{}, noon)

		decision, err := svc.Verify(context.Background(), "1234ABCD", SourceHTTP)

		require.NoError(t, err)
		assert.Equal(t, access.ReasonInactiveStatus, decision.Reason)
		assert.Equal(t, "Access denied: card status SUSPENDED", backend.events[0].Description)
		assert.Equal(t, "SUSPENDED", backend.events[0].HolderStatus)

		require.Len(t, backend.alerts, 1)
		assert.Equal(t, access.AlertInactiveCard, backend.alerts[0].Type)
		assert.Equal(t, "Card with status SUSPENDED presented: 1234ABCD", backend.alerts[0].Description)
		require.NotNil(t, backend.events[0].AlertID)
		assert.Equal(t, int64(101), *backend.events[0].AlertID)
	})

	t.Run("lookup failure fails closed without recording", func(t *testing.T) {
		backend := newFakeBackend(activeHolder())
		backend.lookupErr = apperr.ErrDatabaseUnavailable
		svc, messages := newTestAccessService(backend, config.AccessConfig{}, noon)

		decision, err := svc.Verify(context.Background(), "1234ABCD", SourceHTTP)

		assert.ErrorIs(t, err, apperr.ErrDatabaseUnavailable)
		assert.False(t, decision.Authorized)
		assert.Equal(t, access.ReasonDatabaseUnavailable, decision.Reason)
		assert.Empty(t, backend.events)
		assert.Equal(t, access.ReasonDatabaseUnavailable, (<-messages).Reason)
	})

	t.Run("any lookup error is treated as unavailable", func(t *testing.T) {
		backend := newFakeBackend()
		backend.lookupErr = errors.New("disk I/O error")
		svc, _ := newTestAccessService(backend, config.AccessConfig{}, noon)

		_, err := svc.Verify(context.Background(), "1234ABCD", SourceHTTP)
		assert.ErrorIs(t, err, apperr.ErrDatabaseUnavailable)
	})

	t.Run("recording failure keeps the decision", func(t *testing.T) {
		backend := newFakeBackend()
		backend.failEvent = errors.New("insert failed")
		svc, _ := newTestAccessService(backend, config.AccessConfig{}, noon)

		decision, err := svc.Verify(context.Background(), "DEADBEEF", SourceHTTP)

		assert.ErrorIs(t, err, apperr.ErrRecordingFailed)
		assert.True(t, decision.RecordingFailed)
		assert.Equal(t, access.OutcomeDeny, decision.Outcome)
		assert.Empty(t, backend.alerts, "alert must not survive a failed event insert")
	})

	t.Run("empty credential is rejected", func(t *testing.T) {
		backend := newFakeBackend()
		svc, _ := newTestAccessService(backend, config.AccessConfig{}, noon)

		decision, err := svc.Verify(context.Background(), "   ", SourceHTTP)

		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		assert.False(t, decision.Authorized)
		assert.Empty(t, backend.events)
		assert.Empty(t, backend.alerts)
	})

	t.Run("oversized credential is recorded as unknown", func(t *testing.T) {
		backend := newFakeBackend()
		svc, messages := newTestAccessService(backend, config.AccessConfig{}, noon)

		decision, err := svc.Verify(context.Background(), strings.Repeat("A", 65), SourceHTTP)

		require.NoError(t, err)
		assert.Equal(t, access.OutcomeDeny, decision.Outcome)
		assert.Equal(t, access.ReasonNotRegistered, decision.Reason)
		require.Len(t, backend.alerts, 1)
		require.Len(t, backend.events, 1)
		assert.Equal(t, access.AlertSecurity, backend.alerts[0].Type)
		assert.Equal(t, "Unknown RFID: "+strings.Repeat("A", 64), backend.alerts[0].Description)
		assert.Equal(t, access.EventSecurityAlert, backend.events[0].Type)
		require.NotNil(t, backend.events[0].AlertID)
		assert.Nil(t, backend.events[0].RFID)
		assert.False(t, (<-messages).Authorized)
	})

	t.Run("control characters are escaped before recording", func(t *testing.T) {
		backend := newFakeBackend()
		svc, _ := newTestAccessService(backend, config.AccessConfig{}, noon)

		decision, err := svc.Verify(context.Background(), "12\x1b[2J34", SourceMQTT)

		require.NoError(t, err)
		assert.Equal(t, access.ReasonNotRegistered, decision.Reason)
		require.Len(t, backend.alerts, 1)
		assert.Equal(t, "Unknown RFID: 12?[2J34", backend.alerts[0].Description)
		require.Len(t, backend.events, 1)
		assert.Equal(t, "Unauthorized access with RFID: 12?[2J34", backend.events[0].Description)
	})

	t.Run("malformed credential skips the lookup", func(t *testing.T) {
		backend := newFakeBackend()
		backend.lookupErr = errors.New("lookup must not run")
		svc, _ := newTestAccessService(backend, config.AccessConfig{}, noon)

		decision, err := svc.Verify(context.Background(), strings.Repeat("B", 80), SourceHTTP)

		require.NoError(t, err)
		assert.Equal(t, access.ReasonNotRegistered, decision.Reason)
		assert.Len(t, backend.events, 1)
	})
}

func TestAccessService_AfterHours(t *testing.T) {
	cfg := config.AccessConfig{AfterHoursAlerts: true, WorkdayStartHour: 7, WorkdayEndHour: 20}

	t.Run("late grant links an after-hours alert", func(t *testing.T) {
		backend := newFakeBackend(activeHolder())
		late := time.Date(2024, time.March, 12, 22, 15, 0, 0, time.UTC)
		svc, _ := newTestAccessService(backend, cfg, late)

		decision, err := svc.Verify(context.Background(), "1234ABCD", SourceHTTP)

		require.NoError(t, err)
		assert.True(t, decision.Authorized)
		require.Len(t, backend.alerts, 1)
		assert.Equal(t, access.AlertAfterHours, backend.alerts[0].Type)
		require.NotNil(t, backend.events[0].AlertID)
		assert.Equal(t, int64(101), *backend.events[0].AlertID)
	})

	t.Run("workday grant has no alert", func(t *testing.T) {
		backend := newFakeBackend(activeHolder())
		svc, _ := newTestAccessService(backend, cfg, time.Date(2024, time.March, 12, 7, 0, 0, 0, time.UTC))

		_, err := svc.Verify(context.Background(), "1234ABCD", SourceHTTP)

		require.NoError(t, err)
		assert.Empty(t, backend.alerts)
	})
}

func TestAccessService_ConcurrentVerify(t *testing.T) {
	backend := newFakeBackend(activeHolder())
	svc := NewAccessService(backend, nil, config.AccessConfig{}, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := svc.Verify(context.Background(), "1234ABCD", SourceMQTT)
			assert.NoError(t, err)
			assert.True(t, decision.Authorized)
		}()
	}
	wg.Wait()

	assert.Len(t, backend.events, 20)
}

func TestAccessService_VerifyMasksCredentialInLogs(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	svc := NewAccessService(newFakeBackend(activeHolder()), nil, config.AccessConfig{}, logger)

	_, err := svc.Verify(context.Background(), "1234ABCD", SourceHTTP)
	require.NoError(t, err)

	require.NotEmpty(t, hook.AllEntries())
	for _, entry := range hook.AllEntries() {
		assert.Equal(t, "****ABCD", entry.Data["rfid"])
	}
}
