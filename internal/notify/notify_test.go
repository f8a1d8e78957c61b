package notify

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfidaccess/access-control-backend/internal/access"
	"github.com/rfidaccess/access-control-backend/pkg/doorlock"
)

func grantMessage() Message {
	holder := &access.CredentialHolder{Credential: "1234ABCD", FirstName: "Amira", LastName: "Haddad", Status: "ACTIVE"}
	return NewMessage(access.Evaluate("1234ABCD", holder, time.Now()), "http")
}

func TestBroadcaster(t *testing.T) {
	t.Run("delivers to every subscriber", func(t *testing.T) {
		b := NewBroadcaster()
		first, cancelFirst := b.Subscribe()
		defer cancelFirst()
		second, cancelSecond := b.Subscribe()
		defer cancelSecond()

		b.Publish(context.Background(), grantMessage())

		assert.Equal(t, "1234ABCD", (<-first).Credential)
		assert.Equal(t, "1234ABCD", (<-second).Credential)
	})

	t.Run("full subscriber does not block", func(t *testing.T) {
		b := NewBroadcaster()
		ch, cancel := b.Subscribe()
		defer cancel()

		for i := 0; i < subscriberBuffer+5; i++ {
			b.Publish(context.Background(), grantMessage())
		}
		assert.Len(t, ch, subscriberBuffer)
	})

	t.Run("cancel closes and unregisters", func(t *testing.T) {
		b := NewBroadcaster()
		ch, cancel := b.Subscribe()
		require.Equal(t, 1, b.Subscribers())

		cancel()
		cancel()

		_, open := <-ch
		assert.False(t, open)
		assert.Equal(t, 0, b.Subscribers())
		b.Publish(context.Background(), grantMessage())
	})
}

func TestRedisPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	publisher := NewRedisPublisher(client, "access:decisions", logger)
	require.NoError(t, publisher.Ping(context.Background()))

	ctx := context.Background()
	sub := client.Subscribe(ctx, "access:decisions")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	publisher.Publish(ctx, grantMessage())

	select {
	case msg := <-sub.Channel():
		var decoded Message
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &decoded))
		assert.Equal(t, access.OutcomeGrant, decoded.Outcome)
		require.NotNil(t, decoded.EmployeeName)
		assert.Equal(t, "Amira Haddad", *decoded.EmployeeName)
		assert.Equal(t, "http", decoded.Source)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestMulti(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	defer cancel()

	Multi{Discard{}, b}.Publish(context.Background(), grantMessage())
	assert.Len(t, ch, 1)
}

type fakeDoor struct {
	unlocked chan struct{}
}

func (d *fakeDoor) Unlock(context.Context) (doorlock.Result, error) {
	d.unlocked <- struct{}{}
	return doorlock.Result{"success": true}, nil
}

func TestDoorPublisher(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	door := &fakeDoor{unlocked: make(chan struct{}, 2)}
	p := NewDoorPublisher(door, time.Second, logger)

	deny := NewMessage(access.Evaluate("DEADBEEF", nil, time.Now()), "http")
	p.Publish(context.Background(), deny)
	p.Publish(context.Background(), grantMessage())

	select {
	case <-door.unlocked:
	case <-time.After(time.Second):
		t.Fatal("door was not unlocked for a granted decision")
	}
	assert.Len(t, door.unlocked, 0)
}
