package application_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/cosigner/internal/core/application"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
)

func TestNotificationService(t *testing.T) {
	listener := newFakeListener()
	factoryCalls := 0
	svc := application.NewNotificationService(func() (ports.Listener, error) {
		factoryCalls++
		return listener, nil
	})

	addr := randomAddress()
	err := svc.WatchAccount(ctx, addr.String())
	require.NoError(t, err)
	require.True(t, listener.IsOpen())
	require.ElementsMatch(t, []string{
		fmt.Sprintf("confirmedAdded/%s", addr),
		fmt.Sprintf("partialAdded/%s", addr),
		fmt.Sprintf("cosignature/%s", addr),
		fmt.Sprintf("status/%s", addr),
	}, listener.subscriptions())

	// Watching the same account twice is a no-op.
	err = svc.WatchAccount(ctx, addr.Pretty())
	require.NoError(t, err)
	require.Len(t, listener.subscriptions(), 4)

	// The listener is shared among watched accounts.
	other := randomAddress()
	err = svc.WatchAccount(ctx, other.String())
	require.NoError(t, err)
	require.Len(t, listener.subscriptions(), 8)
	require.Equal(t, 1, factoryCalls)
	require.Equal(t, int32(1), listener.openCount.Load())
	require.ElementsMatch(t, domain.Addresses{addr, other}, svc.WatchedAccounts())

	chEvents := svc.GetEventChannel()

	hash := randomHash()
	listener.chConfirmed <- domain.TransactionInfo{Hash: hash}
	event := receiveEvent(t, chEvents)
	require.Equal(t, domain.TopicConfirmedAdded, event.Topic)
	require.Equal(t, hash, event.Hash)
	require.NotNil(t, event.Transaction)

	listener.chCosignatures <- domain.CosignatureSignedTransaction{
		ParentHash: hash, SignerPublicKey: randomPublicKey(),
	}
	event = receiveEvent(t, chEvents)
	require.Equal(t, domain.TopicCosignature, event.Topic)
	require.Equal(t, hash, event.Hash)
	require.NotNil(t, event.Cosignature)

	listener.chStatus <- domain.TransactionStatusError{
		Hash: hash, Code: "Failure_Core_Past_Deadline",
	}
	event = receiveEvent(t, chEvents)
	require.Equal(t, domain.TopicStatus, event.Topic)
	require.Equal(t, "Failure_Core_Past_Deadline", event.StatusError.Code)

	listener.chPartial <- domain.TransactionInfo{Hash: hash}
	event = receiveEvent(t, chEvents)
	require.Equal(t, domain.TopicPartialAdded, event.Topic)

	err = svc.StopWatchingAccount(addr.String())
	require.NoError(t, err)
	require.Equal(t, int32(4), listener.cancels.Load())
	require.Equal(t, domain.Addresses{other}, svc.WatchedAccounts())

	_, partial := newSignedPair()
	svc.PublishBroadcast(domain.BroadcastResult{
		SignedPartialTransaction: partial, Success: true,
	})
	select {
	case res := <-svc.GetBroadcastChannel():
		require.True(t, res.Success)
		require.Equal(t, partial.Hash, res.SignedPartialTransaction.Hash)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast result")
	}

	svc.Close()
	require.Equal(t, int32(8), listener.cancels.Load())
	require.Equal(t, int32(1), listener.closeCount.Load())
	require.Empty(t, svc.WatchedAccounts())

	_, ok := <-svc.GetEventChannel()
	require.False(t, ok)
	_, ok = <-svc.GetBroadcastChannel()
	require.False(t, ok)

	err = svc.WatchAccount(ctx, addr.String())
	require.Error(t, err)

	// Closing twice is a no-op.
	svc.Close()
}

func TestNotificationServiceFailures(t *testing.T) {
	t.Run("invalid_address", func(t *testing.T) {
		svc := application.NewNotificationService(func() (ports.Listener, error) {
			return newFakeListener(), nil
		})
		defer svc.Close()

		err := svc.WatchAccount(ctx, "invalid")
		require.Error(t, err)
		require.True(t, domain.IsValidationError(err))
	})

	t.Run("listener_not_available", func(t *testing.T) {
		svc := application.NewNotificationService(func() (ports.Listener, error) {
			return nil, fmt.Errorf("missing listener url")
		})
		defer svc.Close()

		err := svc.WatchAccount(ctx, randomAddress().String())
		require.Error(t, err)
		require.Empty(t, svc.WatchedAccounts())
	})

	t.Run("listener_fails_to_open", func(t *testing.T) {
		listener := newFakeListener()
		listener.openErr = fmt.Errorf("connection refused")
		svc := application.NewNotificationService(func() (ports.Listener, error) {
			return listener, nil
		})
		defer svc.Close()

		err := svc.WatchAccount(ctx, randomAddress().String())
		require.Error(t, err)

		var listenerErr *domain.ListenerError
		require.ErrorAs(t, err, &listenerErr)
		require.Empty(t, svc.WatchedAccounts())
	})

	t.Run("subscription_fails", func(t *testing.T) {
		listener := newFakeListener()
		listener.confirmedErr = fmt.Errorf("listener is not open")
		svc := application.NewNotificationService(func() (ports.Listener, error) {
			return listener, nil
		})
		defer svc.Close()

		err := svc.WatchAccount(ctx, randomAddress().String())
		require.Error(t, err)
		require.Empty(t, svc.WatchedAccounts())
	})
}

func receiveEvent(
	t *testing.T, ch <-chan domain.NodeEvent,
) domain.NodeEvent {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return domain.NodeEvent{}
}
