package webpush_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/webpush"
)

func TestService_RegisterDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("anonymous safari device", func(t *testing.T) {
		store := webpush.NewMemoryStore()
		clock := newTestClock()
		svc := newService(store, nil, clock)

		device, err := svc.RegisterDevice(ctx, webpush.RegisterInput{
			DeviceInfo:   &safariMobile,
			Subscription: creds("https://push/abc"),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, device.ID)
		assert.Empty(t, device.CustomerID)
		assert.Equal(t, "bW9iaWxlLWlPUy1TYWZhcmk=", device.DeviceID)
		assert.Equal(t, "Safari mobile", device.DeviceName)
		assert.Equal(t, safariMobile, device.DeviceInfo)
		assert.Equal(t, clock.Current().Add(-time.Minute), device.LastUsed)

		sub, err := store.Subscriptions().FindSubscription(ctx, webpush.SubscriptionFilter{DeviceID: device.DeviceID, ActiveOnly: true})
		require.NoError(t, err)
		assert.Equal(t, "https://push/abc", sub.Endpoint)
		assert.Equal(t, "P", sub.P256dh)
		assert.Equal(t, "A", sub.Auth)
		assert.True(t, sub.IsActive)
	})

	t.Run("registration is idempotent", func(t *testing.T) {
		store := webpush.NewMemoryStore()
		svc := newService(store, nil, newTestClock())

		first, err := svc.RegisterDevice(ctx, webpush.RegisterInput{CustomerID: "cus_1", DeviceInfo: &safariMobile, Subscription: creds("https://push/one")})
		require.NoError(t, err)
		second, err := svc.RegisterDevice(ctx, webpush.RegisterInput{CustomerID: "cus_1", DeviceInfo: &safariMobile, Subscription: creds("https://push/two")})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.True(t, second.LastUsed.After(first.LastUsed))

		devices, err := store.Devices().ListDevices(ctx, webpush.DeviceFilter{AnyCustomer: true})
		require.NoError(t, err)
		require.Len(t, devices, 1)
		assert.Equal(t, second.LastUsed, devices[0].LastUsed)

		sub, err := store.Subscriptions().FindSubscription(ctx, webpush.SubscriptionFilter{DeviceID: first.DeviceID})
		require.NoError(t, err)
		assert.Equal(t, "https://push/two", sub.Endpoint)
	})

	t.Run("re-registration reactivates the subscription", func(t *testing.T) {
		store := webpush.NewMemoryStore()
		svc := newService(store, nil, newTestClock())
		in := webpush.RegisterInput{DeviceInfo: &safariMobile, Subscription: creds("https://push/abc")}

		device, err := svc.RegisterDevice(ctx, in)
		require.NoError(t, err)

		sub, err := store.Subscriptions().FindSubscription(ctx, webpush.SubscriptionFilter{DeviceID: device.DeviceID})
		require.NoError(t, err)
		sub.IsActive = false
		require.NoError(t, store.Subscriptions().UpdateSubscription(ctx, sub))

		in.Subscription = creds("https://push/fresh")
		_, err = svc.RegisterDevice(ctx, in)
		require.NoError(t, err)

		active, err := store.Subscriptions().FindSubscription(ctx, webpush.SubscriptionFilter{DeviceID: device.DeviceID, ActiveOnly: true})
		require.NoError(t, err)
		assert.Equal(t, sub.ID, active.ID, "the existing row is reused")
		assert.Equal(t, "https://push/fresh", active.Endpoint)
	})

	t.Run("same fingerprint per customer and anonymous", func(t *testing.T) {
		store := webpush.NewMemoryStore()
		svc := newService(store, nil, newTestClock())

		anon, err := svc.RegisterDevice(ctx, webpush.RegisterInput{DeviceInfo: &safariMobile, Subscription: creds("https://push/anon")})
		require.NoError(t, err)
		owned, err := svc.RegisterDevice(ctx, webpush.RegisterInput{CustomerID: "cus_1", DeviceInfo: &safariMobile, Subscription: creds("https://push/owned")})
		require.NoError(t, err)

		assert.NotEqual(t, anon.ID, owned.ID)
		assert.Equal(t, anon.DeviceID, owned.DeviceID)

		sub, err := store.Subscriptions().FindSubscription(ctx, webpush.SubscriptionFilter{DeviceID: anon.DeviceID, ActiveOnly: true})
		require.NoError(t, err)
		assert.Equal(t, "https://push/owned", sub.Endpoint, "the subscription is shared by device id")
	})

	t.Run("invalid input", func(t *testing.T) {
		tests := []struct {
			name string
			in   webpush.RegisterInput
		}{
			{"missing device info", webpush.RegisterInput{Subscription: creds("https://push/abc")}},
			{"missing subscription", webpush.RegisterInput{DeviceInfo: &safariMobile}},
			{"empty endpoint", webpush.RegisterInput{DeviceInfo: &safariMobile, Subscription: creds("")}},
			{"missing device type", webpush.RegisterInput{DeviceInfo: &webpush.DeviceInfo{OS: "iOS"}, Subscription: creds("https://push/abc")}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := webpush.NewMemoryStore()
				svc := newService(store, nil, newTestClock())

				_, err := svc.RegisterDevice(ctx, tt.in)
				assert.ErrorIs(t, err, webpush.ErrInvalidInput)

				devices, err := store.Devices().ListDevices(ctx, webpush.DeviceFilter{AnyCustomer: true})
				require.NoError(t, err)
				assert.Empty(t, devices)
			})
		}
	})

	t.Run("failed subscription write leaves no device", func(t *testing.T) {
		store := newFaultyStore()
		boom := errors.New("disk full")
		store.onCreateSubscription = func() error { return boom }
		svc := newService(store, nil, newTestClock())

		_, err := svc.RegisterDevice(ctx, webpush.RegisterInput{DeviceInfo: &safariMobile, Subscription: creds("https://push/abc")})
		require.ErrorIs(t, err, webpush.ErrStorage)
		require.ErrorIs(t, err, boom)

		devices, err := store.Devices().ListDevices(ctx, webpush.DeviceFilter{AnyCustomer: true})
		require.NoError(t, err)
		assert.Empty(t, devices)
	})

	t.Run("conflict is retried once", func(t *testing.T) {
		store := newFaultyStore()
		var calls atomic.Int32
		store.onCreateSubscription = func() error {
			if calls.Add(1) == 1 {
				return webpush.ErrConflict
			}
			return nil
		}
		svc := newService(store, nil, newTestClock())

		_, err := svc.RegisterDevice(ctx, webpush.RegisterInput{DeviceInfo: &safariMobile, Subscription: creds("https://push/abc")})
		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())

		devices, err := store.Devices().ListDevices(ctx, webpush.DeviceFilter{AnyCustomer: true})
		require.NoError(t, err)
		assert.Len(t, devices, 1)
	})

	t.Run("persistent conflict fails", func(t *testing.T) {
		store := newFaultyStore()
		store.onCreateSubscription = func() error { return webpush.ErrConflict }
		svc := newService(store, nil, newTestClock())

		_, err := svc.RegisterDevice(ctx, webpush.RegisterInput{DeviceInfo: &safariMobile, Subscription: creds("https://push/abc")})
		assert.ErrorIs(t, err, webpush.ErrStorage)
		assert.ErrorIs(t, err, webpush.ErrConflict)
	})
}

func TestService_RemoveDevice(t *testing.T) {
	ctx := context.Background()
	store := webpush.NewMemoryStore()
	svc := newService(store, nil, newTestClock())

	anon, err := svc.RegisterDevice(ctx, webpush.RegisterInput{DeviceInfo: &safariMobile, Subscription: creds("https://push/a")})
	require.NoError(t, err)
	_, err = svc.RegisterDevice(ctx, webpush.RegisterInput{CustomerID: "cus_1", DeviceInfo: &safariMobile, Subscription: creds("https://push/a")})
	require.NoError(t, err)
	kept, err := svc.RegisterDevice(ctx, webpush.RegisterInput{CustomerID: "cus_1", DeviceInfo: &chromeDesktop, Subscription: creds("https://push/b")})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveDevice(ctx, anon.DeviceID))

	devices, err := store.Devices().ListDevices(ctx, webpush.DeviceFilter{AnyCustomer: true})
	require.NoError(t, err)
	require.Len(t, devices, 1, "every row of the device id is removed")
	assert.Equal(t, kept.DeviceID, devices[0].DeviceID)

	_, err = store.Subscriptions().FindSubscription(ctx, webpush.SubscriptionFilter{DeviceID: anon.DeviceID})
	assert.ErrorIs(t, err, webpush.ErrRecordNotFound)

	t.Run("unknown device is a no-op", func(t *testing.T) {
		require.NoError(t, svc.RemoveDevice(ctx, anon.DeviceID))
		require.NoError(t, svc.RemoveDevice(ctx, "bm9wZQ=="))
	})

	t.Run("empty id", func(t *testing.T) {
		assert.ErrorIs(t, svc.RemoveDevice(ctx, ""), webpush.ErrInvalidInput)
	})
}

func TestService_ListDevices(t *testing.T) {
	ctx := context.Background()
	store := webpush.NewMemoryStore()
	svc := newService(store, nil, newTestClock())

	empty, err := svc.ListDevices(ctx, "cus_1")
	require.NoError(t, err)
	assert.NotNil(t, empty.Devices)
	assert.Empty(t, empty.Devices)

	safari, err := svc.RegisterDevice(ctx, webpush.RegisterInput{CustomerID: "cus_1", DeviceInfo: &safariMobile, Subscription: creds("https://push/a")})
	require.NoError(t, err)
	chrome, err := svc.RegisterDevice(ctx, webpush.RegisterInput{CustomerID: "cus_1", DeviceInfo: &chromeDesktop, Subscription: creds("https://push/b")})
	require.NoError(t, err)
	_, err = svc.RegisterDevice(ctx, webpush.RegisterInput{CustomerID: "cus_2", DeviceInfo: &firefoxTablet, Subscription: creds("https://push/c")})
	require.NoError(t, err)

	sub, err := store.Subscriptions().FindSubscription(ctx, webpush.SubscriptionFilter{DeviceID: safari.DeviceID})
	require.NoError(t, err)
	sub.IsActive = false
	require.NoError(t, store.Subscriptions().UpdateSubscription(ctx, sub))

	list, err := svc.ListDevices(ctx, "cus_1")
	require.NoError(t, err)
	require.Len(t, list.Devices, 2)

	byID := map[string]webpush.DeviceStatus{}
	for _, d := range list.Devices {
		byID[d.DeviceID] = d
	}
	assert.False(t, byID[safari.DeviceID].IsActive)
	assert.Equal(t, "Safari mobile", byID[safari.DeviceID].DeviceName)
	assert.True(t, byID[chrome.DeviceID].IsActive)
	assert.Equal(t, chromeDesktop, byID[chrome.DeviceID].DeviceInfo)
	assert.Equal(t, chrome.LastUsed, byID[chrome.DeviceID].LastUsed)

	all, err := svc.ListDevices(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all.Devices, 3)

	t.Run("storage failure", func(t *testing.T) {
		faulty := newFaultyStore()
		faulty.onListDevices = func() error { return errors.New("db down") }
		_, err := newService(faulty, nil, newTestClock()).ListDevices(ctx, "cus_1")
		assert.ErrorIs(t, err, webpush.ErrStorage)
	})
}
