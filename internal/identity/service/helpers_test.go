package service

import (
	"context"
	"sync"
	"testing"
	"time"

	devicerepo "multidevice-identity/backend/internal/device/repository"
	deviceservice "multidevice-identity/backend/internal/device/service"
	"multidevice-identity/backend/internal/deviceregistry"
	registrydomain "multidevice-identity/backend/internal/deviceregistry/domain"
	registryrepo "multidevice-identity/backend/internal/deviceregistry/repository"
	registryservice "multidevice-identity/backend/internal/deviceregistry/service"
	"multidevice-identity/backend/internal/platform/clock"
	"multidevice-identity/backend/internal/platform/ids"
	"multidevice-identity/backend/internal/policy/engine"
	refreshrepo "multidevice-identity/backend/internal/refreshtoken/repository"
	refreshservice "multidevice-identity/backend/internal/refreshtoken/service"
	rolerepo "multidevice-identity/backend/internal/role/repository"
	roleservice "multidevice-identity/backend/internal/role/service"
	"multidevice-identity/backend/internal/security"
	telemetrydomain "multidevice-identity/backend/internal/telemetry/domain"
	tokencontextrepo "multidevice-identity/backend/internal/tokencontext/repository"
	userdomain "multidevice-identity/backend/internal/user/domain"
	userrepo "multidevice-identity/backend/internal/user/repository"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type countingTx struct {
	mu   sync.Mutex
	runs int
}

func (c *countingTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	c.mu.Lock()
	c.runs++
	c.mu.Unlock()
	return fn(ctx)
}

func (c *countingTx) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// chanEmitter delivers emitted events on a buffered channel.
type chanEmitter chan *telemetrydomain.Event

func (c chanEmitter) Emit(ctx context.Context, event *telemetrydomain.Event) error {
	c <- event
	return nil
}

func waitEvent(t *testing.T, events chanEmitter, eventType string) *telemetrydomain.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type == eventType {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event emitted", eventType)
			return nil
		}
	}
}

type harness struct {
	svc       *MultiDeviceIdentityService
	tx        *countingTx
	users     *userrepo.MemoryRepository
	devices   *devicerepo.MemoryRepository
	registry  *registryrepo.MemoryRepository
	tokens    *refreshrepo.MemoryRepository
	contexts  *tokencontextrepo.MemoryRepository
	roles     *roleservice.UserRoleService
	provider  *security.TokenProvider
	clock     *clock.Manual
	events    chanEmitter
	refreshes *refreshservice.RefreshTokenService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	clk := clock.NewManual(t0)
	h := &harness{
		tx:       &countingTx{},
		users:    userrepo.NewMemoryRepository(),
		devices:  devicerepo.NewMemoryRepository(),
		registry: registryrepo.NewMemoryRepository(),
		tokens:   refreshrepo.NewMemoryRepository(),
		contexts: tokencontextrepo.NewMemoryRepository(),
		clock:    clk,
		events:   make(chanEmitter, 64),
	}
	fp, err := deviceregistry.NewFingerprinter([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewFingerprinter: %v", err)
	}
	selector, err := engine.NewOPAEvaluator(ctx, "", nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	h.provider, err = security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	deviceSvc := deviceservice.NewDeviceService(h.devices, clk)
	registry := registryservice.NewRegistryService(h.registry, h.users, deviceSvc, fp, clk, 0)
	h.roles = roleservice.NewUserRoleService(rolerepo.NewMemoryRepository(), selector, clk)
	h.refreshes = refreshservice.NewRefreshTokenService(h.tokens, passthroughTx{}, clk, 0, nil)
	h.svc = NewMultiDeviceIdentityService(IdentityDeps{
		Tx:       h.tx,
		Registry: registry,
		Devices:  deviceSvc,
		Users:    h.users,
		Tokens:   h.refreshes,
		Contexts: h.contexts,
		Roles:    h.roles,
		Minter:   h.provider,
		Clock:    clk,
		Events:   h.events,
	})
	return h
}

// addUser stores a user holding roles.
func (h *harness) addUser(t *testing.T, email string, roles ...string) *userdomain.User {
	t.Helper()
	ctx := context.Background()
	u, _, err := h.users.GetOrCreate(ctx, &userdomain.User{ID: ids.New(), Email: email, CreatedAt: t0})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	for _, r := range roles {
		if err := h.roles.AssignRole(ctx, u.ID, r, "test"); err != nil {
			t.Fatalf("AssignRole(%s): %v", r, err)
		}
	}
	return u
}

func laptop() *registrydomain.DeviceDetails {
	return &registrydomain.DeviceDetails{
		Browser:   "Chrome",
		OS:        "Windows",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0",
		IPAddress: "203.0.113.7",
	}
}
