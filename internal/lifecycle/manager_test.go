package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/posdesk/posd/internal/cachestore"
	pkgerrors "github.com/posdesk/posd/pkg/errors"
)

func okEntry(body string) *cachestore.Entry {
	return &cachestore.Entry{Status: http.StatusOK, Body: []byte(body)}
}

func fetchFromMap(assets map[string]*cachestore.Entry) FetchFunc {
	return func(_ context.Context, path string) (*cachestore.Entry, error) {
		entry, ok := assets[path]
		if !ok {
			return nil, errors.New("unreachable: " + path)
		}
		return entry, nil
	}
}

func TestInstallSeedsStaticPartition(t *testing.T) {
	ctx := context.Background()
	store := cachestore.NewMemory()
	assets := map[string]*cachestore.Entry{
		"/":        okEntry("home"),
		"/offline": okEntry("offline"),
	}

	mgr := NewManager(store, fetchFromMap(assets), "v1", []string{"/", "/offline"}, nil)
	if err := mgr.Install(ctx); err != nil {
		t.Fatalf("install: %v", err)
	}
	if mgr.State() != StateInstalled {
		t.Fatalf("expected installed state, got %s", mgr.State())
	}

	entry, found, _ := store.Match(ctx, "posd-static-v1", cachestore.Key("GET", "/offline"))
	if !found || string(entry.Body) != "offline" {
		t.Fatalf("offline page not precached: found=%v", found)
	}
}

func TestInstallIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := cachestore.NewMemory()
	assets := map[string]*cachestore.Entry{
		"/": okEntry("home"),
		// /offline missing on purpose
	}

	mgr := NewManager(store, fetchFromMap(assets), "v1", []string{"/", "/offline"}, nil)
	if err := mgr.Install(ctx); err == nil {
		t.Fatal("expected install to fail when an asset cannot be fetched")
	}

	// Nothing may have been written, not even the asset that succeeded.
	if _, found, _ := store.Match(ctx, "posd-static-v1", cachestore.Key("GET", "/")); found {
		t.Fatal("partial precache written despite failed install")
	}
	if mgr.State() != StateNew {
		t.Fatalf("expected state new after failed install, got %s", mgr.State())
	}
}

func TestInstallRejectsErrorStatus(t *testing.T) {
	ctx := context.Background()
	store := cachestore.NewMemory()
	assets := map[string]*cachestore.Entry{
		"/": {Status: http.StatusBadGateway, Body: []byte("nope")},
	}

	mgr := NewManager(store, fetchFromMap(assets), "v1", []string{"/"}, nil)
	if err := mgr.Install(ctx); err == nil {
		t.Fatal("expected install to reject a non-success asset response")
	}
}

func TestActivateEvictsOnlyStalePartitions(t *testing.T) {
	ctx := context.Background()
	store := cachestore.NewMemory()
	entry := okEntry("x")
	_ = store.Put(ctx, "posd-static-v1", "a", entry)
	_ = store.Put(ctx, "posd-runtime-v1", "b", entry)
	_ = store.Put(ctx, "posd-static-v2", "c", entry)
	_ = store.Put(ctx, "posd-runtime-v2", "d", entry)

	mgr := NewManager(store, fetchFromMap(nil), "v2", nil, nil)
	if err := mgr.Activate(ctx); err != nil {
		t.Fatalf("activate: %v", err)
	}

	remaining, _ := store.Partitions(ctx)
	if len(remaining) != 2 {
		t.Fatalf("expected only current partitions to remain, got %v", remaining)
	}
	for _, name := range remaining {
		if name != "posd-static-v2" && name != "posd-runtime-v2" {
			t.Fatalf("stale partition survived activation: %s", name)
		}
	}
	if mgr.State() != StateActive {
		t.Fatalf("expected active state, got %s", mgr.State())
	}
}

func TestSkipWaitingRequiresInstall(t *testing.T) {
	ctx := context.Background()
	store := cachestore.NewMemory()
	entry := okEntry("x")
	_ = store.Put(ctx, "posd-static-v1", "a", entry)
	_ = store.Put(ctx, "posd-runtime-v1", "b", entry)

	mgr := NewManager(store, fetchFromMap(nil), "v2", []string{"/offline"}, nil)
	if err := mgr.Install(ctx); err == nil {
		t.Fatal("expected install to fail when the origin is unreachable")
	}

	err := mgr.SkipWaiting(ctx)
	if err == nil {
		t.Fatal("expected skip waiting to be rejected before a successful install")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if mgr.State() != StateNew {
		t.Fatalf("expected state new, got %s", mgr.State())
	}

	// The previous generation must keep serving until a real install lands.
	remaining, _ := store.Partitions(ctx)
	if len(remaining) != 2 {
		t.Fatalf("previous generation partitions were evicted: %v", remaining)
	}
}

func TestSubscribeSignalsOncePerSubscriber(t *testing.T) {
	ctx := context.Background()
	store := cachestore.NewMemory()
	mgr := NewManager(store, fetchFromMap(nil), "v1", nil, nil)

	first := mgr.Subscribe()
	second := mgr.Subscribe()

	if err := mgr.Install(ctx); err != nil {
		t.Fatalf("install: %v", err)
	}
	if err := mgr.SkipWaiting(ctx); err != nil {
		t.Fatalf("skip waiting: %v", err)
	}
	// A second takeover must not re-signal anyone.
	if err := mgr.Activate(ctx); err != nil {
		t.Fatalf("activate: %v", err)
	}

	for i, ch := range []<-chan struct{}{first, second} {
		select {
		case <-ch:
		default:
			t.Fatalf("subscriber %d did not receive the takeover signal", i)
		}
		select {
		case <-ch:
			t.Fatalf("subscriber %d received more than one signal", i)
		default:
		}
	}

	// Late subscribers still learn the version is in control.
	late := mgr.Subscribe()
	select {
	case <-late:
	default:
		t.Fatal("late subscriber missed the takeover signal")
	}
}
