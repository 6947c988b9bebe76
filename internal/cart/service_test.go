package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/posdesk/posd/internal/upstream"
	pkgerrors "github.com/posdesk/posd/pkg/errors"
)

type fakeClient struct {
	getCalls  int
	getItems  []upstream.CartItem
	getErr    error
	mutateRes *upstream.CartResponse
	mutateErr error
}

func (f *fakeClient) GetCart(context.Context) ([]upstream.CartItem, error) {
	f.getCalls++
	return f.getItems, f.getErr
}

func (f *fakeClient) AddToCart(context.Context, string, int) (*upstream.CartResponse, error) {
	return f.mutateRes, f.mutateErr
}

func (f *fakeClient) UpdateCart(context.Context, string, int) (*upstream.CartResponse, error) {
	return f.mutateRes, f.mutateErr
}

func (f *fakeClient) RemoveFromCart(context.Context, string) (*upstream.CartResponse, error) {
	return f.mutateRes, f.mutateErr
}

func (f *fakeClient) ClearCart(context.Context) (*upstream.CartResponse, error) {
	return f.mutateRes, f.mutateErr
}

type fakeSnaps struct {
	mu      sync.Mutex
	cart    []upstream.CartItem
	hasCart bool
	saves   int
}

func (f *fakeSnaps) SaveProducts(context.Context, []upstream.Product) error { return nil }
func (f *fakeSnaps) LoadProducts(context.Context) ([]upstream.Product, bool, error) {
	return nil, false, nil
}

func (f *fakeSnaps) SaveCart(_ context.Context, items []upstream.CartItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cart = append([]upstream.CartItem(nil), items...)
	f.hasCart = true
	f.saves++
	return nil
}

func (f *fakeSnaps) LoadCart(context.Context) ([]upstream.CartItem, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cart, f.hasCart, nil
}

func (f *fakeSnaps) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func lines(ids ...string) []upstream.CartItem {
	out := make([]upstream.CartItem, len(ids))
	for i, id := range ids {
		out[i] = upstream.CartItem{ProductID: id, Name: id, UnitPrice: 3, Quantity: 1, TotalPrice: 3}
	}
	return out
}

func newTestService(client Client, snaps *fakeSnaps) *Service {
	svc := NewService(client, snaps, nil)
	svc.schedule = func(fn func()) { fn() }
	return svc
}

func TestMutationAdoptsEchoedCart(t *testing.T) {
	client := &fakeClient{mutateRes: &upstream.CartResponse{
		Success: true,
		Cart:    lines("p-1", "p-2"),
		HasCart: true,
	}}
	snaps := &fakeSnaps{}
	svc := newTestService(client, snaps)

	items, err := svc.Add(context.Background(), "p-1", 2)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if client.getCalls != 0 {
		t.Fatalf("re-fetched despite echoed cart, gets = %d", client.getCalls)
	}
	if snaps.saveCount() != 1 {
		t.Fatalf("snapshot saves = %d, want 1", snaps.saveCount())
	}
}

func TestMutationWithoutEchoRefetches(t *testing.T) {
	client := &fakeClient{
		mutateRes: &upstream.CartResponse{Success: true},
		getItems:  lines("p-7"),
	}
	snaps := &fakeSnaps{}
	svc := newTestService(client, snaps)

	items, err := svc.Remove(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if client.getCalls != 1 {
		t.Fatalf("gets = %d, want 1", client.getCalls)
	}
	if len(items) != 1 || items[0].ProductID != "p-7" {
		t.Fatalf("items = %+v", items)
	}
}

func TestMutationEchoingEmptyCartAdoptsEmpty(t *testing.T) {
	client := &fakeClient{mutateRes: &upstream.CartResponse{
		Success: true,
		Cart:    []upstream.CartItem{},
		HasCart: true,
	}}
	svc := newTestService(client, &fakeSnaps{})

	items, err := svc.Clear(context.Background())
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("items = %d, want 0", len(items))
	}
	if client.getCalls != 0 {
		t.Fatal("an echoed empty cart must not trigger a re-fetch")
	}
}

func TestMutationRejectedByServer(t *testing.T) {
	client := &fakeClient{mutateRes: &upstream.CartResponse{
		Success: false,
		Message: "Not enough stock",
	}}
	svc := newTestService(client, &fakeSnaps{})

	_, err := svc.Add(context.Background(), "p-1", 1)
	if err == nil {
		t.Fatal("expected rejection to surface")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Message() != "Not enough stock" {
		t.Fatalf("err = %v, want server message", err)
	}
}

func TestQuantityBounds(t *testing.T) {
	svc := newTestService(&fakeClient{}, &fakeSnaps{})
	ctx := context.Background()

	if _, err := svc.Add(ctx, "p-1", 0); err == nil {
		t.Fatal("add quantity 0 must fail")
	}
	if _, err := svc.Add(ctx, "p-1", MaxItemQuantity+1); err == nil {
		t.Fatal("add quantity over cap must fail")
	}
	if _, err := svc.Update(ctx, "p-1", -1); err == nil {
		t.Fatal("negative update must fail")
	}
	if _, err := svc.Add(ctx, "", 1); err == nil {
		t.Fatal("missing product id must fail")
	}
}

func TestLoadFallsBackToSnapshotOnce(t *testing.T) {
	snaps := &fakeSnaps{}
	if err := snaps.SaveCart(context.Background(), lines("p-3")); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	savesAfterSeed := snaps.saveCount()

	client := &fakeClient{getErr: pkgerrors.New(pkgerrors.CodeOffline, "upstream unreachable")}
	svc := newTestService(client, snaps)

	items, err := svc.Load(context.Background())
	if err != nil {
		t.Fatalf("load with snapshot: %v", err)
	}
	if len(items) != 1 || items[0].ProductID != "p-3" {
		t.Fatalf("items = %+v", items)
	}
	if !svc.Offline() {
		t.Fatal("fallback cart not marked offline")
	}
	// The fallback must not be written back as if it were fresh.
	if snaps.saveCount() != savesAfterSeed {
		t.Fatalf("snapshot re-persisted on fallback: saves = %d", snaps.saveCount())
	}
}

func TestLoadWithoutSnapshotSurfacesError(t *testing.T) {
	client := &fakeClient{getErr: pkgerrors.New(pkgerrors.CodeOffline, "upstream unreachable")}
	svc := newTestService(client, &fakeSnaps{})

	if _, err := svc.Load(context.Background()); !pkgerrors.IsOffline(err) {
		t.Fatalf("err = %v, want offline", err)
	}
}

type recordingListener struct {
	snaps []Snapshot
}

func (r *recordingListener) CartChanged(snap Snapshot) {
	r.snaps = append(r.snaps, snap)
}

func TestCountAndSubtotal(t *testing.T) {
	client := &fakeClient{mutateRes: &upstream.CartResponse{
		Success: true,
		Cart: []upstream.CartItem{
			{ProductID: "p-1", UnitPrice: 2.5, Quantity: 2, TotalPrice: 5},
			{ProductID: "p-2", UnitPrice: 1.25, Quantity: 3, TotalPrice: 3.75},
		},
		HasCart: true,
	}}
	svc := newTestService(client, &fakeSnaps{})

	if _, err := svc.Add(context.Background(), "p-1", 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := svc.Count(); got != 5 {
		t.Fatalf("count = %d, want 5", got)
	}
	if got := svc.Subtotal(); got.String() != "8.75" {
		t.Fatalf("subtotal = %s, want 8.75", got)
	}
}

func TestListenersObserveMutations(t *testing.T) {
	client := &fakeClient{mutateRes: &upstream.CartResponse{
		Success: true,
		Cart:    lines("p-1", "p-2"),
		HasCart: true,
	}}
	svc := newTestService(client, &fakeSnaps{})
	rec := &recordingListener{}
	svc.AddListener(rec)

	if _, err := svc.Add(context.Background(), "p-1", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(rec.snaps) != 1 {
		t.Fatalf("notifications = %d, want 1", len(rec.snaps))
	}
	snap := rec.snaps[0]
	if snap.Count != 2 || snap.Offline {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Subtotal.String() != "6" {
		t.Fatalf("subtotal = %s, want 6", snap.Subtotal)
	}
}

func TestListenersObserveOfflineFallback(t *testing.T) {
	snaps := &fakeSnaps{}
	if err := snaps.SaveCart(context.Background(), lines("p-3")); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	client := &fakeClient{getErr: pkgerrors.New(pkgerrors.CodeOffline, "upstream unreachable")}
	svc := newTestService(client, snaps)
	rec := &recordingListener{}
	svc.AddListener(rec)

	if _, err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rec.snaps) != 1 || !rec.snaps[0].Offline {
		t.Fatalf("expected one offline notification, got %+v", rec.snaps)
	}
	if rec.snaps[0].Count != 1 {
		t.Fatalf("count = %d, want 1", rec.snaps[0].Count)
	}
}

func TestLoadSuccessClearsOfflineAndMirrors(t *testing.T) {
	snaps := &fakeSnaps{}
	client := &fakeClient{getItems: lines("p-9")}
	svc := newTestService(client, snaps)

	items, err := svc.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if svc.Offline() {
		t.Fatal("fresh load marked offline")
	}
	if snaps.saveCount() != 1 {
		t.Fatalf("snapshot saves = %d, want 1", snaps.saveCount())
	}
}
