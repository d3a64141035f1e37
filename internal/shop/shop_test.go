package shop

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ecogarden-sync-go/internal/models"
	"ecogarden-sync-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSpender struct {
	balance int64
	reasons []string
}

func (f *fakeSpender) SpendCredits(_ context.Context, points int64, reason string) error {
	if f.balance < points {
		return errors.New("insufficient credits")
	}
	f.balance -= points
	f.reasons = append(f.reasons, reason)
	return nil
}

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	objects := c.Objects()
	require.Len(t, objects, 10)
	assert.Equal(t, "bench", objects[0].Id)

	fountain, ok := c.Get("fountain")
	require.True(t, ok)
	assert.Equal(t, int64(20), fountain.Price)

	_, ok = c.Get("castle")
	assert.False(t, ok)
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalog(t, `
objects:
  - id: pond
    name: Pond
    price: 12
    icon: "🪷"
  - id: lamp
    name: Lamp
    price: 4
`)

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	objects := c.Objects()
	require.Len(t, objects, 2)
	assert.Equal(t, models.GardenObject{Id: "pond", Name: "Pond", Price: 12, Icon: "🪷"}, objects[0])
}

func TestLoadCatalog_MissingFileUsesDefaults(t *testing.T) {
	c, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Len(t, c.Objects(), len(DefaultObjects))
}

func TestLoadCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", "objects: []\n"},
		{"missing name", "objects:\n  - id: pond\n    price: 1\n"},
		{"negative price", "objects:\n  - id: pond\n    name: Pond\n    price: -1\n"},
		{"underscore id", "objects:\n  - id: big_pond\n    name: Pond\n    price: 1\n"},
		{"bad image url", "objects:\n  - id: pond\n    name: Pond\n    price: 1\n    image: not a url\n"},
		{"duplicate", "objects:\n  - id: pond\n    name: A\n  - id: pond\n    name: B\n"},
		{"not yaml", "objects: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalog(writeCatalog(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestInventory_PurchaseAndPlace(t *testing.T) {
	spender := &fakeSpender{balance: 15}
	inv := NewInventory(DefaultCatalog(), spender)
	ctx := context.Background()

	assert.False(t, inv.CanPlace("bench"))

	obj, err := inv.Purchase(ctx, "bench")
	require.NoError(t, err)
	assert.Equal(t, "Bench", obj.Name)
	assert.Equal(t, int64(5), spender.balance)
	assert.Equal(t, []string{"Purchased Bench"}, spender.reasons)
	assert.True(t, inv.CanPlace("bench"))

	placed, err := inv.Place("bench", 10, 20)
	require.NoError(t, err)
	assert.Equal(t, "bench", placed.ObjectId)
	assert.Contains(t, placed.Id, "bench_")
	assert.Equal(t, 0, inv.Count("bench"))

	_, err = inv.Place("bench", 0, 0)
	assert.True(t, errors.Is(err, ErrNotInInventory))

	require.NoError(t, inv.Move(placed.Id, 30, 40))
	got := inv.Placed()
	require.Len(t, got, 1)
	assert.Equal(t, 30.0, got[0].X)
	assert.Equal(t, 40.0, got[0].Y)

	require.NoError(t, inv.Remove(placed.Id))
	assert.Empty(t, inv.Placed())
	assert.Equal(t, 1, inv.Count("bench"))

	assert.True(t, errors.Is(inv.Remove(placed.Id), ErrPlacementNotFound))
	assert.True(t, errors.Is(inv.Move(placed.Id, 1, 1), ErrPlacementNotFound))
}

func TestInventory_FailedSpendAddsNothing(t *testing.T) {
	spender := &fakeSpender{balance: 5}
	inv := NewInventory(DefaultCatalog(), spender)

	_, err := inv.Purchase(context.Background(), "fountain")
	require.Error(t, err)
	assert.Equal(t, 0, inv.Count("fountain"))
	assert.Equal(t, int64(5), spender.balance)

	_, err = inv.Purchase(context.Background(), "castle")
	assert.True(t, errors.Is(err, ErrUnknownObject))
	_, err = inv.Place("castle", 0, 0)
	assert.True(t, errors.Is(err, ErrUnknownObject))
}

type mapKV map[string]string

func (m mapKV) GetValue(_ context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (m mapKV) SetValue(_ context.Context, key, value string) error {
	m[key] = value
	return nil
}

func TestInventory_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	kv := mapKV{}
	spender := &fakeSpender{balance: 100}

	inv, err := LoadInventory(ctx, DefaultCatalog(), spender, kv, 7)
	require.NoError(t, err)
	assert.Empty(t, inv.Placed())

	_, err = inv.Purchase(ctx, "bench")
	require.NoError(t, err)
	_, err = inv.Purchase(ctx, "fountain")
	require.NoError(t, err)
	placed, err := inv.Place("fountain", 5, 6)
	require.NoError(t, err)
	require.NoError(t, inv.Save(ctx, kv, 7))

	restored, err := LoadInventory(ctx, DefaultCatalog(), spender, kv, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Count("bench"))
	assert.Equal(t, 0, restored.Count("fountain"))
	require.Len(t, restored.Placed(), 1)
	assert.Equal(t, placed, restored.Placed()[0])

	other, err := LoadInventory(ctx, DefaultCatalog(), spender, kv, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, other.Count("bench"))
}

func TestLoadInventory_DropsUnknownObjects(t *testing.T) {
	kv := mapKV{store.InventoryKey(3): `{"counts":{"castle":2,"bench":1},"placed":[{"placement_id":"castle_x","object_id":"castle","x":1,"y":2}]}`}

	inv, err := LoadInventory(context.Background(), DefaultCatalog(), &fakeSpender{}, kv, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, inv.Count("bench"))
	assert.Equal(t, 0, inv.Count("castle"))
	assert.Empty(t, inv.Placed())

	kv[store.InventoryKey(3)] = "{"
	_, err = LoadInventory(context.Background(), DefaultCatalog(), &fakeSpender{}, kv, 3)
	assert.Error(t, err)
}
