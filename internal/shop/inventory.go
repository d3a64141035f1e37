package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"ecogarden-sync-go/internal/models"
	"ecogarden-sync-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnknownObject     = errors.New("unknown garden object")
	ErrNotInInventory    = errors.New("object not in inventory")
	ErrPlacementNotFound = errors.New("placed object not found")
)

// Spender pays for purchases. The credits syncer satisfies it.
type Spender interface {
	SpendCredits(ctx context.Context, points int64, reason string) error
}

// KeyValue is the slice of the cache the inventory is saved in
type KeyValue interface {
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key, value string) error
}

type savedInventory struct {
	Counts map[string]int        `json:"counts"`
	Placed []models.PlacedObject `json:"placed"`
}

// Inventory tracks purchased objects and their placement on the garden
// canvas. Save writes it to the cache under the owner's key.
type Inventory struct {
	catalog *Catalog
	spender Spender

	mu     sync.Mutex
	counts map[string]int
	placed []models.PlacedObject
}

func NewInventory(catalog *Catalog, spender Spender) *Inventory {
	return &Inventory{
		catalog: catalog,
		spender: spender,
		counts:  make(map[string]int),
	}
}

// LoadInventory restores the inventory saved for userId. A missing entry
// yields an empty inventory. Objects no longer in the catalog are dropped.
func LoadInventory(ctx context.Context, catalog *Catalog, spender Spender, kv KeyValue, userId int64) (*Inventory, error) {
	inv := NewInventory(catalog, spender)
	raw, err := kv.GetValue(ctx, store.InventoryKey(userId))
	if errors.Is(err, store.ErrNotFound) {
		return inv, nil
	}
	if err != nil {
		return nil, err
	}

	var saved savedInventory
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return nil, fmt.Errorf("failed to decode inventory: %w", err)
	}
	for id, n := range saved.Counts {
		if _, ok := catalog.Get(id); ok && n > 0 {
			inv.counts[id] = n
		}
	}
	for _, p := range saved.Placed {
		obj, ok := catalog.Get(p.ObjectId)
		if !ok {
			zap.L().Warn("Dropping placed object missing from catalog",
				zap.String("object_id", p.ObjectId),
				zap.String("placement_id", p.Id))
			continue
		}
		p.GardenObject = obj
		inv.placed = append(inv.placed, p)
	}
	return inv, nil
}

// Save writes the owned counts and placements for userId
func (inv *Inventory) Save(ctx context.Context, kv KeyValue, userId int64) error {
	inv.mu.Lock()
	saved := savedInventory{
		Counts: make(map[string]int, len(inv.counts)),
		Placed: make([]models.PlacedObject, len(inv.placed)),
	}
	for id, n := range inv.counts {
		saved.Counts[id] = n
	}
	copy(saved.Placed, inv.placed)
	inv.mu.Unlock()

	raw, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("failed to encode inventory: %w", err)
	}
	return kv.SetValue(ctx, store.InventoryKey(userId), string(raw))
}

// Purchase spends the object's price and adds one to the inventory. Nothing
// is added when the spend fails.
func (inv *Inventory) Purchase(ctx context.Context, objectId string) (models.GardenObject, error) {
	obj, ok := inv.catalog.Get(objectId)
	if !ok {
		return models.GardenObject{}, fmt.Errorf("%w: %s", ErrUnknownObject, objectId)
	}

	if err := inv.spender.SpendCredits(ctx, obj.Price, fmt.Sprintf("Purchased %s", obj.Name)); err != nil {
		return models.GardenObject{}, fmt.Errorf("failed to purchase %s: %w", obj.Id, err)
	}

	inv.mu.Lock()
	inv.counts[obj.Id]++
	count := inv.counts[obj.Id]
	inv.mu.Unlock()

	zap.L().Info("Purchased garden object",
		zap.String("object_id", obj.Id),
		zap.Int64("price", obj.Price),
		zap.Int("owned", count))
	return obj, nil
}

// CanPlace reports whether an unplaced copy of objectId is owned
func (inv *Inventory) CanPlace(objectId string) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.counts[objectId] > 0
}

// Count is the number of owned, unplaced copies of objectId
func (inv *Inventory) Count(objectId string) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.counts[objectId]
}

// Place moves one owned copy onto the canvas at (x, y)
func (inv *Inventory) Place(objectId string, x, y float64) (models.PlacedObject, error) {
	obj, ok := inv.catalog.Get(objectId)
	if !ok {
		return models.PlacedObject{}, fmt.Errorf("%w: %s", ErrUnknownObject, objectId)
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.counts[objectId] <= 0 {
		return models.PlacedObject{}, fmt.Errorf("%w: %s", ErrNotInInventory, objectId)
	}

	placed := models.PlacedObject{
		GardenObject: obj,
		Id:           objectId + "_" + uuid.NewString(),
		ObjectId:     objectId,
		X:            x,
		Y:            y,
	}
	inv.counts[objectId]--
	inv.placed = append(inv.placed, placed)
	return placed, nil
}

func (inv *Inventory) Move(placementId string, x, y float64) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for i := range inv.placed {
		if inv.placed[i].Id == placementId {
			inv.placed[i].X = x
			inv.placed[i].Y = y
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrPlacementNotFound, placementId)
}

// Remove takes a placed object off the canvas and returns it to the inventory
func (inv *Inventory) Remove(placementId string) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for i, p := range inv.placed {
		if p.Id == placementId {
			inv.placed = append(inv.placed[:i], inv.placed[i+1:]...)
			inv.counts[p.ObjectId]++
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrPlacementNotFound, placementId)
}

// Placed lists the objects on the canvas in placement order
func (inv *Inventory) Placed() []models.PlacedObject {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := make([]models.PlacedObject, len(inv.placed))
	copy(out, inv.placed)
	return out
}
