package client

import (
	"context"
	"fmt"
)

// maxListLimit caps query result pages. The record sets this tool works
// with (items of one instance, loans of one user) stay far below it.
const maxListLimit = 10000

// ItemService accesses item records. Reads go through the inventory view,
// writes and existence probes through item storage.
type ItemService struct {
	c *Client
}

// Get fetches one item by UUID.
func (s *ItemService) Get(ctx context.Context, id string) (Body, error) {
	return s.c.getBody(ctx, "/inventory/items/"+id)
}

// Exists probes item storage for the given UUID.
func (s *ItemService) Exists(ctx context.Context, id string) (bool, error) {
	return s.c.exists(ctx, "/item-storage/items/"+id)
}

// ByBarcode returns items carrying the given barcode.
func (s *ItemService) ByBarcode(ctx context.Context, barcode string) ([]Body, error) {
	return s.c.searchList(ctx, "/inventory/items", "items", "barcode=="+barcode, maxListLimit)
}

// ByHRID returns items with the given human-readable id.
func (s *ItemService) ByHRID(ctx context.Context, hrid string) ([]Body, error) {
	return s.c.searchList(ctx, "/inventory/items", "items", "hrid=="+hrid, maxListLimit)
}

// ByInstanceID returns all items under the given instance.
func (s *ItemService) ByInstanceID(ctx context.Context, instanceID string) ([]Body, error) {
	return s.c.searchList(ctx, "/inventory/items", "items", "instance.id=="+instanceID, maxListLimit)
}

// ByInstanceHRID returns all items under the instance with the given HRID.
func (s *ItemService) ByInstanceHRID(ctx context.Context, hrid string) ([]Body, error) {
	return s.c.searchList(ctx, "/inventory/items", "items", "instance.hrid=="+hrid, maxListLimit)
}

// ByHoldingsID returns all items referencing the given holdings record.
func (s *ItemService) ByHoldingsID(ctx context.Context, holdingsID string) ([]Body, error) {
	return s.c.searchList(ctx, "/inventory/items", "items", "holdingsRecordId=="+holdingsID, maxListLimit)
}

// CountByHRID counts items with the given HRID without fetching them.
func (s *ItemService) CountByHRID(ctx context.Context, hrid string) (int, error) {
	return s.c.count(ctx, "/item-storage/items", "hrid=="+hrid)
}

// Update replaces the stored item record.
func (s *ItemService) Update(ctx context.Context, id string, body Body) error {
	return s.c.put(ctx, "/item-storage/items/"+id, body)
}

// Delete removes the item record from storage.
func (s *ItemService) Delete(ctx context.Context, id string) error {
	return s.c.del(ctx, "/item-storage/items/"+id)
}

// InstanceService accesses bibliographic instance records.
type InstanceService struct {
	c *Client
}

// Get fetches one instance by UUID.
func (s *InstanceService) Get(ctx context.Context, id string) (Body, error) {
	return s.c.getBody(ctx, "/inventory/instances/"+id)
}

// Exists probes instance storage for the given UUID.
func (s *InstanceService) Exists(ctx context.Context, id string) (bool, error) {
	return s.c.exists(ctx, "/instance-storage/instances/"+id)
}

// ByHRID returns instances with the given human-readable id.
func (s *InstanceService) ByHRID(ctx context.Context, hrid string) ([]Body, error) {
	return s.c.searchList(ctx, "/inventory/instances", "instances", "hrid=="+hrid, maxListLimit)
}

// ByItemBarcode returns instances owning an item with the given barcode.
func (s *InstanceService) ByItemBarcode(ctx context.Context, barcode string) ([]Body, error) {
	return s.c.searchList(ctx, "/inventory/instances", "instances", "item.barcode=="+barcode, maxListLimit)
}

// ByItemID returns instances owning the given item.
func (s *InstanceService) ByItemID(ctx context.Context, itemID string) ([]Body, error) {
	return s.c.searchList(ctx, "/inventory/instances", "instances", "item.id=="+itemID, maxListLimit)
}

// ByItemHRID returns instances owning an item with the given HRID.
func (s *InstanceService) ByItemHRID(ctx context.Context, hrid string) ([]Body, error) {
	return s.c.searchList(ctx, "/inventory/instances", "instances", "item.hrid=="+hrid, maxListLimit)
}

// CountByHRID counts instances with the given HRID without fetching them.
func (s *InstanceService) CountByHRID(ctx context.Context, hrid string) (int, error) {
	return s.c.count(ctx, "/instance-storage/instances", "hrid=="+hrid)
}

// Delete removes the instance record from storage. Holdings and items below
// it must already be gone or the platform rejects the delete.
func (s *InstanceService) Delete(ctx context.Context, id string) error {
	return s.c.del(ctx, "/instance-storage/instances/"+id)
}

// SourceRecordService accesses the separate source-record-storage entry
// that instances carry alongside their inventory record.
type SourceRecordService struct {
	c *Client
}

// DeleteForInstance removes the source record attached to an instance.
// Callers tolerate ErrNotFound: records imported before source storage
// existed have no entry.
func (s *SourceRecordService) DeleteForInstance(ctx context.Context, instanceID string) error {
	return s.c.del(ctx, fmt.Sprintf("/instance-storage/instances/%s/source-record", instanceID))
}
