package client

import "context"

// HoldingsService accesses holdings records in holdings storage.
type HoldingsService struct {
	c *Client
}

// Get fetches one holdings record by UUID.
func (s *HoldingsService) Get(ctx context.Context, id string) (Body, error) {
	return s.c.getBody(ctx, "/holdings-storage/holdings/"+id)
}

// Exists probes holdings storage for the given UUID.
func (s *HoldingsService) Exists(ctx context.Context, id string) (bool, error) {
	return s.c.exists(ctx, "/holdings-storage/holdings/"+id)
}

// ByHRID returns holdings records with the given human-readable id.
func (s *HoldingsService) ByHRID(ctx context.Context, hrid string) ([]Body, error) {
	return s.c.searchList(ctx, "/holdings-storage/holdings", "holdingsRecords", "hrid=="+hrid, maxListLimit)
}

// ByInstanceID returns all holdings records under the given instance.
func (s *HoldingsService) ByInstanceID(ctx context.Context, instanceID string) ([]Body, error) {
	return s.c.searchList(ctx, "/holdings-storage/holdings", "holdingsRecords", "instanceId=="+instanceID, maxListLimit)
}

// CountByHRID counts holdings records with the given HRID.
func (s *HoldingsService) CountByHRID(ctx context.Context, hrid string) (int, error) {
	return s.c.count(ctx, "/holdings-storage/holdings", "hrid=="+hrid)
}

// Create stores a new holdings record and returns the stored body,
// including the platform-assigned id and hrid.
func (s *HoldingsService) Create(ctx context.Context, body Body) (Body, error) {
	var created Body
	if err := s.c.post(ctx, "/holdings-storage/holdings", body, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// Update replaces the stored holdings record.
func (s *HoldingsService) Update(ctx context.Context, id string, body Body) error {
	return s.c.put(ctx, "/holdings-storage/holdings/"+id, body)
}

// Delete removes the holdings record. Items referencing it must already be
// gone or repointed.
func (s *HoldingsService) Delete(ctx context.Context, id string) error {
	return s.c.del(ctx, "/holdings-storage/holdings/"+id)
}
