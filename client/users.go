package client

import "context"

// UserService accesses user records.
type UserService struct {
	c *Client
}

// Get fetches one user by UUID.
func (s *UserService) Get(ctx context.Context, id string) (Body, error) {
	return s.c.getBody(ctx, "/users/"+id)
}

// Exists probes user storage for the given UUID.
func (s *UserService) Exists(ctx context.Context, id string) (bool, error) {
	return s.c.exists(ctx, "/users/"+id)
}

// ByBarcode returns users carrying the given barcode.
func (s *UserService) ByBarcode(ctx context.Context, barcode string) ([]Body, error) {
	return s.c.searchList(ctx, "/users", "users", "barcode=="+barcode, maxListLimit)
}

// CountByBarcode counts users with the given barcode without fetching them.
func (s *UserService) CountByBarcode(ctx context.Context, barcode string) (int, error) {
	return s.c.count(ctx, "/users", "barcode=="+barcode)
}
