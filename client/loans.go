package client

import "context"

// LoanService accesses loan records in loan storage.
type LoanService struct {
	c *Client
}

// Get fetches one loan by UUID.
func (s *LoanService) Get(ctx context.Context, id string) (Body, error) {
	return s.c.getBody(ctx, "/loan-storage/loans/"+id)
}

// Exists probes loan storage for the given UUID.
func (s *LoanService) Exists(ctx context.Context, id string) (bool, error) {
	return s.c.exists(ctx, "/loan-storage/loans/"+id)
}

// ByUserID returns all loans held by the given user, open and closed.
func (s *LoanService) ByUserID(ctx context.Context, userID string) ([]Body, error) {
	return s.c.searchList(ctx, "/loan-storage/loans", "loans", "userId=="+userID, maxListLimit)
}

// ByItemID returns all loans on the given item.
func (s *LoanService) ByItemID(ctx context.Context, itemID string) ([]Body, error) {
	return s.c.searchList(ctx, "/loan-storage/loans", "loans", "itemId=="+itemID, maxListLimit)
}

// Delete removes the loan record.
func (s *LoanService) Delete(ctx context.Context, id string) error {
	return s.c.del(ctx, "/loan-storage/loans/"+id)
}
