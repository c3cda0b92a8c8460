package cascade

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/folio-labs/folioctl/client"
)

// CleanLoans scans the loans of each user and deletes the phantom ones,
// loans whose item no longer exists. Loans with a live item are left alone
// whatever their status. One Result is returned per phantom loan handled;
// users whose loans are all sound contribute nothing. Once the platform
// rejects the token, the remaining users and loans are not attempted.
func (e *Engine) CleanLoans(ctx context.Context, userIDs []string) []Result {
	var results []Result
	for _, userID := range userIDs {
		loans, err := e.c.Loans.ByUserID(ctx, userID)
		if err != nil {
			results = append(results, Result{ID: userID, Kind: client.KindUser, State: Failed, Err: err})
			if client.IsAuthExpired(err) {
				return results
			}
			continue
		}
		for _, loan := range loans {
			itemID := loan.Str("itemId")
			exists, err := e.c.Items.Exists(ctx, itemID)
			if err != nil {
				results = append(results, Result{ID: loan.ID(), Kind: client.KindLoan, State: Failed, Err: err})
				if client.IsAuthExpired(err) {
					return results
				}
				continue
			}
			if exists {
				continue
			}
			e.log.WithFields(logrus.Fields{
				"loan": loan.ID(), "user": userID, "item": itemID,
			}).Info("found phantom loan")
			result := e.remove(client.KindLoan, loan, func() error {
				return e.c.Loans.Delete(ctx, loan.ID())
			})
			result.Note = "phantom loan, item " + itemID + " no longer exists"
			results = append(results, result)
			if client.IsAuthExpired(result.Err) {
				return results
			}
		}
	}
	return results
}
