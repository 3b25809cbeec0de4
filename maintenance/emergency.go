package maintenance

import (
	"context"

	"github.com/brightpath/lmscache/cache"
	"github.com/brightpath/lmscache/logger"
)

// EmergencyClear wipes the entire cache. The caller must echo back the
// configured confirmation token; anything else is rejected before the store
// is touched. Incident-response tooling only.
func EmergencyClear(ctx context.Context, svc *cache.Service, log logger.Logger, confirm, token string) error {
	if token == "" || confirm != token {
		return cache.ErrConfirmationRequired
	}

	if err := svc.Clear(ctx); err != nil {
		return err
	}

	log.Warn().Msg("Emergency cache clear executed, all entries wiped")
	return nil
}
