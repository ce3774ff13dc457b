package zkp2p

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/samba-xyz/samba-relay/pkg/models"
)

// SelectQuote picks the best quote from a candidate list: lowest conversion
// rate wins. If a quote from the configured default payee is present it is
// preferred regardless of rate. That is a routing preference, not a price rule.
func SelectQuote(quotes []models.Quote, defaultPayee string) (*models.Quote, error) {
	if len(quotes) == 0 {
		return nil, ErrNoLiquidity
	}

	sorted := make([]models.Quote, len(quotes))
	copy(sorted, quotes)

	var parseErr error
	sort.SliceStable(sorted, func(i, j int) bool {
		rateI, okI := new(big.Int).SetString(sorted[i].ConversionRate, 10)
		rateJ, okJ := new(big.Int).SetString(sorted[j].ConversionRate, 10)
		if !okI || !okJ {
			parseErr = fmt.Errorf("unparseable conversion rate")
			return false
		}
		return rateI.Cmp(rateJ) < 0
	})
	if parseErr != nil {
		return nil, &SchemaError{Service: serviceQuote, Err: parseErr}
	}

	selected := sorted[0]
	if defaultPayee != "" {
		for _, q := range quotes {
			if strings.EqualFold(q.PayeeAddress, defaultPayee) {
				selected = q
				break
			}
		}
	}
	return &selected, nil
}
