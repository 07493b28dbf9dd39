package status

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var ErrNegativeDuration = errors.New("negative elapsed time")

const day = 24 * time.Hour

// ElapsedTime formats d with its two largest units, truncating each:
// "2 days 3 hours", "1 hours 30 minutes" or "45 minutes".
func ElapsedTime(d time.Duration) (string, error) {
	if d < 0 {
		return "", errors.Wrapf(ErrNegativeDuration, "%s", d)
	}
	days := int64(d / day)
	hours := int64((d % day) / time.Hour)
	minutes := int64((d % time.Hour) / time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%d days %d hours", days, hours), nil
	case hours > 0:
		return fmt.Sprintf("%d hours %d minutes", hours, minutes), nil
	default:
		return fmt.Sprintf("%d minutes", minutes), nil
	}
}
