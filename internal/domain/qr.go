package domain

import (
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidQR = errors.New("invalid qr content")

// productionPrefix marks sales orders that go through the production line.
const productionPrefix = "SOV"

// ParseQRContent extracts the order number from a QR card payload of the
// form "<a>!<b>!<order_id>!<seq_no>[!...]".
func ParseQRContent(content string) (string, error) {
	parts := strings.Split(strings.TrimSpace(content), "!")
	if len(parts) < 4 {
		return "", errors.Wrapf(ErrInvalidQR, "expected at least 4 fields, got %d", len(parts))
	}
	orderID, seq := strings.TrimSpace(parts[2]), strings.TrimSpace(parts[3])
	if orderID == "" || seq == "" {
		return "", errors.Wrap(ErrInvalidQR, "empty order id or sequence")
	}
	return orderID + "-" + seq, nil
}

func IsProductionOrder(orderNo string) bool {
	return strings.HasPrefix(orderNo, productionPrefix)
}
