package usecase

import (
	"fmt"
	"strings"

	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

// ParseStatusFilter parses a comma separated status list. Blank input means no filter.
func ParseStatusFilter(raw string) ([]model.OrderStatus, error) {
	var statuses []model.OrderStatus
	seen := make(map[model.OrderStatus]struct{})
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		status, err := model.ParseOrderStatus(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", domainErrors.ErrInvalidStatus, strings.TrimSpace(part))
		}
		if _, dup := seen[status]; dup {
			continue
		}
		seen[status] = struct{}{}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
