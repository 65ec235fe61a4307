package adminview

import (
	"strings"

	"github.com/linemk/orders-admin/internal/domain/models"
	"github.com/pkg/errors"
)

// Filter - статус для отбора или FilterAll
type Filter string

const FilterAll Filter = "all"

func ParseFilter(raw string) (Filter, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == string(FilterAll) {
		return FilterAll, nil
	}
	if !models.OrderStatus(raw).Valid() {
		return "", errors.Errorf("unknown filter %q", raw)
	}
	return Filter(raw), nil
}

// Apply - чистая функция: точное совпадение статуса, порядок сохраняется
func (f Filter) Apply(orders []*models.Order) []*models.Order {
	out := make([]*models.Order, 0, len(orders))
	for _, o := range orders {
		if f == FilterAll || f == "" || string(o.Status) == string(f) {
			out = append(out, o)
		}
	}
	return out
}
