package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// total_amount в JSON - число, как numeric в БД
	decimal.MarshalJSONWithoutQuotes = true
}

// OrderStatus - статус заказа в жизненном цикле
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses - все допустимые статусы в порядке отображения
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// Valid сообщает, входит ли статус в перечисление
func (s OrderStatus) Valid() bool {
	for _, st := range OrderStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// ParseOrderStatus приводит строку к статусу, регистр и пробелы не учитываются
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return s, nil
}

// Order представляет заказ покупателя
type Order struct {
	ID          string          `json:"id"`
	Items       []LineItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	CustomerID  *string         `json:"customer_id,omitempty"`
	Profile     *Profile        `json:"profiles,omitempty"`
}

// NeedsProfile - у заказа есть покупатель, но нет ни имени, ни email
func (o *Order) NeedsProfile() bool {
	if o.CustomerID == nil || *o.CustomerID == "" {
		return false
	}
	return o.Profile == nil || (o.Profile.FullName == "" && o.Profile.Email == "")
}

// DisplayName - имя покупателя для таблицы
func (o *Order) DisplayName() string {
	if o.Profile != nil {
		if o.Profile.FullName != "" {
			return o.Profile.FullName
		}
		if o.Profile.Email != "" {
			return o.Profile.Email
		}
	}
	return "Anonymous"
}

// ShortID - первые 8 символов идентификатора
func (o *Order) ShortID() string {
	if len(o.ID) <= 8 {
		return o.ID
	}
	return o.ID[:8]
}

// LineItem - позиция заказа
type LineItem struct {
	Name           string                        `json:"name" validate:"required"`
	Quantity       int                           `json:"quantity" validate:"required,min=1"`
	Customizations map[string]CustomizationValue `json:"customizations,omitempty"`
}

// CustomizationValue - значение опции позиции: одно значение или список
type CustomizationValue struct {
	Values []string
	List   bool
}

// One создаёт значение из одной строки
func One(v string) CustomizationValue {
	return CustomizationValue{Values: []string{v}}
}

// Many создаёт значение-список
func Many(vs ...string) CustomizationValue {
	return CustomizationValue{Values: vs, List: true}
}

func (c CustomizationValue) String() string {
	return strings.Join(c.Values, ", ")
}

func (c CustomizationValue) MarshalJSON() ([]byte, error) {
	if !c.List && len(c.Values) == 1 {
		return json.Marshal(c.Values[0])
	}
	if c.Values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Values)
}

func (c *CustomizationValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		values := make([]string, 0, len(raw))
		for _, r := range raw {
			v, err := scalarString(r)
			if err != nil {
				return err
			}
			values = append(values, v)
		}
		*c = CustomizationValue{Values: values, List: true}
		return nil
	}
	v, err := scalarString(data)
	if err != nil {
		return err
	}
	*c = One(v)
	return nil
}

// scalarString принимает строку, число или bool
func scalarString(data json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case float64, bool:
		return string(bytes.TrimSpace(data)), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("customization value must be a scalar, got %s", data)
	}
}
