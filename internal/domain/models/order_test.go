package models_test

import (
	"encoding/json"
	"testing"

	"github.com/linemk/orders-admin/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	s, err := models.ParseOrderStatus(" Completed ")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, s)

	_, err = models.ParseOrderStatus("shipped")
	assert.Error(t, err)

	_, err = models.ParseOrderStatus("")
	assert.Error(t, err)
}

func TestLineItem_CustomizationsScalarAndList(t *testing.T) {
	raw := `{"name":"Latte","quantity":2,"customizations":{"size":"large","extras":["oat milk","vanilla"],"shots":2}}`

	var item models.LineItem
	require.NoError(t, json.Unmarshal([]byte(raw), &item))

	assert.Equal(t, "Latte", item.Name)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, "large", item.Customizations["size"].String())
	assert.Equal(t, "oat milk, vanilla", item.Customizations["extras"].String())
	assert.True(t, item.Customizations["extras"].List)
	assert.Equal(t, "2", item.Customizations["shots"].String())

	// скаляр остаётся скаляром, список - списком
	out, err := json.Marshal(item.Customizations["size"])
	require.NoError(t, err)
	assert.JSONEq(t, `"large"`, string(out))

	out, err = json.Marshal(item.Customizations["extras"])
	require.NoError(t, err)
	assert.JSONEq(t, `["oat milk","vanilla"]`, string(out))
}

func TestCustomizationValue_RejectsObjects(t *testing.T) {
	var v models.CustomizationValue
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &v))
}

func TestOrder_NeedsProfileAndDisplayName(t *testing.T) {
	customer := "7a1c4a52-1111-4c1e-9f00-000000000001"

	anonymous := models.Order{}
	assert.False(t, anonymous.NeedsProfile())
	assert.Equal(t, "Anonymous", anonymous.DisplayName())

	missing := models.Order{CustomerID: &customer}
	assert.True(t, missing.NeedsProfile())

	empty := models.Order{CustomerID: &customer, Profile: &models.Profile{}}
	assert.True(t, empty.NeedsProfile())

	withEmail := models.Order{CustomerID: &customer, Profile: &models.Profile{Email: "ann@example.com"}}
	assert.False(t, withEmail.NeedsProfile())
	assert.Equal(t, "ann@example.com", withEmail.DisplayName())

	withName := models.Order{CustomerID: &customer, Profile: &models.Profile{FullName: "Ann Lee", Email: "ann@example.com"}}
	assert.Equal(t, "Ann Lee", withName.DisplayName())
}

func TestProfileFromMetadata(t *testing.T) {
	p := models.ProfileFromMetadata(map[string]any{"full_name": "Ann Lee"}, "ann@example.com")
	assert.Equal(t, "Ann Lee", p.FullName)
	assert.Equal(t, "ann@example.com", p.Email)

	p = models.ProfileFromMetadata(nil, "")
	assert.Empty(t, p.FullName)
	assert.Empty(t, p.Email)
}
