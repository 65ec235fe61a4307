package adminview_test

import (
	"context"
	"testing"

	"github.com/linemk/orders-admin/internal/adminview"
	"github.com/linemk/orders-admin/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	f, err := adminview.ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, adminview.FilterAll, f)

	f, err = adminview.ParseFilter(" Completed ")
	require.NoError(t, err)
	assert.Equal(t, adminview.Filter("completed"), f)

	_, err = adminview.ParseFilter("shipped")
	assert.Error(t, err)
}

func TestFilterApply(t *testing.T) {
	orders := sampleOrders()

	assert.Len(t, adminview.FilterAll.Apply(orders), 4)

	pending := adminview.Filter("pending").Apply(orders)
	require.Len(t, pending, 2)
	assert.Equal(t, "aaaa1111", pending[0].ID)
	assert.Equal(t, "cccc3333", pending[1].ID)

	assert.Empty(t, adminview.Filter("cancelled").Apply(orders))

	// статус вне перечисления виден только в "all"
	odd := []*models.Order{{ID: "x", Status: "shipped"}}
	assert.Len(t, adminview.FilterAll.Apply(odd), 1)
	assert.Empty(t, adminview.Filter("pending").Apply(odd))
}

func TestVisible(t *testing.T) {
	src := &fakeSource{orders: sampleOrders()}
	v := newView(src, &fakeProfiles{}, fakeAuth{})
	require.NoError(t, v.Mount(context.Background()))

	processing := v.Visible(adminview.Filter("processing"))
	require.Len(t, processing, 1)
	assert.Equal(t, "dddd4444", processing[0].ID)
	assert.Len(t, v.Visible(adminview.FilterAll), 4)
}
