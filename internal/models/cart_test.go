package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCartItems(t *testing.T) {
	items, err := ParseCartItems(`[
		{"type":"photo","photoId":"42","price":4.99,"quantity":1},
		{"type":"pass","selectedDate":"2024-06-01","price":14.99,"title":"Tagesfotopass"},
		{"type":"ticket","price":39.50,"quantity":2}
	]`)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "42", items[0].PhotoID)
	require.Equal(t, CartItemTypePass, items[1].Type)
	require.Equal(t, "2024-06-01", items[1].SelectedDate)
	require.Equal(t, 2, items[2].Quantity)
}

func TestParseCartItemsDropsUnknownTypes(t *testing.T) {
	items, err := ParseCartItems(`[
		{"type":"photo","photoId":"1","price":4.99},
		{"type":"voucher","price":10.00},
		{"type":"pass","selectedDate":"2024-06-01","price":14.99}
	]`)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, CartItemTypePhoto, items[0].Type)
	require.Equal(t, CartItemTypePass, items[1].Type)
}

func TestParseCartItemsEmpty(t *testing.T) {
	items, err := ParseCartItems("")
	require.NoError(t, err)
	require.Empty(t, items)

	items, err = ParseCartItems("[]")
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestParseCartItemsMalformed(t *testing.T) {
	_, err := ParseCartItems("not json")
	require.Error(t, err)

	_, err = ParseCartItems(`{"type":"photo"}`)
	require.Error(t, err)
}
