package fulfillment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundOrderDecode(t *testing.T) {
	payload := `{
		"id": 1001,
		"email": "buyer@example.com",
		"order_number": 1001,
		"customer": {"first_name": "Taro", "last_name": "Yamada"},
		"line_items": [
			{"sku": "ESIM-131519", "title": "Japan 5GB eSIM"},
			{"sku": "STICKER-1", "title": "Sticker"}
		]
	}`

	var order InboundOrder
	require.NoError(t, json.Unmarshal([]byte(payload), &order))

	assert.Equal(t, int64(1001), order.ID)
	assert.Equal(t, "buyer@example.com", order.Email)
	assert.Equal(t, 1001, order.OrderNumber)
	assert.Equal(t, "Taro Yamada", order.CustomerName())
	require.Len(t, order.LineItems, 2)

	id, ok := order.LineItems[0].PackageID()
	require.True(t, ok)
	assert.Equal(t, "131519", id)

	_, ok = order.LineItems[1].PackageID()
	assert.False(t, ok)
}

func TestInboundOrderCustomerName(t *testing.T) {
	t.Run("missing customer block", func(t *testing.T) {
		order := InboundOrder{}
		assert.Equal(t, "", order.CustomerName())
	})

	t.Run("first name only", func(t *testing.T) {
		order := InboundOrder{Customer: InboundCustomer{FirstName: "Taro"}}
		assert.Equal(t, "Taro", order.CustomerName())
	})

	t.Run("last name only", func(t *testing.T) {
		order := InboundOrder{Customer: InboundCustomer{LastName: "Yamada"}}
		assert.Equal(t, "Yamada", order.CustomerName())
	})
}
