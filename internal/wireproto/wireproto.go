// Package wireproto defines the JSON message shapes shared by the line
// socket (newline-terminated) and websocket (one text frame per
// message) adapters (spec.md §6.4). Both transports serialize the exact
// same Go types so their wire formats stay identical by construction.
package wireproto

// ClientMessage is the single struct every inbound client message is
// decoded into; Type selects which of the other fields apply.
type ClientMessage struct {
	Type      string  `json:"type"`
	OrderType string  `json:"orderType"`
	Price     float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
	Symbol    string  `json:"symbol"`
	OrderID   string  `json:"orderId"`
}

const (
	TypeSubmitOrder = "submit_order"
	TypeCancelOrder = "cancel_order"
)

type Welcome struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewWelcome(message string) Welcome {
	return Welcome{Type: "welcome", Message: message}
}

type OrderSubmitted struct {
	Type    string `json:"type"`
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

func NewOrderSubmitted(orderID string) OrderSubmitted {
	return OrderSubmitted{Type: "order_submitted", OrderID: orderID, Status: "success"}
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewError(message string) ErrorMessage {
	return ErrorMessage{Type: "error", Message: message}
}

type OrderCancelled struct {
	Type    string `json:"type"`
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

func NewOrderCancelled(orderID string, success bool) OrderCancelled {
	status := "failed"
	if success {
		status = "success"
	}
	return OrderCancelled{Type: "order_cancelled", OrderID: orderID, Status: status}
}

type TradeBroadcast struct {
	Type     string  `json:"type"`
	TradeID  string  `json:"tradeId"`
	Symbol   string  `json:"symbol"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

type OrderBookUpdate struct {
	Type     string  `json:"type"`
	Symbol   string  `json:"symbol"`
	BestBid  float64 `json:"bestBid"`
	BestAsk  float64 `json:"bestAsk"`
	BidSize  int64   `json:"bidSize"`
	AskSize  int64   `json:"askSize"`
	Spread   float64 `json:"spread"`
}

type OrderStatus struct {
	Type    string `json:"type"`
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func NewOrderStatus(orderID, status, message string) OrderStatus {
	return OrderStatus{Type: "order_status", OrderID: orderID, Status: status, Message: message}
}
