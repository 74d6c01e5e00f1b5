package model

// RemoteReceipt is the wire-level representation returned by the receipt
// service: amounts are decimal-formatted strings and dates are ISO-8601
// strings. It is never handed to callers directly; reconciliation converts
// it into a ReceiptRecord first.
type RemoteReceipt struct {
	TransactionNumber string           `json:"transactionNumber"`
	Store             string           `json:"store"`
	StoreLocation     string           `json:"storeLocation"`
	TransactionDate   string           `json:"transactionDate"`
	Subtotal          string           `json:"subtotal"`
	Tax               string           `json:"tax"`
	Total             string           `json:"total"`
	Items             []RemoteLineItem `json:"items"`
	ParseSuccessful   bool             `json:"parseSuccessful"`
}

// RemoteLineItem is the wire-level representation of a purchased item.
type RemoteLineItem struct {
	Description string `json:"description"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
	ItemCode    string `json:"itemCode,omitempty"`
}

// ReceiptUpdate carries the user-editable fields pushed to the remote
// service when a local record changes.
type ReceiptUpdate struct {
	Store           string           `json:"store,omitempty"`
	StoreLocation   string           `json:"storeLocation,omitempty"`
	TransactionDate string           `json:"transactionDate,omitempty"`
	Subtotal        string           `json:"subtotal,omitempty"`
	Tax             string           `json:"tax,omitempty"`
	Total           string           `json:"total,omitempty"`
	Items           []RemoteLineItem `json:"items,omitempty"`
}
