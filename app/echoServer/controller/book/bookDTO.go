package book

type AddCopiesReq struct {
	Count int64 `json:"count" validate:"required,gt=0"`
}

// AdjustStockReq moves copies on or off the shelf by hand (lost, damaged,
// repaired). Action is "borrow" to take copies out or "return" to put
// them back.
type AdjustStockReq struct {
	Action   string `json:"action" validate:"required,oneof=borrow return"`
	Quantity int64  `json:"quantity" validate:"required,gt=0"`
}
