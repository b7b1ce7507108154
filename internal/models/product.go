package models

// ProductRow is one record from the product feed spreadsheet. RowNumber is
// the 1-based position of the row within the sheet (header excluded) and is
// stable for the duration of a run. Extra preserves every column the
// pipeline does not interpret so write-back can address them by name.
type ProductRow struct {
	RowNumber   int               `json:"row_number"`
	ProductID   string            `json:"product_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Extra       map[string]string `json:"extra,omitempty"`
}
