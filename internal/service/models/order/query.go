package order

// QueryOrdersModel is the filter for listing orders.
type QueryOrdersModel struct {
	Ids    []int64
	Search string
	Status string
	Limit  int
	Offset int
}
