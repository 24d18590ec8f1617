package engine

// Profiles recognized by the executor.
const (
	ProfileRentals = "rentals"
	ProfileOrders  = "orders"
)

// Logical fields. A Layout maps these onto the columns of a loaded record set.
const (
	// rentals
	FieldTemp       = "temp"
	FieldHumidity   = "humidity"
	FieldWindspeed  = "windspeed"
	FieldTotalCount = "total_count"

	// orders
	FieldCategory  = "category"
	FieldOrderDate = "order_date"
	FieldOrderID   = "order_id"
	FieldPrice     = "total_price"
	FieldQuantity  = "quantity"
	FieldProduct   = "product_name"
	FieldCustomer  = "customer_id"
	FieldGender    = "gender"
	FieldAgeGroup  = "age_group"
	FieldState     = "state"
)

// Layout is a resolved schema: which profile the record set follows and the
// actual column behind every logical field.
type Layout struct {
	Profile string            `json:"profile"`
	Columns map[string]string `json:"columns"`
}

// Column returns the column bound to field, or field itself when unbound.
func (l Layout) Column(field string) string {
	if c, ok := l.Columns[field]; ok && c != "" {
		return c
	}
	return field
}

// ColumnsOf returns the bound columns of the given fields, in order.
func (l Layout) ColumnsOf(fields ...string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = l.Column(f)
	}
	return out
}
