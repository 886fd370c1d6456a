package category

// Item is a catalog category derived from the active products.
type Item struct {
	Name         string `json:"name"`
	ProductCount int    `json:"productCount"`
}
