package entity

// Product is a catalog item a customer can inquire about.
type Product struct {
	ID       string  `json:"id" bson:"_id"`
	Name     string  `json:"name" bson:"name"`
	Category string  `json:"category" bson:"category"`
	Price    float64 `json:"price" bson:"price"`
	DealerID string  `json:"dealer_id,omitempty" bson:"dealer_id,omitempty"`
	ImageURL string  `json:"image_url,omitempty" bson:"image_url,omitempty"`
}

type ProductInfo struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func (p *Product) Info() *ProductInfo {
	return &ProductInfo{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price,
	}
}
