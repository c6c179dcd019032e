package catalog

// ProductRequest is the wire form of a product create or full replace.
// No field-level validation beyond structural typing happens here: empty
// names and negative prices pass through unchanged.
type ProductRequest struct {
	Name        string         `json:"name"`
	Price       int64          `json:"price"`
	Description string         `json:"description"`
	ImageURL    string         `json:"imageUrl"`
	Sizes       map[string]int `json:"sizes"`
}

func (r ProductRequest) product() Product {
	return Product{
		Name:        r.Name,
		Price:       r.Price,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		Sizes:       sizesOrEmpty(r.Sizes),
	}
}

// ViewRequest records that a user opened a product.
type ViewRequest struct {
	UserID    int64 `json:"userId" validate:"required"`
	ProductID int64 `json:"productId" validate:"required"`
}

// ViewResponse reports the outcome of a view recording.
type ViewResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}
