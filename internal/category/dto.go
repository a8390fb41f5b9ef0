package category

type CategoryResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CategoriesResponse struct {
	Success bool               `json:"success"`
	Data    []CategoryResponse `json:"data"`
}
