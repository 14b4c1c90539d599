package models

// Category — категория маркетплейса для фильтра.
type Category struct {
	ID   int
	Name string
}

// Categories — каталог категорий в порядке отображения в фильтре.
var Categories = []Category{
	{ID: 1, Name: "Digital devices"},
	{ID: 172, Name: "Home appliances"},
	{ID: 8, Name: "Furniture/Interior"},
	{ID: 7, Name: "Living/Kitchen"},
	{ID: 4, Name: "Kids"},
	{ID: 173, Name: "Kids books"},
	{ID: 5, Name: "Women's clothing"},
	{ID: 31, Name: "Women's accessories"},
	{ID: 14, Name: "Men's fashion"},
	{ID: 6, Name: "Beauty"},
	{ID: 3, Name: "Sports/Leisure"},
	{ID: 2, Name: "Hobby/Games/Music"},
	{ID: 9, Name: "Books"},
	{ID: 304, Name: "Tickets/Vouchers"},
	{ID: 305, Name: "Processed food"},
	{ID: 483, Name: "Health food"},
	{ID: 16, Name: "Pet supplies"},
	{ID: 139, Name: "Plants"},
	{ID: 13, Name: "Other used goods"},
	{ID: 32, Name: "Buying"},
}

// CategoryName возвращает название категории или "" для неизвестного id.
func CategoryName(id int) string {
	for _, c := range Categories {
		if c.ID == id {
			return c.Name
		}
	}

	return ""
}
