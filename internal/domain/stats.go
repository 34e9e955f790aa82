package domain

// Stats counts the rows that make up the collection.
type Stats struct {
	Nodes      int `json:"hobbies"`
	Types      int `json:"types"`
	Entries    int `json:"entries"`
	Archived   int `json:"archived"`
	Favorites  int `json:"favorites"`
	Tags       int `json:"tags"`
	Shelves    int `json:"shelves"`
	ShelfItems int `json:"shelf_items"`
	Media      int `json:"media"`
}
