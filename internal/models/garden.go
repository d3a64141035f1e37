package models

// GardenObject is a purchasable decoration from the shop catalog
type GardenObject struct {
	Id    string `yaml:"id" json:"id" validate:"required,excludes=_"`
	Name  string `yaml:"name" json:"name" validate:"required"`
	Price int64  `yaml:"price" json:"price" validate:"gte=0"`
	Icon  string `yaml:"icon" json:"icon"`
	Image string `yaml:"image" json:"image" validate:"omitempty,url"`
}

// PlacedObject is a purchased object positioned on the garden canvas
type PlacedObject struct {
	GardenObject
	Id       string  `json:"placement_id"`
	ObjectId string  `json:"object_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}
