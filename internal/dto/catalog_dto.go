package dto

type CreateColorRequest struct {
	Name    string  `json:"name"    validate:"required,min=2,max=60"`
	HexCode *string `json:"hexCode" validate:"omitempty,hexcolor"`
}

type CreateVariationRequest struct {
	Name        string  `json:"name"        validate:"required,min=1,max=60"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

type ColorResponse struct {
	ID      uint    `json:"id"`
	Name    string  `json:"name"`
	HexCode *string `json:"hexCode"`
	Active  bool    `json:"active"`
}

type VariationResponse struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Active      bool    `json:"active"`
}
