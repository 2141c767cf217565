package model

// Language is one entry of the static programming-language catalog.
type Language struct {
	ID   int    `json:"id"`
	Name string `json:"language"`
}
