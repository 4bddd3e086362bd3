package models

// JobRecord описывает одно успешное сжатие
type JobRecord struct {
	ID           int64
	UserID       int64
	OriginalName string
	OutputPath   string
	CreatedAt    string
}
