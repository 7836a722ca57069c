package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hassan-nahid/school-of-music-server/models"
)

func TestAggregateQuantities(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want []models.ClassQuantity
	}{
		{"empty", nil, []models.ClassQuantity{}},
		{"single", []string{"a"}, []models.ClassQuantity{{ClassID: "a", Quantity: 1}}},
		{"first occurrence order", []string{"b", "a", "b", "c", "a", "b"}, []models.ClassQuantity{
			{ClassID: "b", Quantity: 3},
			{ClassID: "a", Quantity: 2},
			{ClassID: "c", Quantity: 1},
		}},
		{"hex case folded", []string{"65AB0F", "65ab0f", "65Ab0F"}, []models.ClassQuantity{
			{ClassID: "65ab0f", Quantity: 3},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AggregateQuantities(tt.ids))
		})
	}
}
