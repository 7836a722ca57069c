package services

import (
	"strings"

	"github.com/hassan-nahid/school-of-music-server/models"
)

// AggregateQuantities counts occurrences of each class id, ordered by first occurrence.
// Ids are hex object ids, so they are compared case-insensitively and reported in lower case.
func AggregateQuantities(classIDs []string) []models.ClassQuantity {
	index := make(map[string]int, len(classIDs))
	out := make([]models.ClassQuantity, 0, len(classIDs))
	for _, id := range classIDs {
		id = strings.ToLower(id)
		if i, ok := index[id]; ok {
			out[i].Quantity++
			continue
		}
		index[id] = len(out)
		out = append(out, models.ClassQuantity{ClassID: id, Quantity: 1})
	}
	return out
}
