package catalog

import (
	"sort"
	"strings"

	"backoffice/internal/models"
)

func sortProducts(products []models.PosProduct) {
	sort.SliceStable(products, func(i, j int) bool {
		if products[i].IsFavorite != products[j].IsFavorite {
			return products[i].IsFavorite
		}
		return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
	})
}

func cloneProducts(in []models.PosProduct) []models.PosProduct {
	out := make([]models.PosProduct, len(in))
	copy(out, in)
	return out
}

func cloneGroups(in []models.ModifierGroup) []models.ModifierGroup {
	out := make([]models.ModifierGroup, len(in))
	for i, g := range in {
		out[i] = g
		out[i].Options = append([]models.ModifierOption(nil), g.Options...)
	}
	return out
}
