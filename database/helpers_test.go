package database

import (
	"github.com/korjavin/swiftcamp/catalog"
	"github.com/korjavin/swiftcamp/models"
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]models.Lesson{
		{ID: "variables", Difficulty: models.Beginner},
		{ID: "optionals", Difficulty: models.Intermediate, Dependencies: []string{"variables"}},
	})
}
