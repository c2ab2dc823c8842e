package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shopbot/chatbot_api/internal/models"
)

type ProductHandler struct {
	DB *gorm.DB
}

// escapeLike neutralizes LIKE metacharacters so the search term only
// ever matches literally.
var escapeLike = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GetProducts lists the catalog ordered by name. An optional ?search=
// term narrows the list to products whose name, description, category or
// brand contains the term, case-insensitively.
func (h *ProductHandler) GetProducts(c echo.Context) error {
	query := h.DB.Model(&models.Product{})

	if search := c.QueryParam("search"); search != "" {
		pattern := "%" + escapeLike.Replace(strings.ToLower(search)) + "%"
		query = query.Where(
			`lower(name) LIKE ? ESCAPE '\' OR lower(coalesce(description, '')) LIKE ? ESCAPE '\' OR lower(category) LIKE ? ESCAPE '\' OR lower(coalesce(brand, '')) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern, pattern,
		)
	}

	products := []models.Product{}
	if err := query.Order("name asc").Find(&products).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	productID := c.Param("product_id")

	var product models.Product
	if err := h.DB.Where("product_id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{
				"detail": "No Product matches the given query.",
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, product)
}
